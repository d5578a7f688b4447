package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tigerbot-team/odometer/pkg/config"
	"github.com/tigerbot-team/odometer/pkg/encoder"
	"github.com/tigerbot-team/odometer/pkg/odometer"
	"github.com/tigerbot-team/odometer/pkg/poseweb"
	"github.com/tigerbot-team/odometer/pkg/screen"
)

func main() {
	cfgPath := flag.String("config", envOr(config.PathEnvVar, config.DefaultPath), "Path to the odometer config file.")
	debug := flag.Bool("debug", false, "Log at debug level in a human-friendly format.")
	flag.Parse()

	log, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(*cfgPath, log); err != nil {
		log.Errorw("Odometer failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	var l *zap.Logger
	var err error
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func run(cfgPath string, log *zap.SugaredLogger) error {
	log.Infow("---- Odometer ----", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := config.Load(cfgPath, log)
	if err != nil {
		return err
	}
	log.Infow("Using config", "config", cfg)
	if err := cfg.WriteInUse(config.InUsePath(cfgPath)); err != nil {
		log.Infow("Failed to record config in use", "error", err)
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registerSignalHandlers(cancel, log)

	enc, err := encoder.Open(cfg.Encoder, log.Named("encoder"))
	if err != nil {
		return err
	}
	defer enc.Close()

	odo, err := odometer.New(enc, odometer.Config{
		Geometry:  cfg.Geometry,
		Interval:  cfg.SampleInterval,
		AutoStart: cfg.AutoStart,
	}, odometer.WithLogger(log.Named("odometer")))
	if err != nil {
		return err
	}
	defer func() {
		odo.Stop()
		log.Infow("Odometer stopped", "pose", odo.Pose())
	}()
	if !odo.Running() {
		log.Infow("Sampling idle until started over HTTP")
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Screen.Enabled {
		g.Go(func() error {
			screen.LoopUpdatingScreen(ctx, cfg.Screen, odo, log.Named("screen"))
			return nil
		})
	}
	if cfg.Web.Listen != "" {
		web := poseweb.NewServer(odo, cfg.Web, log.Named("poseweb"))
		g.Go(func() error {
			return web.Run(ctx)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				log.Infow("Pose", "pose", odo.Pose())
			}
		}
	})
	return g.Wait()
}

func registerSignalHandlers(cancelFunc context.CancelFunc, log *zap.SugaredLogger) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Infow("Signal", "signal", s.String())
		cancelFunc()
	}()
}
