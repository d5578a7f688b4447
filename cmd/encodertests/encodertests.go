package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tigerbot-team/odometer/pkg/config"
	"github.com/tigerbot-team/odometer/pkg/encoder"
	"github.com/tigerbot-team/odometer/pkg/odometer"
)

// Prints raw encoder counts alongside the pose they integrate to, for
// checking wiring, inversion and counts-per-rev on the bench.
func main() {
	cfgPath := flag.String("config", config.DefaultPath, "Path to the odometer config file.")
	period := flag.Duration("period", 200*time.Millisecond, "How often to print.")
	flag.Parse()

	fmt.Println("---- Encoder tests ----")
	cfg, err := config.Load(*cfgPath, nil)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}

	enc, err := encoder.Open(cfg.Encoder, nil)
	if err != nil {
		fmt.Println("Failed to open encoders:", err)
		os.Exit(1)
	}
	defer enc.Close()

	rec := &countsRecorder{Source: enc}
	odo, err := odometer.New(rec, odometer.Config{Geometry: cfg.Geometry}, odometer.WithoutScheduler())
	if err != nil {
		fmt.Println("Failed to create odometer:", err)
		os.Exit(1)
	}

	for range time.NewTicker(*period).C {
		if err := odo.Tick(); err != nil {
			fmt.Println("Tick failed:", err)
			continue
		}
		fmt.Printf("L=%8d R=%8d  %v\n", rec.left, rec.right, odo.Pose())
	}
}
