package poseweb

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tigerbot-team/odometer/pkg/odometer"
)

type Config struct {
	// Address to listen on; empty disables the web server.
	Listen string        `yaml:"listen" env:"ODOM_LISTEN"`
	Period time.Duration `yaml:"period" env:"ODOM_WEB_PERIOD"`
}

func DefaultConfig() Config {
	return Config{
		Listen: ":8080",
		Period: 100 * time.Millisecond,
	}
}

// Tracker is the part of the odometer the web server exposes.
type Tracker interface {
	Pose() odometer.Pose
	SetPose(values [3]float64, update [3]bool)
	CorrectHeading(delta float64)

	Start()
	Stop()
	Running() bool
}

// Server publishes the pose to browsers and lets an external localizer push
// corrections:
//
//	GET  /pose          current pose as JSON
//	PUT  /pose          {"x":..,"y":..,"theta":..}; absent fields are left alone
//	POST /pose/heading  {"delta":..} degrees added to the heading
//	GET  /sampling      {"running":..}
//	PUT  /sampling      {"running":..} starts or stops sampling
//	GET  /ws            websocket stream of poses
type Server struct {
	tracker Tracker
	cfg     Config
	room    *Room
	mux     *http.ServeMux
	log     *zap.SugaredLogger
}

func NewServer(tracker Tracker, cfg Config, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.Period <= 0 {
		cfg.Period = DefaultConfig().Period
	}
	s := &Server{
		tracker: tracker,
		cfg:     cfg,
		room:    NewRoom(log.Named("room")),
		mux:     http.NewServeMux(),
		log:     log,
	}
	s.mux.HandleFunc("/pose", s.handlePose)
	s.mux.HandleFunc("/pose/heading", s.handleHeading)
	s.mux.HandleFunc("/sampling", s.handleSampling)
	s.mux.Handle("/ws", s.room)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.mux.ServeHTTP(w, req)
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	return s.Serve(ctx, l)
}

func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.room.Run(ctx)
	go s.loopBroadcasting(ctx)

	srv := &http.Server{Handler: s}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	s.log.Infow("Serving pose", "addr", l.Addr().String())
	err := srv.Serve(l)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) loopBroadcasting(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		msg, err := json.Marshal(s.tracker.Pose())
		if err != nil {
			s.log.Errorw("Failed to encode pose", "error", err)
			continue
		}
		s.room.Broadcast(ctx, msg)
	}
}

type poseUpdate struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Theta *float64 `json:"theta"`
}

type samplingState struct {
	Running *bool `json:"running"`
}

type headingCorrection struct {
	Delta *float64 `json:"delta"`
}

func (s *Server) handlePose(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
	case http.MethodPut:
		var u poseUpdate
		if err := json.NewDecoder(req.Body).Decode(&u); err != nil {
			http.Error(w, "bad pose: "+err.Error(), http.StatusBadRequest)
			return
		}
		var values [3]float64
		var update [3]bool
		for i, f := range []*float64{u.X, u.Y, u.Theta} {
			if f != nil {
				values[i] = *f
				update[i] = true
			}
		}
		s.tracker.SetPose(values, update)
		s.log.Infow("Pose set over HTTP", "values", values, "update", update)
	default:
		w.Header().Set("Allow", "GET, PUT")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writePose(w)
}

func (s *Server) handleHeading(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var c headingCorrection
	if err := json.NewDecoder(req.Body).Decode(&c); err != nil {
		http.Error(w, "bad correction: "+err.Error(), http.StatusBadRequest)
		return
	}
	if c.Delta == nil {
		http.Error(w, "bad correction: missing delta", http.StatusBadRequest)
		return
	}
	s.tracker.CorrectHeading(*c.Delta)
	s.log.Infow("Heading corrected over HTTP", "delta", *c.Delta)
	s.writePose(w)
}

func (s *Server) handleSampling(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
	case http.MethodPut:
		var st samplingState
		if err := json.NewDecoder(req.Body).Decode(&st); err != nil {
			http.Error(w, "bad sampling state: "+err.Error(), http.StatusBadRequest)
			return
		}
		if st.Running == nil {
			http.Error(w, "bad sampling state: missing running", http.StatusBadRequest)
			return
		}
		if *st.Running {
			s.tracker.Start()
		} else {
			s.tracker.Stop()
		}
		s.log.Infow("Sampling changed over HTTP", "running", *st.Running)
	default:
		w.Header().Set("Allow", "GET, PUT")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	running := s.tracker.Running()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(samplingState{Running: &running}); err != nil {
		s.log.Warnw("Failed to write sampling state", "error", err)
	}
}

func (s *Server) writePose(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.tracker.Pose()); err != nil {
		s.log.Warnw("Failed to write pose", "error", err)
	}
}
