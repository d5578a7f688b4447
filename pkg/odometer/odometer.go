package odometer

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tigerbot-team/odometer/pkg/angle"
	"github.com/tigerbot-team/odometer/pkg/chassis"
	"github.com/tigerbot-team/odometer/pkg/encoder"
	"github.com/tigerbot-team/odometer/pkg/timer"
)

const DefaultInterval = timer.DefaultInterval

// Scheduler calls the odometer's Tick periodically while started.
type Scheduler interface {
	Start()
	Stop()
	Running() bool
}

type Config struct {
	Geometry chassis.Geometry
	Interval time.Duration
	// Start sampling as soon as the odometer is created.
	AutoStart bool
}

// Odometer tracks the robot's pose by integrating wheel encoder counts.
//
// One Odometer should exist per robot; create it at startup and hand it to
// whatever needs the pose. All methods are safe to call concurrently, except
// that Tick must not race with itself (the scheduler never does this).
type Odometer struct {
	enc      encoder.Source
	geometry chassis.Geometry
	interval time.Duration
	log      *zap.SugaredLogger

	scheduler   Scheduler
	noScheduler bool

	poseLock sync.Mutex
	pose     Pose

	// Displacement (mm) and rotation (rad) already folded into pose. Only
	// touched by Tick.
	lastDisplacement float64
	lastRotation     float64
}

type Option func(*Odometer)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *Odometer) {
		o.log = log
	}
}

// WithScheduler replaces the default ticker-driven scheduler.
func WithScheduler(s Scheduler) Option {
	return func(o *Odometer) {
		o.scheduler = s
	}
}

// WithoutScheduler creates an odometer that only updates when its owner calls
// Tick. Start and Stop do nothing.
func WithoutScheduler() Option {
	return func(o *Odometer) {
		o.noScheduler = true
	}
}

func New(enc encoder.Source, cfg Config, opts ...Option) (*Odometer, error) {
	if enc == nil {
		return nil, errors.New("odometer needs an encoder source")
	}
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, err
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	o := &Odometer{
		enc:      enc,
		geometry: cfg.Geometry,
		interval: interval,
		log:      zap.NewNop().Sugar(),
		pose:     InitialPose,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.noScheduler {
		o.scheduler = nil
	} else if o.scheduler == nil {
		o.scheduler = timer.New(interval, o.Tick,
			timer.WithLogger(o.log.Named("timer")),
			timer.WithErrorHandler(func(err error) {
				o.log.Warnw("Odometer tick failed, pose not updated", "error", err)
			}))
	}

	o.log.Infow("Odometer created",
		"geometry", cfg.Geometry,
		"interval", interval,
		"scheduled", o.scheduler != nil,
		"autostart", cfg.AutoStart)
	if cfg.AutoStart {
		o.Start()
	}
	return o, nil
}

// Start begins periodic sampling.
func (o *Odometer) Start() {
	if o.scheduler == nil {
		return
	}
	o.scheduler.Start()
}

// Stop halts periodic sampling. A tick that has already begun completes.
func (o *Odometer) Stop() {
	if o.scheduler == nil {
		return
	}
	o.scheduler.Stop()
}

func (o *Odometer) Running() bool {
	if o.scheduler == nil {
		return false
	}
	return o.scheduler.Running()
}

func (o *Odometer) Interval() time.Duration {
	return o.interval
}

func (o *Odometer) Encoder() encoder.Source {
	return o.enc
}

// Tick reads the encoders and folds the motion since the previous tick into
// the pose. If either encoder can't be read the pose is left untouched and
// the *encoder.AccessError is returned.
func (o *Odometer) Tick() error {
	left, err := o.enc.LeftCount()
	if err != nil {
		return wrapAccessError(err, encoder.Left)
	}
	right, err := o.enc.RightCount()
	if err != nil {
		return wrapAccessError(err, encoder.Right)
	}

	dDisplacement := o.geometry.Displacement(left, right) - o.lastDisplacement
	dRotation := o.geometry.Rotation(left, right) - o.lastRotation

	o.poseLock.Lock()
	// The new heading sets the direction of this tick's travel.
	o.pose.Theta = angle.Normalize(o.pose.Theta + angle.Degrees(dRotation))
	thetaRad := angle.Radians(o.pose.Theta)
	o.pose.X += dDisplacement * math.Cos(thetaRad)
	o.pose.Y += dDisplacement * math.Sin(thetaRad)
	o.poseLock.Unlock()

	o.lastDisplacement += dDisplacement
	o.lastRotation += dRotation
	return nil
}

func wrapAccessError(err error, w encoder.Wheel) error {
	var accessErr *encoder.AccessError
	if errors.As(err, &accessErr) {
		return err
	}
	return &encoder.AccessError{Wheel: w, Err: err}
}

func (o *Odometer) X() float64 {
	o.poseLock.Lock()
	defer o.poseLock.Unlock()
	return o.pose.X
}

func (o *Odometer) Y() float64 {
	o.poseLock.Lock()
	defer o.poseLock.Unlock()
	return o.pose.Y
}

// Heading returns the current heading in degrees, [0, 360).
func (o *Odometer) Heading() float64 {
	o.poseLock.Lock()
	defer o.poseLock.Unlock()
	return o.pose.Theta
}

// Pose returns x, y and heading as read at a single instant.
func (o *Odometer) Pose() Pose {
	o.poseLock.Lock()
	defer o.poseLock.Unlock()
	return o.pose
}

func (o *Odometer) ArrayPose() [3]float64 {
	return o.Pose().Array()
}

func (o *Odometer) SetX(x float64) {
	o.poseLock.Lock()
	defer o.poseLock.Unlock()
	o.pose.X = x
}

func (o *Odometer) SetY(y float64) {
	o.poseLock.Lock()
	defer o.poseLock.Unlock()
	o.pose.Y = y
}

// SetPose overwrites x, y and theta (in that order in values) wherever the
// matching update flag is set.
func (o *Odometer) SetPose(values [3]float64, update [3]bool) {
	o.poseLock.Lock()
	defer o.poseLock.Unlock()
	if update[0] {
		o.pose.X = values[0]
	}
	if update[1] {
		o.pose.Y = values[1]
	}
	if update[2] {
		o.pose.Theta = angle.Normalize(values[2])
	}
	o.log.Debugw("Pose set", "pose", o.pose, "update", update)
}

// CorrectHeading adds delta degrees to the heading, for use by a localizer
// that has measured the accumulated heading error.
func (o *Odometer) CorrectHeading(delta float64) {
	o.poseLock.Lock()
	defer o.poseLock.Unlock()
	o.pose.Theta = angle.Normalize(o.pose.Theta + delta)
	o.log.Debugw("Heading corrected", "delta", delta, "heading", o.pose.Theta)
}
