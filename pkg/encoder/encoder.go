package encoder

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Source supplies cumulative wheel encoder counts since the hardware was
// reset. Reads are expected to be fast compared with the odometer's sampling
// interval.
type Source interface {
	LeftCount() (int64, error)
	RightCount() (int64, error)
}

type SourceCloser interface {
	Source
	io.Closer
}

type Wheel int

const (
	Left Wheel = iota
	Right
)

func (w Wheel) String() string {
	switch w {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("wheel(%d)", int(w))
}

// PerWheel holds one value for each drive wheel, indexed by Wheel.
type PerWheel[T any] [2]T

// AccessError reports that the encoder hardware for one wheel could not be
// read.
type AccessError struct {
	Wheel Wheel
	Err   error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("failed to read %v encoder: %v", e.Wheel, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

type Config struct {
	// One of "dummy", "i2c", "spi" or "serial".
	Type string `yaml:"type" env:"ODOM_ENCODER"`

	// I2C bus, serial port or (for SPI) the left counter's device.
	Device      string `yaml:"device" env:"ODOM_ENCODER_DEVICE"`
	RightDevice string `yaml:"right_device" env:"ODOM_ENCODER_RIGHT_DEVICE"`

	Addr    int `yaml:"addr" env:"ODOM_ENCODER_ADDR"`
	MuxPort int `yaml:"mux_port" env:"ODOM_ENCODER_MUX_PORT"`

	Baud    int           `yaml:"baud" env:"ODOM_ENCODER_BAUD"`
	Timeout time.Duration `yaml:"timeout" env:"ODOM_ENCODER_TIMEOUT"`

	// Set when a wheel's encoder counts down while the robot drives forwards.
	InvertLeft  bool `yaml:"invert_left" env:"ODOM_ENCODER_INVERT_LEFT"`
	InvertRight bool `yaml:"invert_right" env:"ODOM_ENCODER_INVERT_RIGHT"`
}

func DefaultConfig() Config {
	return Config{
		Type:        "dummy",
		Device:      "/dev/i2c-1",
		RightDevice: "/dev/spidev0.1",
		Addr:        MotorBoardAddr,
		MuxPort:     NoMuxPort,
		Baud:        115200,
		Timeout:     50 * time.Millisecond,
	}
}

// Open creates the encoder source described by cfg.
func Open(cfg Config, log *zap.SugaredLogger) (SourceCloser, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var (
		src SourceCloser
		err error
	)
	switch cfg.Type {
	case "dummy", "":
		log.Infow("Using dummy encoders")
		src = NewDummy()
	case "i2c":
		log.Infow("Opening I2C encoders", "device", cfg.Device, "addr", cfg.Addr, "muxPort", cfg.MuxPort)
		src, err = NewI2C(cfg.Device, cfg.Addr, cfg.MuxPort)
	case "spi":
		log.Infow("Opening SPI encoders", "left", cfg.Device, "right", cfg.RightDevice)
		src, err = NewSPI(cfg.Device, cfg.RightDevice)
	case "serial":
		log.Infow("Opening serial encoders", "port", cfg.Device, "baud", cfg.Baud)
		src, err = NewSerial(cfg.Device, cfg.Baud, cfg.Timeout)
	default:
		return nil, errors.Errorf("unknown encoder type %q", cfg.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s encoders", cfg.Type)
	}
	if cfg.InvertLeft || cfg.InvertRight {
		src = Inverted(src, cfg.InvertLeft, cfg.InvertRight)
	}
	return src, nil
}

type inverted struct {
	SourceCloser
	sign PerWheel[int64]
}

// Inverted flips the sign of the selected wheels' counts.
func Inverted(src SourceCloser, left, right bool) SourceCloser {
	inv := &inverted{SourceCloser: src, sign: PerWheel[int64]{1, 1}}
	if left {
		inv.sign[Left] = -1
	}
	if right {
		inv.sign[Right] = -1
	}
	return inv
}

func (i *inverted) LeftCount() (int64, error) {
	c, err := i.SourceCloser.LeftCount()
	return c * i.sign[Left], err
}

func (i *inverted) RightCount() (int64, error) {
	c, err := i.SourceCloser.RightCount()
	return c * i.sign[Right], err
}
