package encoder

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
)

const (
	MotorBoardAddr = 0x42
	MuxAddr        = 0x70

	// NoMuxPort means the motor board is wired straight to the bus.
	NoMuxPort = -1
)

type Register byte

const (
	RegStatus Register = iota
	RegEncoderLeft
	RegEncoderRight
)

type i2cPort interface {
	ReadReg(reg byte, buf []byte) error
	Write(buf []byte) error
	Close() error
}

// I2CSource reads the motor board's 16-bit encoder registers and accumulates
// them into cumulative counts.
type I2CSource struct {
	lock sync.Mutex

	dev     i2cPort
	mux     i2cPort
	muxPort int

	acc Accumulator
}

var _ SourceCloser = (*I2CSource)(nil)

func NewI2C(deviceFile string, addr int, muxPort int) (*I2CSource, error) {
	bus := &i2c.Devfs{Dev: deviceFile}
	var mux i2cPort
	if muxPort != NoMuxPort {
		if muxPort < 0 || muxPort > 7 {
			return nil, errors.Errorf("mux port %d out of range", muxPort)
		}
		m, err := i2c.Open(bus, MuxAddr)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open mux")
		}
		mux = m
	}
	dev, err := i2c.Open(bus, addr)
	if err != nil {
		if mux != nil {
			_ = mux.Close()
		}
		return nil, errors.Wrap(err, "failed to open motor board")
	}
	return newI2CSource(dev, mux, muxPort), nil
}

func newI2CSource(dev, mux i2cPort, muxPort int) *I2CSource {
	return &I2CSource{
		dev:     dev,
		mux:     mux,
		muxPort: muxPort,
	}
}

func (s *I2CSource) LeftCount() (int64, error) {
	return s.read(Left, RegEncoderLeft)
}

func (s *I2CSource) RightCount() (int64, error) {
	return s.read(Right, RegEncoderRight)
}

func (s *I2CSource) read(w Wheel, reg Register) (int64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.mux != nil {
		if err := s.mux.Write([]byte{1 << uint(s.muxPort)}); err != nil {
			return 0, &AccessError{Wheel: w, Err: errors.Wrap(err, "failed to select mux port")}
		}
	}
	var buf [2]byte
	if err := s.dev.ReadReg(byte(reg), buf[:]); err != nil {
		return 0, &AccessError{Wheel: w, Err: err}
	}
	raw := int16(binary.BigEndian.Uint16(buf[:]))
	return s.acc.Update(w, raw), nil
}

func (s *I2CSource) Close() error {
	var err error
	if s.mux != nil {
		err = s.mux.Close()
	}
	if dErr := s.dev.Close(); dErr != nil {
		err = dErr
	}
	return err
}
