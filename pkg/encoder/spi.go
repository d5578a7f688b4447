package encoder

import (
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// LS7366R quadrature counter op-codes.
const (
	opClear = 0x00
	opRead  = 0x40
	opWrite = 0x80

	regMDR0 = 0x08
	regMDR1 = 0x10
	regCNTR = 0x20

	mdr0Quad4x = 0x03 // x4 quadrature, free-running, index disabled
	mdr1Bytes4 = 0x00 // 4-byte counter, counting enabled
)

type spiConn interface {
	Tx(w, r []byte) error
}

// SPISource reads a pair of LS7366R 32-bit quadrature counters, one per
// wheel.
type SPISource struct {
	lock    sync.Mutex
	conns   PerWheel[spiConn]
	closers []func() error

	w, r [5]byte
}

var _ SourceCloser = (*SPISource)(nil)

func NewSPI(leftDev, rightDev string) (*SPISource, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, err
	}

	s := &SPISource{}
	devs := PerWheel[string]{leftDev, rightDev}
	for w, dev := range devs {
		p, err := spireg.Open(dev)
		if err != nil {
			_ = s.Close()
			return nil, errors.Wrapf(err, "failed to open %v counter", Wheel(w))
		}
		s.closers = append(s.closers, p.Close)

		c, err := p.Connect(physic.MegaHertz, spi.Mode0, 8)
		if err != nil {
			_ = s.Close()
			return nil, errors.Wrapf(err, "failed to connect to %v counter", Wheel(w))
		}
		s.conns[w] = c
	}
	if err := s.Configure(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func newSPISource(left, right spiConn) *SPISource {
	return &SPISource{conns: PerWheel[spiConn]{left, right}}
}

// Configure puts both counters into x4 quadrature mode and zeroes them.
func (s *SPISource) Configure() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for w, c := range s.conns {
		for _, cmd := range [][]byte{
			{opWrite | regMDR0, mdr0Quad4x},
			{opWrite | regMDR1, mdr1Bytes4},
			{opClear | regCNTR},
		} {
			if err := c.Tx(cmd, make([]byte, len(cmd))); err != nil {
				return &AccessError{Wheel: Wheel(w), Err: errors.Wrap(err, "failed to configure counter")}
			}
		}
	}
	return nil
}

func (s *SPISource) LeftCount() (int64, error) {
	return s.read(Left)
}

func (s *SPISource) RightCount() (int64, error) {
	return s.read(Right)
}

func (s *SPISource) read(w Wheel) (int64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.w = [5]byte{opRead | regCNTR}
	s.r = [5]byte{}
	if err := s.conns[w].Tx(s.w[:], s.r[:]); err != nil {
		return 0, &AccessError{Wheel: w, Err: err}
	}
	// The counter clocks out on the bytes after the op-code.
	return int64(int32(binary.BigEndian.Uint32(s.r[1:]))), nil
}

func (s *SPISource) Close() error {
	var err error
	for _, c := range s.closers {
		if cErr := c(); cErr != nil {
			err = cErr
		}
	}
	s.closers = nil
	return err
}
