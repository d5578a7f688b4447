package encoder

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

var ErrTimeout = errors.New("timed out waiting for encoder reply")

type serialPort interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

// SerialSource talks to a microcontroller that keeps the encoder counts. Each
// query is a single command letter ('L' or 'R') and a newline; the reply is
// the decimal count followed by a newline.
type SerialSource struct {
	lock    sync.Mutex
	port    serialPort
	timeout time.Duration
}

var _ SourceCloser = (*SerialSource)(nil)

func NewSerial(portName string, baud int, timeout time.Duration) (*SerialSource, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}
	// Short reads let us enforce our own per-query deadline.
	if err := port.SetReadTimeout(10 * time.Millisecond); err != nil {
		_ = port.Close()
		return nil, err
	}
	return newSerialSource(port, timeout), nil
}

func newSerialSource(port serialPort, timeout time.Duration) *SerialSource {
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	return &SerialSource{port: port, timeout: timeout}
}

func (s *SerialSource) LeftCount() (int64, error) {
	return s.query(Left, 'L')
}

func (s *SerialSource) RightCount() (int64, error) {
	return s.query(Right, 'R')
}

func (s *SerialSource) query(w Wheel, cmd byte) (int64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	// Drop any half-read reply left over from a previous timeout.
	if err := s.port.ResetInputBuffer(); err != nil {
		return 0, &AccessError{Wheel: w, Err: err}
	}
	if _, err := s.port.Write([]byte{cmd, '\n'}); err != nil {
		return 0, &AccessError{Wheel: w, Err: err}
	}
	line, err := s.readLine()
	if err != nil {
		return 0, &AccessError{Wheel: w, Err: err}
	}
	count, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil {
		return 0, &AccessError{Wheel: w, Err: errors.Wrapf(err, "bad reply %q", line)}
	}
	return count, nil
}

func (s *SerialSource) readLine() (string, error) {
	deadline := time.Now().Add(s.timeout)
	var line []byte
	var buf [32]byte
	for time.Now().Before(deadline) {
		n, err := s.port.Read(buf[:])
		if err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			if b == '\n' {
				return string(line), nil
			}
			line = append(line, b)
		}
	}
	return "", ErrTimeout
}

func (s *SerialSource) Close() error {
	return s.port.Close()
}
