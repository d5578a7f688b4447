package encoder

import (
	"sync"
)

// Dummy is an in-memory encoder source for tests and for running without
// hardware. Counts only change when the owner moves them.
type Dummy struct {
	lock   sync.Mutex
	counts PerWheel[int64]
	err    error
}

var _ SourceCloser = (*Dummy)(nil)

func NewDummy() *Dummy {
	return &Dummy{}
}

func (d *Dummy) LeftCount() (int64, error) {
	return d.get(Left)
}

func (d *Dummy) RightCount() (int64, error) {
	return d.get(Right)
}

func (d *Dummy) get(w Wheel) (int64, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.err != nil {
		return 0, &AccessError{Wheel: w, Err: d.err}
	}
	return d.counts[w], nil
}

func (d *Dummy) Set(left, right int64) {
	d.lock.Lock()
	d.counts = PerWheel[int64]{left, right}
	d.lock.Unlock()
}

// Move adds the given number of counts to each wheel.
func (d *Dummy) Move(left, right int64) {
	d.lock.Lock()
	d.counts[Left] += left
	d.counts[Right] += right
	d.lock.Unlock()
}

// Fail makes every subsequent read return err; nil clears the failure.
func (d *Dummy) Fail(err error) {
	d.lock.Lock()
	d.err = err
	d.lock.Unlock()
}

func (d *Dummy) Close() error {
	return nil
}
