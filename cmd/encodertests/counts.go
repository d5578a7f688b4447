package main

import "github.com/tigerbot-team/odometer/pkg/encoder"

// countsRecorder remembers the last counts the odometer read so we print
// exactly what it integrated.
type countsRecorder struct {
	encoder.Source
	left, right int64
}

func (c *countsRecorder) LeftCount() (int64, error) {
	l, err := c.Source.LeftCount()
	if err == nil {
		c.left = l
	}
	return l, err
}

func (c *countsRecorder) RightCount() (int64, error) {
	r, err := c.Source.RightCount()
	if err == nil {
		c.right = r
	}
	return r, err
}
