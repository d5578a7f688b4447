package chassis

import (
	"math"

	"github.com/pkg/errors"
)

const (
	WheelDiameterMM float64 = 70
	WheelRadiusMM           = WheelDiameterMM / 2
	WheelCircumMM           = WheelDiameterMM * math.Pi

	// Distance between the contact patches of the left and right wheels.
	TrackWidthMM float64 = 170

	// Motor tachometers report wheel rotation in degrees.
	EncoderCountsPerRev float64 = 360
)

var ErrInvalidGeometry = errors.New("invalid robot geometry")

// Geometry describes the parts of a differential-drive chassis that the
// odometer needs to turn encoder counts into motion.
type Geometry struct {
	LeftWheelRadiusMM  float64 `yaml:"left_wheel_radius_mm" env:"ODOM_LEFT_WHEEL_RADIUS_MM"`
	RightWheelRadiusMM float64 `yaml:"right_wheel_radius_mm" env:"ODOM_RIGHT_WHEEL_RADIUS_MM"`
	TrackWidthMM       float64 `yaml:"track_width_mm" env:"ODOM_TRACK_WIDTH_MM"`
	CountsPerRev       float64 `yaml:"counts_per_rev" env:"ODOM_COUNTS_PER_REV"`
}

func DefaultGeometry() Geometry {
	return Geometry{
		LeftWheelRadiusMM:  WheelRadiusMM,
		RightWheelRadiusMM: WheelRadiusMM,
		TrackWidthMM:       TrackWidthMM,
		CountsPerRev:       EncoderCountsPerRev,
	}
}

// Validate rejects geometry that would make the odometer divide by zero or
// integrate NaN/Inf.
func (g Geometry) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"left wheel radius", g.LeftWheelRadiusMM},
		{"right wheel radius", g.RightWheelRadiusMM},
		{"track width", g.TrackWidthMM},
		{"encoder counts per revolution", g.CountsPerRev},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value <= 0 {
			return errors.Wrapf(ErrInvalidGeometry, "%s must be positive and finite, got %v", f.name, f.value)
		}
	}
	return nil
}

// Displacement returns the distance in mm travelled by the centre of the
// robot for the given cumulative encoder counts.
func (g Geometry) Displacement(left, right int64) float64 {
	return (float64(left)*g.LeftWheelRadiusMM + float64(right)*g.RightWheelRadiusMM) * math.Pi / g.CountsPerRev
}

// Rotation returns the anticlockwise rotation of the robot in radians for the
// given cumulative encoder counts.
func (g Geometry) Rotation(left, right int64) float64 {
	return (float64(right)*g.RightWheelRadiusMM - float64(left)*g.LeftWheelRadiusMM) * 2 * math.Pi /
		(g.CountsPerRev * g.TrackWidthMM)
}
