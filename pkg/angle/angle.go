package angle

import "math"

// Normalize maps an angle in degrees of any magnitude into [0, 360).
// Negative angles wrap upwards, so Normalize(-90) == 270.
func Normalize(a float64) float64 {
	d := math.Mod(a, 360)
	if d < 0 {
		d += 360
	}
	// -1e-20 + 360 rounds to exactly 360.
	if d >= 360 {
		d -= 360
	}
	if d == 0 {
		// Never -0.
		return 0
	}
	return d
}

// MinimalSignedDifference returns the signed rotation in degrees that takes
// heading a to heading b the short way round, in range (-180, 180].
// Positive is anticlockwise.
func MinimalSignedDifference(a, b float64) float64 {
	return FromFloat(b - a).Float()
}

func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// PlusMinus180 is an angle in degrees, stored as a value in range (-180, 180].
// All operations clamp their output into range.
type PlusMinus180 struct {
	float64
}

func (a PlusMinus180) Add(b PlusMinus180) PlusMinus180 {
	return FromFloat(a.float64 + b.float64)
}

func (a PlusMinus180) Sub(b PlusMinus180) PlusMinus180 {
	return FromFloat(a.float64 - b.float64)
}

func (a PlusMinus180) AddFloat(f float64) PlusMinus180 {
	return FromFloat(a.float64 + f)
}

func (a PlusMinus180) SubFloat(f float64) PlusMinus180 {
	return FromFloat(a.float64 - f)
}

// Float returns the angle in degrees, range (-180, 180].
func (a PlusMinus180) Float() float64 {
	return a.float64
}

// Heading returns the same angle as a compass-style heading in [0, 360).
func (a PlusMinus180) Heading() float64 {
	return Normalize(a.float64)
}

// FromFloat converts a float of any magnitude to a PlusMinus180 by calculating
// f mod 360 and shifting into range.
func FromFloat(f float64) PlusMinus180 {
	d := math.Mod(f, 360)
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return PlusMinus180{d}
}
