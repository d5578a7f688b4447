package odometer

import "fmt"

// Pose is a snapshot of the robot's position.
//
// The coordinate frame has 0° along the positive x-axis and 90° along the
// positive y-axis; headings increase anticlockwise and are kept in [0, 360).
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Theta float64 `json:"theta"`
}

// InitialPose is where the robot believes it is at power on: at the origin,
// facing up the y-axis.
var InitialPose = Pose{X: 0, Y: 0, Theta: 90}

// Array returns the pose as the triple {x, y, theta}.
func (p Pose) Array() [3]float64 {
	return [3]float64{p.X, p.Y, p.Theta}
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.1f, %.1f) %.1f°", p.X, p.Y, p.Theta)
}
