// Package drive provides the actuator contract for a differential-drive
// base and a concrete implementation over Feetech STS bus servos.
package drive

import "context"

// Direction identifies a drive command's heading.
type Direction string

// Drive directions. Left and Right are arc turns; Rotate spins in place.
const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Left     Direction = "left"
	Right    Direction = "right"
	Rotate   Direction = "rotate"
)

// Linear reports whether the direction is a linear move (magnitude is a
// distance rather than an angle).
func (d Direction) Linear() bool {
	return d == Forward || d == Backward || d == Left || d == Right
}

// Valid reports whether the direction is one of the known headings.
func (d Direction) Valid() bool {
	return d.Linear() || d == Rotate
}

// Actuator is the drive hardware consumed by the sequence engine. One engine
// owns one actuator exclusively for the process lifetime.
//
// Every motion carries an explicit time budget in seconds; implementations
// complete the motion within that budget or return an error. Stop is
// idempotent and always safe to call.
type Actuator interface {
	// MoveLinear drives the base in a linear direction for the given
	// distance in meters. Left and Right follow an arc about
	// turnRadiusMeters (0 pivots about the base center).
	MoveLinear(ctx context.Context, dir Direction, speedFactor, distanceMeters, turnRadiusMeters, timeSeconds float64) error

	// Rotate spins the base in place through angleDegrees; positive is
	// clockwise, negative counter-clockwise.
	Rotate(ctx context.Context, angleDegrees, speedFactor, timeSeconds float64) error

	// Stop brings the base to a halt.
	Stop(ctx context.Context) error
}
