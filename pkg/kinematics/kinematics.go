// Package kinematics computes safe, bounded execution times for drive
// commands from a fixed motor-capability model.
//
// Commanding speed alone is unreliable at low speed factors on real
// hardware, so every motion gets an explicit time budget: base travel time
// inflated by a safety margin and capped at a hard maximum. This decouples
// "how fast" from "how long" and makes total sequence duration predictable.
package kinematics

import "math"

const (
	// InchesToMeters converts operator distances to SI.
	InchesToMeters = 0.0254

	// MaxLinearVelocity is the base's linear speed in m/s at speed factor 1.0.
	MaxLinearVelocity = 1.0

	// MaxAngularVelocity is the base's spin rate in deg/s at speed factor 1.0.
	MaxAngularVelocity = 360.0

	// MinSpeedFactor is the lowest commandable speed factor; below this the
	// motors stall or behave erratically.
	MinSpeedFactor = 0.1

	// MaxExecutionTime caps any single movement's time budget, in seconds.
	MaxExecutionTime = 60.0

	// TimeSafetyMargin inflates computed durations so slow moves are never
	// under-provisioned.
	TimeSafetyMargin = 1.2
)

// ClampSpeedFactor bounds a speed factor to [MinSpeedFactor, 1.0].
func ClampSpeedFactor(f float64) float64 {
	return math.Min(1.0, math.Max(MinSpeedFactor, f))
}

// MetersFromInches converts a distance in inches to meters.
func MetersFromInches(inches float64) float64 {
	return inches * InchesToMeters
}

// SpeedFactorFromPercent converts an operator speed percentage (0-100) to a
// speed factor in [0.0, 1.0], clamping out-of-range input.
func SpeedFactorFromPercent(percent float64) float64 {
	return math.Min(100, math.Max(0, percent)) / 100.0
}

// LinearTime returns the time budget in seconds for driving the given
// distance in inches at the given speed factor.
func LinearTime(distanceInches, speedFactor float64) float64 {
	velocity := ClampSpeedFactor(speedFactor) * MaxLinearVelocity
	base := MetersFromInches(distanceInches) / velocity
	return math.Min(base*TimeSafetyMargin, MaxExecutionTime)
}

// RotationalTime returns the time budget in seconds for spinning through the
// given angle in degrees at the given speed factor. The sign of the angle is
// ignored; turn direction is the actuator's concern.
func RotationalTime(angleDegrees, speedFactor float64) float64 {
	velocity := ClampSpeedFactor(speedFactor) * MaxAngularVelocity
	base := math.Abs(angleDegrees) / velocity
	return math.Min(base*TimeSafetyMargin, MaxExecutionTime)
}
