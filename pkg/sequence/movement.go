// Package sequence builds and executes ordered movement sequences on a
// differential-drive base.
package sequence

import (
	"fmt"

	"github.com/gwillem/rover/pkg/drive"
	"github.com/gwillem/rover/pkg/kinematics"
)

// Movement is one queued drive command. For linear directions Magnitude is a
// distance in inches; for rotation it is a signed angle in degrees, where the
// sign picks the turn direction. Movements are immutable once appended.
type Movement struct {
	Dir         drive.Direction
	SpeedFactor float64
	Magnitude   float64
}

// Validate checks the movement against the commandable domain: speed factor
// in [0.1, 1.0], linear distance strictly positive, rotation angle non-zero.
func (m Movement) Validate() error {
	if !m.Dir.Valid() {
		return fmt.Errorf("unknown direction %q", m.Dir)
	}
	if m.SpeedFactor < kinematics.MinSpeedFactor || m.SpeedFactor > 1.0 {
		return fmt.Errorf("speed factor %.2f out of range [%.1f, 1.0]", m.SpeedFactor, kinematics.MinSpeedFactor)
	}
	if m.Dir.Linear() {
		if m.Magnitude <= 0 {
			return fmt.Errorf("distance must be positive, got %.2f", m.Magnitude)
		}
	} else if m.Magnitude == 0 {
		return fmt.Errorf("rotation angle must be non-zero")
	}
	return nil
}

// Duration returns the bounded execution time in seconds for this movement.
func (m Movement) Duration() float64 {
	if m.Dir.Linear() {
		return kinematics.LinearTime(m.Magnitude, m.SpeedFactor)
	}
	return kinematics.RotationalTime(m.Magnitude, m.SpeedFactor)
}

// String renders the movement in operator units.
func (m Movement) String() string {
	if m.Dir.Linear() {
		return fmt.Sprintf("%s %.1fin at %.0f%%", m.Dir, m.Magnitude, m.SpeedFactor*100)
	}
	return fmt.Sprintf("rotate %.1f° at %.0f%%", m.Magnitude, m.SpeedFactor*100)
}
