package drive

import (
	"context"
	"time"
)

// Sim is an Actuator with no hardware behind it, used for rehearsing
// sequences. It honors each command's time budget scaled down by TimeScale
// so a dry run finishes quickly but still shows real pacing.
type Sim struct {
	// TimeScale divides every time budget; 0 means 10x faster than real time.
	TimeScale float64
}

func (s *Sim) wait(ctx context.Context, timeSeconds float64) error {
	scale := s.TimeScale
	if scale <= 0 {
		scale = 10
	}
	timer := time.NewTimer(time.Duration(timeSeconds / scale * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MoveLinear pretends to drive for the scaled time budget.
func (s *Sim) MoveLinear(ctx context.Context, dir Direction, speedFactor, distanceMeters, turnRadiusMeters, timeSeconds float64) error {
	return s.wait(ctx, timeSeconds)
}

// Rotate pretends to spin for the scaled time budget.
func (s *Sim) Rotate(ctx context.Context, angleDegrees, speedFactor, timeSeconds float64) error {
	return s.wait(ctx, timeSeconds)
}

// Stop does nothing.
func (s *Sim) Stop(ctx context.Context) error {
	return nil
}
