package drive

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Base is a differential-drive Actuator with one Feetech STS servo per
// wheel. Wheel servos must be configured for multi-turn position mode.
//
// Motion is time-driven: each command converts travel to encoder counts and
// issues a timed position write with the caller's time budget, then blocks
// until the budget elapses or ctx is cancelled.
type Base struct {
	bus   *feetech.Bus
	left  *feetech.Servo
	right *feetech.Servo
	cfg   *Config
}

// NewBase opens the serial bus and connects to both wheel servos.
func NewBase(cfg *Config) (*Base, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	lo, hi := cfg.Wheels.LeftID, cfg.Wheels.RightID
	if lo > hi {
		lo, hi = hi, lo
	}
	found, err := bus.Scan(context.Background(), lo, hi)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan bus: %w", err)
	}

	models := make(map[int]*feetech.Model, len(found))
	for _, s := range found {
		models[s.ID] = s.Model
	}
	for _, id := range []int{cfg.Wheels.LeftID, cfg.Wheels.RightID} {
		if _, ok := models[id]; !ok {
			bus.Close()
			return nil, fmt.Errorf("wheel servo %d not found on %s", id, cfg.Port)
		}
	}

	return &Base{
		bus:   bus,
		left:  feetech.NewServo(bus, cfg.Wheels.LeftID, models[cfg.Wheels.LeftID]),
		right: feetech.NewServo(bus, cfg.Wheels.RightID, models[cfg.Wheels.RightID]),
		cfg:   cfg,
	}, nil
}

// Close disables torque and closes the bus connection.
func (b *Base) Close() error {
	ctx := context.Background()
	b.left.Disable(ctx)
	b.right.Disable(ctx)
	return b.bus.Close()
}

// Enable enables torque on both wheels.
func (b *Base) Enable(ctx context.Context) error {
	if err := b.left.Enable(ctx); err != nil {
		return fmt.Errorf("enable left wheel: %w", err)
	}
	if err := b.right.Enable(ctx); err != nil {
		return fmt.Errorf("enable right wheel: %w", err)
	}
	return nil
}

// MoveLinear drives the base for distanceMeters in the given direction. The
// speed factor is already folded into timeSeconds by the caller; the servos
// pace the move to fill the budget.
func (b *Base) MoveLinear(ctx context.Context, dir Direction, speedFactor, distanceMeters, turnRadiusMeters, timeSeconds float64) error {
	if !dir.Linear() {
		return fmt.Errorf("not a linear direction: %q", dir)
	}

	var leftM, rightM float64
	switch dir {
	case Forward:
		leftM, rightM = distanceMeters, distanceMeters
	case Backward:
		leftM, rightM = -distanceMeters, -distanceMeters
	default:
		leftM, rightM = b.arcTravel(dir, distanceMeters, turnRadiusMeters)
	}

	return b.run(ctx, leftM, rightM, timeSeconds)
}

// Rotate spins the base in place through angleDegrees. Positive angles turn
// clockwise (left wheel forward).
func (b *Base) Rotate(ctx context.Context, angleDegrees, speedFactor, timeSeconds float64) error {
	// Each wheel travels along a circle of diameter trackWidth.
	arc := math.Abs(angleDegrees) / 360.0 * math.Pi * b.cfg.Geometry.TrackWidth
	if angleDegrees >= 0 {
		return b.run(ctx, arc, -arc, timeSeconds)
	}
	return b.run(ctx, -arc, arc, timeSeconds)
}

// Stop halts both wheels by re-targeting them to their current positions.
// A read failure on one wheel does not prevent stopping the other.
func (b *Base) Stop(ctx context.Context) error {
	var errs []error
	for _, s := range []*feetech.Servo{b.left, b.right} {
		pos, err := s.Position(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.SetPosition(ctx, pos); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("stop errors: %v", errs)
	}
	return nil
}

// arcTravel converts an arc move into per-wheel travel in meters. A turn
// radius of 0 pivots about the base center, counter-rotating the wheels over
// the commanded distance.
func (b *Base) arcTravel(dir Direction, d, r float64) (leftM, rightM float64) {
	half := b.cfg.Geometry.TrackWidth / 2
	var inner, outer float64
	if r <= 0 {
		inner, outer = -d, d
	} else {
		theta := d / r
		inner = theta * (r - half)
		outer = theta * (r + half)
	}
	if dir == Left {
		return inner, outer
	}
	return outer, inner
}

// run issues timed position writes for the given per-wheel travel, then
// blocks for the time budget.
func (b *Base) run(ctx context.Context, leftM, rightM float64, timeSeconds float64) error {
	leftPos, err := b.left.Position(ctx)
	if err != nil {
		return fmt.Errorf("read left wheel: %w", err)
	}
	rightPos, err := b.right.Position(ctx)
	if err != nil {
		return fmt.Errorf("read right wheel: %w", err)
	}

	leftDelta := b.countsForMeters(leftM)
	rightDelta := b.countsForMeters(rightM)
	if b.cfg.Geometry.InvertRightWheel {
		rightDelta = -rightDelta
	}

	moveTimeMs := int(timeSeconds * 1000)
	if err := b.left.SetPositionWithTime(ctx, leftPos+leftDelta, moveTimeMs); err != nil {
		return fmt.Errorf("command left wheel: %w", err)
	}
	if err := b.right.SetPositionWithTime(ctx, rightPos+rightDelta, moveTimeMs); err != nil {
		return fmt.Errorf("command right wheel: %w", err)
	}

	timer := time.NewTimer(time.Duration(timeSeconds * float64(time.Second)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// countsForMeters converts wheel travel in meters to encoder counts.
func (b *Base) countsForMeters(m float64) int {
	circumference := math.Pi * b.cfg.Geometry.WheelDiameter
	counts := b.cfg.Geometry.CountsPerTurn
	if counts == 0 {
		counts = DefaultCountsPerTurn
	}
	return int(math.Round(m / circumference * float64(counts)))
}
