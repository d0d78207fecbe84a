package sequence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/rover/pkg/drive"
	"github.com/gwillem/rover/pkg/kinematics"
)

// State is the engine's position in its lifecycle.
type State string

const (
	Idle      State = "idle"      // no movements queued
	Building  State = "building"  // movements being appended
	Ready     State = "ready"     // sequence closed, can run or re-run
	Executing State = "executing" // dispatching movements
)

// SettleDelay is the pause between consecutive movement dispatches, giving
// the base time to come to rest.
const SettleDelay = 500 * time.Millisecond

// EventKind identifies an execution event.
type EventKind string

const (
	MovementStarted EventKind = "started"
	MovementDone    EventKind = "done"
	MovementFailed  EventKind = "failed"
	RunFinished     EventKind = "finished"
)

// Event reports execution progress to observers.
type Event struct {
	Kind     EventKind
	Index    int // 1-based position in the sequence, 0 for RunFinished
	Total    int
	Movement Movement
	Budget   time.Duration // computed time budget for this movement
	Elapsed  time.Duration // wall time, set on done/failed/finished
	Err      error
}

// DispatchError reports which movement failed and why. The engine performs
// its stop-and-abort cleanup before returning one.
type DispatchError struct {
	Index    int // 1-based
	Movement Movement
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("movement %d (%s): %v", e.Index, e.Movement, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Engine owns one actuator and one movement sequence for its lifetime. All
// execution is strictly sequential; the engine is the actuator's sole
// mutator.
type Engine struct {
	actuator   drive.Actuator
	turnRadius float64
	settle     time.Duration

	mu        sync.Mutex
	state     State
	movements []Movement

	eventCh chan Event
	logCh   chan string
}

// Config holds configuration for the engine.
type Config struct {
	Actuator   drive.Actuator
	TurnRadius float64       // arc radius for left/right moves, 0 pivots in place
	Settle     time.Duration // delay between dispatches, defaults to SettleDelay
}

// NewEngine creates an engine in the Idle state.
func NewEngine(cfg Config) *Engine {
	if cfg.Settle <= 0 {
		cfg.Settle = SettleDelay
	}
	return &Engine{
		actuator:   cfg.Actuator,
		turnRadius: cfg.TurnRadius,
		settle:     cfg.Settle,
		state:      Idle,
		eventCh:    make(chan Event, 16),
		logCh:      make(chan string, 10),
	}
}

// Events returns a channel that receives execution progress events.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Logs returns a channel that receives log messages.
func (e *Engine) Logs() <-chan string {
	return e.logCh
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Len returns the number of queued movements.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.movements)
}

// Movements returns a copy of the queued movements in execution order.
func (e *Engine) Movements() []Movement {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Movement, len(e.movements))
	copy(out, e.movements)
	return out
}

// Add validates and appends a movement, returning its 1-based position.
// Legal from Idle (starts a new sequence) and Building.
func (e *Engine) Add(dir drive.Direction, speedFactor, magnitude float64) (int, error) {
	m := Movement{Dir: dir, SpeedFactor: speedFactor, Magnitude: magnitude}
	if err := m.Validate(); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Idle && e.state != Building {
		return 0, fmt.Errorf("cannot add movement while %s", e.state)
	}
	e.movements = append(e.movements, m)
	e.state = Building
	e.log("Queued #%d: %s", len(e.movements), m)
	return len(e.movements), nil
}

// Finish closes the sequence for editing. Legal only from Building.
func (e *Engine) Finish() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Building {
		return fmt.Errorf("no open sequence to finish (state %s)", e.state)
	}
	e.state = Ready
	e.log("Sequence closed with %d movement(s)", len(e.movements))
	return nil
}

// Clear discards all movements. Legal only from Ready and Idle.
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Ready && e.state != Idle {
		return fmt.Errorf("cannot clear while %s", e.state)
	}
	e.movements = nil
	e.state = Idle
	e.log("Sequence cleared")
	return nil
}

// EstimateTotalTime returns the sum of every movement's computed time
// budget. It does not include settle delays and dispatches nothing.
func (e *Engine) EstimateTotalTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total float64
	for _, m := range e.movements {
		total += m.Duration()
	}
	return time.Duration(total * float64(time.Second))
}

// Execute dispatches all movements strictly in order. Each movement's time
// budget is recomputed at dispatch, never cached across runs.
//
// On the first dispatch error the actuator is stopped, the remaining
// movements are abandoned, and a *DispatchError reporting the failing index
// is returned. Cancellation of ctx likewise stops the actuator before the
// error is returned. The sequence itself is never mutated by execution; a
// completed run returns the engine to Ready for replay.
func (e *Engine) Execute(ctx context.Context) error {
	e.mu.Lock()
	if len(e.movements) == 0 {
		e.mu.Unlock()
		e.log("Nothing to execute")
		return nil
	}
	if e.state != Ready {
		e.mu.Unlock()
		return fmt.Errorf("sequence not ready to execute (state %s)", e.state)
	}
	e.state = Executing
	movements := make([]Movement, len(e.movements))
	copy(movements, e.movements)
	e.mu.Unlock()

	runStart := time.Now()
	total := len(movements)
	e.log("Executing %d movement(s)", total)

	for i, m := range movements {
		idx := i + 1
		budget := m.Duration()
		budgetDur := time.Duration(budget * float64(time.Second))

		e.send(Event{Kind: MovementStarted, Index: idx, Total: total, Movement: m, Budget: budgetDur})
		e.log("[%d/%d] %s (%.2fs budget)", idx, total, m, budget)

		start := time.Now()
		if err := e.dispatch(ctx, m, budget); err != nil {
			e.stopAndReport(idx, total, m, time.Since(start), err)
			return &DispatchError{Index: idx, Movement: m, Err: err}
		}
		e.send(Event{Kind: MovementDone, Index: idx, Total: total, Movement: m, Budget: budgetDur, Elapsed: time.Since(start)})

		// Settle before the next dispatch.
		if i < total-1 {
			if err := sleepCtx(ctx, e.settle); err != nil {
				e.stopAndReport(idx, total, m, time.Since(start), err)
				return &DispatchError{Index: idx, Movement: m, Err: err}
			}
		}
	}

	// Bring the base to a definite rest before handing it back.
	if err := e.actuator.Stop(context.Background()); err != nil {
		e.log("Warning: stop after run: %v", err)
	}

	e.mu.Lock()
	e.state = Ready
	e.mu.Unlock()

	e.send(Event{Kind: RunFinished, Total: total, Elapsed: time.Since(runStart)})
	e.log("Run complete in %.1fs", time.Since(runStart).Seconds())
	return nil
}

// Replay re-executes the sequence after a prior run. The dispatch stream is
// identical to the original Execute, with freshly recomputed time budgets.
func (e *Engine) Replay(ctx context.Context) error {
	return e.Execute(ctx)
}

func (e *Engine) dispatch(ctx context.Context, m Movement, budgetSeconds float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.Dir.Linear() {
		meters := kinematics.MetersFromInches(m.Magnitude)
		return e.actuator.MoveLinear(ctx, m.Dir, m.SpeedFactor, meters, e.turnRadius, budgetSeconds)
	}
	return e.actuator.Rotate(ctx, m.Magnitude, m.SpeedFactor, budgetSeconds)
}

// stopAndReport is the single cleanup path for failed or interrupted runs:
// stop the actuator, then surface the failure. Stop uses a fresh context so
// cancellation of the run context cannot skip the cleanup.
func (e *Engine) stopAndReport(idx, total int, m Movement, elapsed time.Duration, cause error) {
	if err := e.actuator.Stop(context.Background()); err != nil {
		e.log("Warning: stop after failure: %v", err)
	}

	e.mu.Lock()
	e.state = Ready
	e.mu.Unlock()

	e.send(Event{Kind: MovementFailed, Index: idx, Total: total, Movement: m, Elapsed: elapsed, Err: cause})
	e.log("Movement %d failed: %v; sequence aborted", idx, cause)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case e.logCh <- msg:
	default:
		// Drop if channel full
	}
}

func (e *Engine) send(ev Event) {
	select {
	case e.eventCh <- ev:
	default:
		// Drop oldest event if channel full, replace with new
		select {
		case <-e.eventCh:
		default:
		}
		e.eventCh <- ev
	}
}
