package sequence

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/gwillem/rover/pkg/drive"
)

// dispatchCall records one actuator invocation for later assertions.
type dispatchCall struct {
	op        string // "linear" or "rotate"
	dir       drive.Direction
	speed     float64
	magnitude float64 // meters for linear, degrees for rotate
	budget    float64
}

// fakeActuator records dispatches and can be scripted to fail at a given
// 1-based dispatch number.
type fakeActuator struct {
	calls    []dispatchCall
	stops    int
	failAt   int
	failWith error
}

func (f *fakeActuator) MoveLinear(ctx context.Context, dir drive.Direction, speedFactor, distanceMeters, turnRadiusMeters, timeSeconds float64) error {
	f.calls = append(f.calls, dispatchCall{"linear", dir, speedFactor, distanceMeters, timeSeconds})
	if f.failAt == len(f.calls) {
		return f.failWith
	}
	return nil
}

func (f *fakeActuator) Rotate(ctx context.Context, angleDegrees, speedFactor, timeSeconds float64) error {
	f.calls = append(f.calls, dispatchCall{"rotate", drive.Rotate, speedFactor, angleDegrees, timeSeconds})
	if f.failAt == len(f.calls) {
		return f.failWith
	}
	return nil
}

func (f *fakeActuator) Stop(ctx context.Context) error {
	f.stops++
	return nil
}

func newTestEngine(act drive.Actuator) *Engine {
	return NewEngine(Config{Actuator: act, Settle: time.Millisecond})
}

func queueThree(t *testing.T, e *Engine) {
	t.Helper()
	steps := []struct {
		dir       drive.Direction
		speed     float64
		magnitude float64
	}{
		{drive.Forward, 1.0, 12},
		{drive.Rotate, 0.5, 90},
		{drive.Backward, 0.5, 6},
	}
	for i, s := range steps {
		pos, err := e.Add(s.dir, s.speed, s.magnitude)
		if err != nil {
			t.Fatalf("Add(%s) error: %v", s.dir, err)
		}
		if pos != i+1 {
			t.Fatalf("Add(%s) returned position %d, want %d", s.dir, pos, i+1)
		}
	}
	if err := e.Finish(); err != nil {
		t.Fatalf("Finish error: %v", err)
	}
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name      string
		dir       drive.Direction
		speed     float64
		magnitude float64
	}{
		{"speed too low", drive.Forward, 0.05, 12},
		{"speed too high", drive.Forward, 1.5, 12},
		{"zero distance", drive.Forward, 0.5, 0},
		{"negative distance", drive.Backward, 0.5, -3},
		{"zero rotation", drive.Rotate, 0.5, 0},
		{"unknown direction", drive.Direction("sideways"), 0.5, 12},
	}

	for _, tt := range tests {
		e := newTestEngine(&fakeActuator{})
		if _, err := e.Add(tt.dir, tt.speed, tt.magnitude); err == nil {
			t.Errorf("%s: Add accepted invalid movement", tt.name)
		}
		if e.Len() != 0 {
			t.Errorf("%s: rejected movement was stored", tt.name)
		}
		if e.State() != Idle {
			t.Errorf("%s: state = %s after rejected add, want idle", tt.name, e.State())
		}
	}
}

func TestAdd_NegativeRotationAllowed(t *testing.T) {
	e := newTestEngine(&fakeActuator{})
	if _, err := e.Add(drive.Rotate, 0.5, -90); err != nil {
		t.Fatalf("Add(rotate, -90) rejected: %v", err)
	}
}

func TestStateMachine_Transitions(t *testing.T) {
	e := newTestEngine(&fakeActuator{})

	if e.State() != Idle {
		t.Fatalf("new engine state = %s, want idle", e.State())
	}
	if err := e.Finish(); err == nil {
		t.Error("Finish from idle should fail")
	}

	e.Add(drive.Forward, 0.5, 10)
	if e.State() != Building {
		t.Fatalf("state after add = %s, want building", e.State())
	}
	if err := e.Clear(); err == nil {
		t.Error("Clear from building should fail")
	}

	if err := e.Finish(); err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	if e.State() != Ready {
		t.Fatalf("state after finish = %s, want ready", e.State())
	}
	if _, err := e.Add(drive.Forward, 0.5, 10); err == nil {
		t.Error("Add after finish should fail")
	}

	if err := e.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if e.State() != Idle || e.Len() != 0 {
		t.Fatalf("after clear: state %s len %d, want idle 0", e.State(), e.Len())
	}
}

func TestExecute_DispatchesInOrder(t *testing.T) {
	fake := &fakeActuator{}
	e := newTestEngine(fake)
	queueThree(t, e)

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if len(fake.calls) != 3 {
		t.Fatalf("got %d dispatches, want 3", len(fake.calls))
	}

	// Distances arrive in meters, budgets recomputed per the capability model.
	want := []dispatchCall{
		{"linear", drive.Forward, 1.0, 12 * 0.0254, 0.36576},
		{"rotate", drive.Rotate, 0.5, 90, 0.6},
		{"linear", drive.Backward, 0.5, 6 * 0.0254, 0.36576},
	}
	for i, w := range want {
		got := fake.calls[i]
		if got.op != w.op || got.dir != w.dir || got.speed != w.speed {
			t.Errorf("call %d = %+v, want %+v", i, got, w)
		}
		if math.Abs(got.magnitude-w.magnitude) > 1e-9 {
			t.Errorf("call %d magnitude = %f, want %f", i, got.magnitude, w.magnitude)
		}
		if math.Abs(got.budget-w.budget) > 1e-9 {
			t.Errorf("call %d budget = %f, want %f", i, got.budget, w.budget)
		}
	}

	if fake.stops != 1 {
		t.Errorf("stop called %d times after successful run, want 1", fake.stops)
	}
	if e.State() != Ready {
		t.Errorf("state after run = %s, want ready", e.State())
	}
}

func TestExecute_FailStop(t *testing.T) {
	cause := errors.New("bus timeout")
	fake := &fakeActuator{failAt: 2, failWith: cause}
	e := newTestEngine(fake)
	queueThree(t, e)

	err := e.Execute(context.Background())
	if err == nil {
		t.Fatal("Execute should fail when dispatch 2 fails")
	}

	var derr *DispatchError
	if !errors.As(err, &derr) {
		t.Fatalf("error type %T, want *DispatchError", err)
	}
	if derr.Index != 2 {
		t.Errorf("failing index = %d, want 2", derr.Index)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error %v does not wrap cause", err)
	}

	// Movement #1 ran, #3 was never dispatched, stop exactly once.
	if len(fake.calls) != 2 {
		t.Errorf("got %d dispatches, want 2", len(fake.calls))
	}
	if fake.stops != 1 {
		t.Errorf("stop called %d times, want exactly 1", fake.stops)
	}

	// Engine returns to Ready so the whole sequence can be retried.
	if e.State() != Ready {
		t.Errorf("state after failure = %s, want ready", e.State())
	}
	if e.Len() != 3 {
		t.Errorf("sequence length after failure = %d, want 3", e.Len())
	}
}

func TestExecute_EmptyIsNoOp(t *testing.T) {
	fake := &fakeActuator{}
	e := newTestEngine(fake)

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute on empty sequence should be a no-op, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("empty execute dispatched %d movements", len(fake.calls))
	}
	if e.State() != Idle {
		t.Errorf("state = %s, want idle", e.State())
	}
}

func TestExecute_OpenSequenceRejected(t *testing.T) {
	e := newTestEngine(&fakeActuator{})
	e.Add(drive.Forward, 0.5, 10)

	if err := e.Execute(context.Background()); err == nil {
		t.Error("Execute before Finish should fail")
	}
}

func TestExecute_CancellationStopsActuator(t *testing.T) {
	fake := &fakeActuator{}
	e := newTestEngine(fake)
	queueThree(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Execute(ctx)
	if err == nil {
		t.Fatal("Execute with cancelled context should fail")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v does not wrap context.Canceled", err)
	}
	if fake.stops != 1 {
		t.Errorf("stop called %d times on cancellation, want exactly 1", fake.stops)
	}
	if e.State() != Ready {
		t.Errorf("state after cancellation = %s, want ready", e.State())
	}
}

func TestReplay_SameDispatchStream(t *testing.T) {
	fake := &fakeActuator{}
	e := newTestEngine(fake)
	queueThree(t, e)

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	first := append([]dispatchCall(nil), fake.calls...)
	fake.calls = nil

	if err := e.Replay(context.Background()); err != nil {
		t.Fatalf("Replay error: %v", err)
	}

	if len(fake.calls) != len(first) {
		t.Fatalf("replay dispatched %d calls, want %d", len(fake.calls), len(first))
	}
	for i := range first {
		if fake.calls[i] != first[i] {
			t.Errorf("replay call %d = %+v, want %+v", i, fake.calls[i], first[i])
		}
	}
}

func TestClear_AfterRun(t *testing.T) {
	fake := &fakeActuator{}
	e := newTestEngine(fake)
	queueThree(t, e)

	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if err := e.Clear(); err != nil {
		t.Fatalf("Clear after run error: %v", err)
	}
	if e.Len() != 0 {
		t.Errorf("length after clear = %d, want 0", e.Len())
	}

	fake.calls = nil
	if err := e.Execute(context.Background()); err != nil {
		t.Fatalf("Execute after clear should be a no-op, got %v", err)
	}
	if len(fake.calls) != 0 {
		t.Errorf("execute after clear dispatched %d movements", len(fake.calls))
	}
}

func TestEstimateTotalTime(t *testing.T) {
	e := newTestEngine(&fakeActuator{})
	queueThree(t, e)

	// 0.36576 + 0.6 + 0.36576 seconds.
	want := 0.36576 + 0.6 + 0.36576
	got := e.EstimateTotalTime().Seconds()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("EstimateTotalTime = %fs, want %fs", got, want)
	}

	// Estimation must not touch the actuator.
	fake := &fakeActuator{}
	e2 := newTestEngine(fake)
	e2.Add(drive.Forward, 0.5, 100)
	e2.EstimateTotalTime()
	if len(fake.calls) != 0 || fake.stops != 0 {
		t.Error("EstimateTotalTime dispatched to the actuator")
	}
}

func TestMovements_ReturnsCopy(t *testing.T) {
	e := newTestEngine(&fakeActuator{})
	queueThree(t, e)

	ms := e.Movements()
	ms[0].Magnitude = 999

	if e.Movements()[0].Magnitude == 999 {
		t.Error("Movements exposed internal slice")
	}
}
