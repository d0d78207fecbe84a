package kinematics

import (
	"math"
	"testing"
)

func TestLinearTime_MarginApplied(t *testing.T) {
	// 12in at full speed: base = (12 * 0.0254) / 1.0 = 0.3048s, margin 1.2x.
	got := LinearTime(12, 1.0)
	want := 0.3048 * 1.2
	if math.Abs(got-want) > 0.0001 {
		t.Errorf("LinearTime(12, 1.0) = %f, want %f", got, want)
	}
}

func TestLinearTime_CappedAtMax(t *testing.T) {
	// A mile at minimum speed would take far longer than the cap allows.
	got := LinearTime(63360, 0.1)
	if got != MaxExecutionTime {
		t.Errorf("LinearTime(63360, 0.1) = %f, want cap %f", got, MaxExecutionTime)
	}
}

func TestLinearTime_MonotonicInSpeed(t *testing.T) {
	// Faster never takes longer, for a fixed distance.
	prev := math.Inf(1)
	for s := 0.1; s <= 1.0; s += 0.05 {
		got := LinearTime(24, s)
		if got > prev {
			t.Errorf("LinearTime(24, %f) = %f, increased from %f", s, got, prev)
		}
		if got > MaxExecutionTime {
			t.Errorf("LinearTime(24, %f) = %f exceeds cap", s, got)
		}
		prev = got
	}
}

func TestLinearTime_MonotonicInDistance(t *testing.T) {
	prev := 0.0
	for d := 1.0; d <= 100; d += 7 {
		got := LinearTime(d, 0.5)
		if got < prev {
			t.Errorf("LinearTime(%f, 0.5) = %f, decreased from %f", d, got, prev)
		}
		prev = got
	}
}

func TestLinearTime_ClampsSpeedFactor(t *testing.T) {
	// Out-of-range speed factors are clamped, not rejected.
	if got, want := LinearTime(12, 0.0), LinearTime(12, MinSpeedFactor); got != want {
		t.Errorf("LinearTime(12, 0.0) = %f, want clamped %f", got, want)
	}
	if got, want := LinearTime(12, 5.0), LinearTime(12, 1.0); got != want {
		t.Errorf("LinearTime(12, 5.0) = %f, want clamped %f", got, want)
	}
}

func TestRotationalTime(t *testing.T) {
	// 90deg at half speed: angular velocity 180deg/s, base 0.5s, margin 1.2x.
	got := RotationalTime(90, 0.5)
	if math.Abs(got-0.6) > 0.0001 {
		t.Errorf("RotationalTime(90, 0.5) = %f, want 0.6", got)
	}
}

func TestRotationalTime_SignIndependent(t *testing.T) {
	angles := []float64{1, 45, 90, 180, 270, 360, 720}
	for _, a := range angles {
		cw := RotationalTime(a, 0.4)
		ccw := RotationalTime(-a, 0.4)
		if cw != ccw {
			t.Errorf("RotationalTime(%f) = %f, RotationalTime(%f) = %f", a, cw, -a, ccw)
		}
	}
}

func TestClampSpeedFactor(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{-1.0, MinSpeedFactor},
		{0.0, MinSpeedFactor},
		{0.05, MinSpeedFactor},
		{0.1, 0.1},
		{0.5, 0.5},
		{1.0, 1.0},
		{1.5, 1.0},
	}

	for _, tt := range tests {
		if got := ClampSpeedFactor(tt.in); got != tt.expected {
			t.Errorf("ClampSpeedFactor(%f) = %f, want %f", tt.in, got, tt.expected)
		}
	}
}

func TestSpeedFactorFromPercent(t *testing.T) {
	tests := []struct {
		percent  float64
		expected float64
	}{
		{-10, 0.0},
		{0, 0.0},
		{50, 0.5},
		{100, 1.0},
		{150, 1.0},
	}

	for _, tt := range tests {
		if got := SpeedFactorFromPercent(tt.percent); got != tt.expected {
			t.Errorf("SpeedFactorFromPercent(%f) = %f, want %f", tt.percent, got, tt.expected)
		}
	}
}

func TestMetersFromInches(t *testing.T) {
	if got := MetersFromInches(12); math.Abs(got-0.3048) > 1e-9 {
		t.Errorf("MetersFromInches(12) = %f, want 0.3048", got)
	}
}
