package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_SubAndClone(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}

	c := a.Clone()
	c[0] = 99
	if a[0] != 1 {
		t.Error("Clone shares backing array")
	}
}

func TestWrapPhase(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{1, 1},
		{TwoPi, 0},
		{TwoPi + 0.5, 0.5},
		{-0.5, TwoPi - 0.5},
		{-TwoPi, 0},
		{-1e-20, 0},
	}

	for _, tt := range tests {
		got := WrapPhase(tt.in)
		if got < 0 || got >= TwoPi {
			t.Errorf("WrapPhase(%v) = %v outside [0, 2π)", tt.in, got)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("WrapPhase(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestState_Wrap(t *testing.T) {
	s := State{-1, 3 * math.Pi, 0.25}
	s.Wrap()
	want := State{TwoPi - 1, math.Pi, 0.25}
	for i := range s {
		if math.Abs(s[i]-want[i]) > 1e-12 {
			t.Errorf("component %d = %v, want %v", i, s[i], want[i])
		}
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Step: 12, Time: 0.125, Wrapped: ErrDivergedSimulation}

	if !errors.Is(err, ErrDivergedSimulation) {
		t.Error("SimulationError does not unwrap to its cause")
	}
	want := "step 12 (t=0.1250): " + ErrDivergedSimulation.Error()
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var se *SimulationError
	if !errors.As(err, &se) || se.Step != 12 {
		t.Error("errors.As failed")
	}
}
