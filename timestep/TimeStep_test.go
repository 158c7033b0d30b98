package timestep

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestStepTypePredicates(t *testing.T) {
	obs := mat.NewVecDense(2, []float64{0.1, 0.2})

	first := New(First, 0.0, 1.0, obs, 0)
	if !first.First() || first.Mid() || first.Last() {
		t.Errorf("first step misreports its type")
	}

	mid := New(Mid, 1.0, 1.0, obs, 1)
	if mid.First() || !mid.Mid() || mid.Last() {
		t.Errorf("mid step misreports its type")
	}

	last := New(Last, 1.0, 1.0, obs, 2)
	if last.First() || last.Mid() || !last.Last() {
		t.Errorf("last step misreports its type")
	}
}

func TestNewHasNilEndType(t *testing.T) {
	step := New(Mid, 1.0, 1.0, mat.NewVecDense(1, nil), 1)
	if step.EndType != Nil {
		t.Errorf("expected EndType Nil, got %v", step.EndType)
	}
}

func TestTerminalEnd(t *testing.T) {
	obs := mat.NewVecDense(1, nil)

	step := New(Last, 1.0, 1.0, obs, 10)
	step.SetEnd(TerminalStateReached)
	if !step.TerminalEnd() {
		t.Errorf("terminal last step should be a terminal end")
	}

	timeout := New(Last, 1.0, 1.0, obs, 10)
	timeout.SetEnd(Timeout)
	if timeout.TerminalEnd() {
		t.Errorf("timeout should not be a terminal end")
	}

	// A Mid step is never a terminal end, whatever its EndType
	mid := New(Mid, 1.0, 1.0, obs, 3)
	mid.SetEnd(TerminalStateReached)
	if mid.TerminalEnd() {
		t.Errorf("mid step should not be a terminal end")
	}
}

// TestObservationRawData checks that an observation's backing slice is
// reachable directly from a TimeStep. Neural network code copies
// observations into graph inputs through RawVector without going
// through the mat.Vector interface.
func TestObservationRawData(t *testing.T) {
	data := []float64{0.5, -0.25, 1.5}
	step := New(Mid, 1.0, 1.0, mat.NewVecDense(3, data), 1)

	raw := step.Observation.RawVector().Data
	if len(raw) != len(data) {
		t.Fatalf("raw data has length %d, expected %d", len(raw), len(data))
	}
	for i := range data {
		if raw[i] != data[i] {
			t.Errorf("raw data = %v, expected %v", raw, data)
			break
		}
	}
}

func TestNewTransition(t *testing.T) {
	state := mat.NewVecDense(2, []float64{1.0, 2.0})
	nextState := mat.NewVecDense(2, []float64{3.0, 4.0})
	action := mat.NewVecDense(1, []float64{1.0})
	nextAction := mat.NewVecDense(1, []float64{0.0})

	step := New(First, 0.0, 1.0, state, 0)
	nextStep := New(Mid, -1.0, 0.99, nextState, 1)

	transition := NewTransition(step, action, nextStep, nextAction)

	if transition.Reward != nextStep.Reward {
		t.Errorf("transition reward should come from the next step")
	}
	if transition.Discount != nextStep.Discount {
		t.Errorf("transition discount should come from the next step")
	}
	if !mat.Equal(transition.State, state) {
		t.Errorf("transition state differs from the first step")
	}
	if !mat.Equal(transition.NextState, nextState) {
		t.Errorf("transition next state differs from the next step")
	}
}
