package cartpole

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/goppo/environment"
	ts "github.com/samuelfneumann/goppo/timestep"
)

func newTestEnv(t *testing.T, cutoff int) *Discrete {
	t.Helper()

	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := env.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, 14)

	task := NewBalance(starter, cutoff, FailAngle, FailPosition)
	cartpole, _, err := NewDiscrete(task, 1.0)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}
	return cartpole
}

func TestStartsWithinBounds(t *testing.T) {
	cartpole := newTestEnv(t, 200)

	for i := 0; i < 10; i++ {
		step := cartpole.Reset()
		if !step.First() {
			t.Errorf("reset should return a First timestep")
		}
		obs := step.Observation
		if obs.Len() != ObservationDims {
			t.Fatalf("observation has %v dimensions, expected %v",
				obs.Len(), ObservationDims)
		}
		for j := 0; j < obs.Len(); j++ {
			if math.Abs(obs.AtVec(j)) > 0.05 {
				t.Errorf("start feature %d = %v outside [-0.05, 0.05]",
					j, obs.AtVec(j))
			}
		}
	}
}

func TestRewardIsAlwaysOne(t *testing.T) {
	cartpole := newTestEnv(t, 200)
	cartpole.Reset()

	action := mat.NewVecDense(1, []float64{1.0})
	for i := 0; i < 20; i++ {
		step, last := cartpole.Step(action)
		if step.Reward != 1.0 {
			t.Errorf("reward = %v, expected 1.0", step.Reward)
		}
		if last {
			break
		}
	}
}

// TestTerminalOnConstantForce pushes the cart in one direction until
// the pole falls, which must register as a terminal state and not a
// timeout
func TestTerminalOnConstantForce(t *testing.T) {
	cartpole := newTestEnv(t, 200)
	cartpole.Reset()

	action := mat.NewVecDense(1, []float64{1.0})
	var step ts.TimeStep
	last := false
	steps := 0
	for !last {
		step, last = cartpole.Step(action)
		steps++
		if steps > 200 {
			t.Fatalf("constant force did not end the episode")
		}
	}

	if !step.TerminalEnd() {
		t.Errorf("pole falling should be a terminal state, got end "+
			"type %v", step.EndType)
	}
	if steps >= 200 {
		t.Errorf("pole falling should happen before the step limit")
	}
}

// TestTimeoutAtCutoff alternates forces so the pole stays up past a
// short step limit, which must register as a timeout and not a
// terminal state
func TestTimeoutAtCutoff(t *testing.T) {
	cutoff := 5
	cartpole := newTestEnv(t, cutoff)
	cartpole.Reset()

	var step ts.TimeStep
	last := false
	steps := 0
	for !last {
		action := mat.NewVecDense(1, []float64{float64(steps % 2)})
		step, last = cartpole.Step(action)
		steps++
	}

	if steps != cutoff {
		t.Errorf("episode ended after %v steps, expected %v", steps,
			cutoff)
	}
	if step.TerminalEnd() {
		t.Errorf("step limit cutoff should not be a terminal state")
	}
	if step.EndType != ts.Timeout {
		t.Errorf("end type = %v, expected Timeout", step.EndType)
	}
}

func TestIllegalActionPanics(t *testing.T) {
	cartpole := newTestEnv(t, 200)
	cartpole.Reset()

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for illegal action")
		}
	}()
	cartpole.Step(mat.NewVecDense(1, []float64{2.0}))
}

func TestActionSpec(t *testing.T) {
	cartpole := newTestEnv(t, 200)

	actionSpec := cartpole.ActionSpec()
	if actionSpec.LowerBound.AtVec(0) != float64(MinDiscreteAction) {
		t.Errorf("action lower bound = %v, expected %v",
			actionSpec.LowerBound.AtVec(0), MinDiscreteAction)
	}
	if actionSpec.UpperBound.AtVec(0) != float64(MaxDiscreteAction) {
		t.Errorf("action upper bound = %v, expected %v",
			actionSpec.UpperBound.AtVec(0), MaxDiscreteAction)
	}
}
