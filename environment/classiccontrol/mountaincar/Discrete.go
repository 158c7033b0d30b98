package mountaincar

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/spec"
	ts "github.com/samuelfneumann/goppo/timestep"
)

// Discrete implements the classic control environment Mountain Car
// with discrete actions. Actions determine in which direction to apply
// full accelerating force to the car. Legal actions are in {0, 1, 2}:
//
//	Action		Meaning
//	  0			Accelerate left
//	  1			Do nothing
//	  2			Accelerate right
//
// Illegal actions will cause the environment to panic.
//
// Discrete implements the environment.Environment interface
type Discrete struct {
	*base
}

// NewDiscrete constructs a new Mountain Car environment with discrete
// actions
func NewDiscrete(t env.Task, discount float64) (*Discrete, ts.TimeStep,
	error) {
	base, firstStep, err := newBase(t, discount)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newDiscrete: %v", err)
	}

	return &Discrete{base}, firstStep, nil
}

// ActionSpec returns the action specification of the environment
func (m *Discrete) ActionSpec() spec.Environment {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MaxDiscreteAction)})

	return spec.NewEnvironment(shape, spec.Action, lowerBound,
		upperBound, spec.Discrete)
}

// Step takes one environmental step given action a and returns the
// next timestep as a timestep.TimeStep and a bool indicating whether
// or not the episode has ended. Legal actions are in the set
// {0, 1, 2}. Actions outside this set will cause the environment to
// panic.
func (m *Discrete) Step(a *mat.VecDense) (ts.TimeStep, bool) {
	if a.Len() > ActionDims {
		panic("step: actions should be 1-dimensional")
	}

	action := a.AtVec(0)

	intAction := int(action)
	if intAction < MinDiscreteAction || intAction > MaxDiscreteAction {
		panic(fmt.Sprintf("step: illegal action %v ∉ {0, 1, 2}",
			intAction))
	}

	// Convert action (0, 1, 2) to a force direction (-1, 0, 1)
	force := action - 1.0

	nextState := m.nextState(force)

	return m.update(a, nextState)
}
