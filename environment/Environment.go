// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/goppo/spec"
	"github.com/samuelfneumann/goppo/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode ends. Enders modify TimeSteps
// in-place, setting the StepType to timestep.Last and recording the
// appropriate EndType when an episode should end.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some
// environment, and determines which states terminate episodes
type Task interface {
	Starter

	// GetReward returns the reward for a transition from state to
	// nextState under action
	GetReward(state, action, nextState mat.Vector) float64

	// AtGoal returns whether state is a goal state of the Task
	AtGoal(state mat.Matrix) bool

	// Min and Max return the minimum and maximum attainable rewards
	Min() float64
	Max() float64

	RewardSpec() spec.Environment

	// End checks if a TimeStep ends an episode, modifying it in-place
	// if so
	End(*timestep.TimeStep) bool
}

// Environment implements a simulated environment, which includes a
// Task to complete
type Environment interface {
	Task

	// Reset resets the environment between episodes and returns the
	// first timestep of the new episode
	Reset() timestep.TimeStep

	// Step takes one environmental step given an action, returning the
	// next timestep and whether it is the last of the episode
	Step(*mat.VecDense) (timestep.TimeStep, bool)

	DiscountSpec() spec.Environment
	ObservationSpec() spec.Environment
	ActionSpec() spec.Environment

	// CurrentTimeStep returns the timestep that the environment
	// currently occupies
	CurrentTimeStep() timestep.TimeStep
}
