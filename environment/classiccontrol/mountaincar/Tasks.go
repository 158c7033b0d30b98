package mountaincar

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/spec"
	ts "github.com/samuelfneumann/goppo/timestep"
)

const (
	// GoalPosition is the default x position of the goal
	GoalPosition float64 = 0.5
)

// Goal implements the classic control task of reaching a goal on
// Mountain Car. The agent must learn to drive the car up the hill and
// reach the goal state. Since the car is underpowered, it must rock
// back and forth from hill to hill until it reaches the goal.
//
// Rewards are -1 on each timestep. Episodes end when the car reaches
// the goal position, which is a terminal state of the MDP, or at a
// step limit, which is a Timeout end and not a terminal state.
type Goal struct {
	env.Starter
	stepLimiter env.Ender
	goalLimiter env.Ender
	goalX       float64
}

// NewGoal creates and returns a new Goal task given a Starter, which
// determines the starting states; the maximum number of episode steps;
// and the goal x position.
func NewGoal(s env.Starter, episodeSteps int, goalX float64) *Goal {
	stepLimiter := env.NewStepLimit(episodeSteps)

	legalIntervals := []r1.Interval{{Min: math.Inf(-1), Max: goalX}}
	featureIndices := []int{0}
	goalLimiter := env.NewIntervalLimit(legalIntervals, featureIndices,
		ts.TerminalStateReached)

	return &Goal{s, stepLimiter, goalLimiter, goalX}
}

// End checks if a TimeStep is the last in an episode. If so, it
// adjusts the TimeStep's StepType and EndType and returns true.
// Otherwise, the TimeStep is left unmodified and false is returned.
func (g *Goal) End(t *ts.TimeStep) bool {
	if end := g.goalLimiter.End(t); end {
		return true
	}
	if end := g.stepLimiter.End(t); end {
		return true
	}
	return false
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState. The Goal
// task rewards -1 on every transition.
func (g *Goal) GetReward(_, _, _ mat.Vector) float64 {
	return -1.0
}

// AtGoal returns whether or not the argument state is a goal state
func (g *Goal) AtGoal(state mat.Matrix) bool {
	return state.At(0, 0) >= g.goalX
}

// Min returns the minimum possible reward
func (g *Goal) Min() float64 {
	return -1.0
}

// Max returns the maximum possible reward
func (g *Goal) Max() float64 {
	return -1.0
}

// RewardSpec returns the reward specification for the environment
func (g *Goal) RewardSpec() spec.Environment {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{g.Min()})
	upperBound := mat.NewVecDense(1, []float64{g.Max()})

	return spec.NewEnvironment(shape, spec.Reward, lowerBound, upperBound,
		spec.Continuous)
}
