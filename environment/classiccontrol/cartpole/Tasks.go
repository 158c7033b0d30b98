package cartpole

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/spec"
	ts "github.com/samuelfneumann/goppo/timestep"
)

const (
	// FailAngle is the default pole angle beyond which Balance episodes
	// end in failure
	FailAngle float64 = 12 * 2 * math.Pi / 360

	// FailPosition is the default cart position beyond which Balance
	// episodes end in failure
	FailPosition float64 = 2.4
)

// Balance implements the classic Cartpole balancing task. The goal of
// the agent is to keep the pole upright and the cart near the centre
// of the track for as long as possible.
//
// A reward of +1 is given on every timestep, including the timestep on
// which the episode ends. Episodes end in failure when the pole angle
// leaves (-failAngle, failAngle) or the cart position leaves
// (-failPosition, failPosition); such ends are terminal states of the
// MDP. Episodes are also cut off at a step limit, which is a Timeout
// end and not a terminal state.
type Balance struct {
	env.Starter
	stepLimiter  env.Ender
	stateLimiter env.Ender
	failAngle    float64
	failPosition float64
}

// NewBalance creates and returns a new Balance task
func NewBalance(s env.Starter, episodeSteps int, failAngle,
	failPosition float64) *Balance {
	stepLimiter := env.NewStepLimit(episodeSteps)

	legalIntervals := []r1.Interval{
		{Min: -failPosition, Max: failPosition},
		{Min: -failAngle, Max: failAngle},
	}
	featureIndices := []int{0, 2}

	stateLimiter := env.NewIntervalLimit(legalIntervals, featureIndices,
		ts.TerminalStateReached)

	return &Balance{s, stepLimiter, stateLimiter, failAngle, failPosition}
}

// End checks if a TimeStep is the last in an episode. If so, it
// adjusts the TimeStep's StepType and EndType and returns true.
// Otherwise, the TimeStep is left unmodified and false is returned.
func (b *Balance) End(t *ts.TimeStep) bool {
	if end := b.stateLimiter.End(t); end {
		return true
	}
	if end := b.stepLimiter.End(t); end {
		return true
	}
	return false
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState. The Balance
// task rewards +1 on every transition.
func (b *Balance) GetReward(_, _, _ mat.Vector) float64 {
	return 1.0
}

// AtGoal returns whether or not the pole is balanced upright within
// the legal region of the track
func (b *Balance) AtGoal(state mat.Matrix) bool {
	return math.Abs(state.At(0, 2)) < b.failAngle &&
		math.Abs(state.At(0, 0)) < b.failPosition
}

// Min returns the minimum possible reward
func (b *Balance) Min() float64 {
	return 1.0
}

// Max returns the maximum possible reward
func (b *Balance) Max() float64 {
	return 1.0
}

// RewardSpec returns the reward specification for the environment
func (b *Balance) RewardSpec() spec.Environment {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{b.Min()})
	upperBound := mat.NewVecDense(1, []float64{b.Max()})

	return spec.NewEnvironment(shape, spec.Reward, lowerBound, upperBound,
		spec.Continuous)
}
