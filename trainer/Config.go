package trainer

import (
	"fmt"

	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/ppo"
	"github.com/samuelfneumann/goppo/initwfn"
	"github.com/samuelfneumann/goppo/network"
	"github.com/samuelfneumann/goppo/solver"
)

// PPOConfig configures a PPO trainer. PPOConfig is a value type:
// callers copy the defaults with DefaultPPOConfig and override
// individual fields before handing the config to NewPPO.
type PPOConfig struct {
	// NumWorkers is the number of rollout workers collecting
	// experience in parallel
	NumWorkers int

	// TrainBatchSize is the number of environment timesteps consumed
	// by each call to Train, split evenly across the workers
	TrainBatchSize int

	// Generalized Advantage Estimation
	Gamma  float64
	Lambda float64

	// ClipParam is the clipping parameter ε of the surrogate objective
	ClipParam float64

	// Step sizes of the Adam solvers
	PolicyLR float64
	ValueLR  float64

	// Number of gradient steps per iteration for the policy and the
	// value function
	PolicySGDIters int
	ValueSGDIters  int

	// Hidden layer sizes of the policy and value networks. All hidden
	// layers use the tanh activation.
	PolicyLayers  []int
	ValueFnLayers []int

	// Seed for environment starts and action sampling. Worker i uses
	// Seed + i + 1.
	Seed uint64
}

// DefaultPPOConfig returns a PPOConfig holding the default
// hyperparameter settings
func DefaultPPOConfig() PPOConfig {
	return PPOConfig{
		NumWorkers:     2,
		TrainBatchSize: 4000,

		Gamma:  0.99,
		Lambda: 0.97,

		ClipParam: 0.2,

		PolicyLR: 3e-4,
		ValueLR:  1e-3,

		PolicySGDIters: 30,
		ValueSGDIters:  30,

		PolicyLayers:  []int{64, 64},
		ValueFnLayers: []int{64, 64},

		Seed: 0,
	}
}

// Validate returns an error describing whether or not the
// configuration is valid
func (c PPOConfig) Validate() error {
	if c.NumWorkers < 1 {
		return fmt.Errorf("cannot have fewer than 1 worker")
	}
	if c.TrainBatchSize < c.NumWorkers {
		return fmt.Errorf("train batch size (%v) must be at least the "+
			"number of workers (%v)", c.TrainBatchSize, c.NumWorkers)
	}
	if len(c.PolicyLayers) == 0 || len(c.ValueFnLayers) == 0 {
		return fmt.Errorf("policy and value networks need at least " +
			"one hidden layer")
	}
	return nil
}

// agentConfig translates the trainer configuration into the agent's
// configuration
func (c PPOConfig) agentConfig() (ppo.CategoricalMLPConfig, error) {
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		return ppo.CategoricalMLPConfig{}, fmt.Errorf("agentConfig: %v",
			err)
	}

	policySolver, err := solver.NewDefaultAdam(c.PolicyLR, 1)
	if err != nil {
		return ppo.CategoricalMLPConfig{}, fmt.Errorf("agentConfig: %v",
			err)
	}
	vSolver, err := solver.NewDefaultAdam(c.ValueLR, 1)
	if err != nil {
		return ppo.CategoricalMLPConfig{}, fmt.Errorf("agentConfig: %v",
			err)
	}

	return ppo.CategoricalMLPConfig{
		PolicyLayers:      c.PolicyLayers,
		PolicyBiases:      trueSlice(len(c.PolicyLayers)),
		PolicyActivations: tanhSlice(len(c.PolicyLayers)),

		ValueFnLayers:      c.ValueFnLayers,
		ValueFnBiases:      trueSlice(len(c.ValueFnLayers)),
		ValueFnActivations: tanhSlice(len(c.ValueFnLayers)),

		InitWFn: init,

		PolicySolver: policySolver,
		VSolver:      vSolver,

		Epsilon:        c.ClipParam,
		PolicySGDIters: c.PolicySGDIters,
		ValueSGDIters:  c.ValueSGDIters,

		EpochLength:             c.TrainBatchSize,
		FinishEpisodeOnEpochEnd: false,

		Lambda: c.Lambda,
		Gamma:  c.Gamma,
	}, nil
}

func trueSlice(n int) []bool {
	s := make([]bool, n)
	for i := range s {
		s[i] = true
	}
	return s
}

func tanhSlice(n int) []*network.Activation {
	s := make([]*network.Activation, n)
	for i := range s {
		s[i] = network.TanH()
	}
	return s
}
