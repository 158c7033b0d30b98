package ppo

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/goppo/agent"
	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/policy"
	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/initwfn"
	"github.com/samuelfneumann/goppo/network"
	"github.com/samuelfneumann/goppo/solver"
)

func init() {
	// Register the Config type so that it can be JSON deserialized
	// through agent.TypedConfig without knowing its concrete type.
	agent.Register(agent.CategoricalPPOMLP, CategoricalMLPConfig{})
}

// CategoricalMLPConfig implements a configuration for a PPO agent with
// a categorical policy. The categorical distribution is parameterized
// by a neural network with one output per action in the environment.
// The network outputs the logit of each action, and action
// probabilities are computed through the softmax function.
type CategoricalMLPConfig struct {
	// Policy neural net
	policy            agent.LogPdfOfer // PPO.trainPolicy
	behaviour         agent.NNPolicy   // PPO.behaviour
	PolicyLayers      []int
	PolicyBiases      []bool
	PolicyActivations []*network.Activation

	// State value function neural net
	vValueFn           network.NeuralNet
	vTrainValueFn      network.NeuralNet
	ValueFnLayers      []int
	ValueFnBiases      []bool
	ValueFnActivations []*network.Activation

	// Weight init function for all neural nets
	InitWFn *initwfn.InitWFn

	PolicySolver *solver.Solver
	VSolver      *solver.Solver

	// Clipping parameter ε of the surrogate objective
	Epsilon float64

	// Number of gradient steps to take per epoch for the policy and
	// the value function
	PolicySGDIters int
	ValueSGDIters  int

	EpochLength int

	// FinishEpisodeOnEpochEnd denotes if the current episode should
	// be finished before starting a new epoch. If true, the agent is
	// updated when the current epoch ends, the current episode is
	// played out, and the next epoch starts at the beginning of the
	// next episode. If false, the next epoch starts at the next
	// timestep, which may be in the middle of an episode.
	FinishEpisodeOnEpochEnd bool

	// Generalized Advantage Estimation
	Lambda float64
	Gamma  float64
}

// BatchSize returns the batch size of the agent constructed from this
// config
func (c CategoricalMLPConfig) BatchSize() int {
	return c.EpochLength
}

// Validate checks the Config to ensure it is a valid configuration
func (c CategoricalMLPConfig) Validate() error {
	if c.EpochLength <= 0 {
		return fmt.Errorf("cannot have epoch length < 1")
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("clipping parameter must be positive")
	}
	if c.PolicySGDIters <= 0 || c.ValueSGDIters <= 0 {
		return fmt.Errorf("cannot have SGD iterations < 1")
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("gamma must be in [0, 1]")
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("lambda must be in [0, 1]")
	}
	return nil
}

// Type returns the type of the configuration
func (c CategoricalMLPConfig) Type() agent.Type {
	return agent.CategoricalPPOMLP
}

// ValidAgent returns whether the input agent is valid for this config
func (c CategoricalMLPConfig) ValidAgent(a agent.Agent) bool {
	switch a.(type) {
	case *PPO:
		return true
	}
	return false
}

// CreateAgent creates and returns the agent determined by the
// configuration
func (c CategoricalMLPConfig) CreateAgent(e env.Environment,
	seed uint64) (agent.Agent, error) {

	behaviour, err := policy.NewCategoricalMLP(
		e,
		1,
		G.NewGraph(),
		c.PolicyLayers,
		c.PolicyBiases,
		c.PolicyActivations,
		c.InitWFn.InitWFn(),
		int64(seed),
	)
	if err != nil {
		return nil, fmt.Errorf("createAgent: could not create "+
			"behaviour policy: %v", err)
	}

	p, err := policy.NewCategoricalMLP(
		e,
		c.EpochLength,
		G.NewGraph(),
		c.PolicyLayers,
		c.PolicyBiases,
		c.PolicyActivations,
		c.InitWFn.InitWFn(),
		int64(seed),
	)
	if err != nil {
		return nil, fmt.Errorf("createAgent: could not create policy: %v",
			err)
	}

	features := e.ObservationSpec().Shape.Len()

	valueFn, err := network.NewSingleHeadMLP(
		features,
		1,
		G.NewGraph(),
		c.ValueFnLayers,
		c.ValueFnBiases,
		c.InitWFn.InitWFn(),
		c.ValueFnActivations,
	)
	if err != nil {
		return nil, fmt.Errorf("createAgent: could not create value "+
			"function: %v", err)
	}

	trainValueFn, err := network.NewSingleHeadMLP(
		features,
		c.EpochLength,
		G.NewGraph(),
		c.ValueFnLayers,
		c.ValueFnBiases,
		c.InitWFn.InitWFn(),
		c.ValueFnActivations,
	)
	if err != nil {
		return nil, fmt.Errorf("createAgent: could not create "+
			"train value function: %v", err)
	}

	network.Set(behaviour.Network(), p.Network())
	network.Set(valueFn, trainValueFn)
	c.policy = p
	c.behaviour = behaviour
	c.vValueFn = valueFn
	c.vTrainValueFn = trainValueFn

	return New(e, c, int64(seed))
}
