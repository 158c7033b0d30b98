package ppo

import (
	"encoding/json"
	"testing"

	"github.com/samuelfneumann/goppo/agent"
	"github.com/samuelfneumann/goppo/initwfn"
	"github.com/samuelfneumann/goppo/network"
	"github.com/samuelfneumann/goppo/solver"
)

func testConfig(t *testing.T) CategoricalMLPConfig {
	t.Helper()

	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		t.Fatalf("could not create init function: %v", err)
	}
	policySolver, err := solver.NewDefaultAdam(3e-4, 1)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}
	vSolver, err := solver.NewDefaultAdam(1e-3, 1)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}

	return CategoricalMLPConfig{
		PolicyLayers:      []int{32, 32},
		PolicyBiases:      []bool{true, true},
		PolicyActivations: []*network.Activation{network.TanH(),
			network.TanH()},

		ValueFnLayers:      []int{32, 32},
		ValueFnBiases:      []bool{true, true},
		ValueFnActivations: []*network.Activation{network.TanH(),
			network.TanH()},

		InitWFn:      init,
		PolicySolver: policySolver,
		VSolver:      vSolver,

		Epsilon:        0.2,
		PolicySGDIters: 10,
		ValueSGDIters:  10,

		EpochLength: 64,

		Lambda: 0.95,
		Gamma:  0.99,
	}
}

func TestValidate(t *testing.T) {
	config := testConfig(t)
	if err := config.Validate(); err != nil {
		t.Errorf("test config should be valid: %v", err)
	}

	invalid := testConfig(t)
	invalid.EpochLength = 0
	if err := invalid.Validate(); err == nil {
		t.Errorf("expected error for epoch length 0")
	}

	invalid = testConfig(t)
	invalid.Epsilon = 0.0
	if err := invalid.Validate(); err == nil {
		t.Errorf("expected error for clipping parameter 0")
	}

	invalid = testConfig(t)
	invalid.PolicySGDIters = 0
	if err := invalid.Validate(); err == nil {
		t.Errorf("expected error for 0 SGD iterations")
	}

	invalid = testConfig(t)
	invalid.Gamma = 1.5
	if err := invalid.Validate(); err == nil {
		t.Errorf("expected error for gamma outside [0, 1]")
	}

	invalid = testConfig(t)
	invalid.Lambda = -0.1
	if err := invalid.Validate(); err == nil {
		t.Errorf("expected error for lambda outside [0, 1]")
	}
}

func TestValidAgent(t *testing.T) {
	config := testConfig(t)
	if !config.ValidAgent(&PPO{}) {
		t.Errorf("config should accept a PPO agent")
	}
}

func TestType(t *testing.T) {
	config := testConfig(t)
	if config.Type() != agent.CategoricalPPOMLP {
		t.Errorf("config type = %v, expected %v", config.Type(),
			agent.CategoricalPPOMLP)
	}
}

// TestTypedConfigRoundTrip checks that a config wrapped in an
// agent.TypedConfig survives JSON serialization with its concrete
// type and hyperparameters intact
func TestTypedConfigRoundTrip(t *testing.T) {
	config := testConfig(t)
	typed := agent.NewTypedConfig(config)

	data, err := json.Marshal(typed)
	if err != nil {
		t.Fatalf("could not marshal config: %v", err)
	}

	var decoded agent.TypedConfig
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("could not unmarshal config: %v", err)
	}

	if decoded.Type != agent.CategoricalPPOMLP {
		t.Fatalf("decoded type = %v, expected %v", decoded.Type,
			agent.CategoricalPPOMLP)
	}

	concrete, ok := decoded.Config.(CategoricalMLPConfig)
	if !ok {
		t.Fatalf("decoded concrete type = %T, expected "+
			"CategoricalMLPConfig", decoded.Config)
	}

	if concrete.Epsilon != config.Epsilon {
		t.Errorf("decoded epsilon = %v, expected %v", concrete.Epsilon,
			config.Epsilon)
	}
	if concrete.EpochLength != config.EpochLength {
		t.Errorf("decoded epoch length = %v, expected %v",
			concrete.EpochLength, config.EpochLength)
	}
	if len(concrete.PolicyLayers) != len(config.PolicyLayers) {
		t.Fatalf("decoded policy layers = %v, expected %v",
			concrete.PolicyLayers, config.PolicyLayers)
	}
	for i := range config.PolicyLayers {
		if concrete.PolicyLayers[i] != config.PolicyLayers[i] {
			t.Errorf("decoded policy layers = %v, expected %v",
				concrete.PolicyLayers, config.PolicyLayers)
			break
		}
	}
	if concrete.PolicyActivations[0].String() != "tanh" {
		t.Errorf("decoded activation = %v, expected tanh",
			concrete.PolicyActivations[0])
	}
	if err := concrete.Validate(); err != nil {
		t.Errorf("decoded config should be valid: %v", err)
	}
}
