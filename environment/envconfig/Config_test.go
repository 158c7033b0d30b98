package envconfig

import (
	"sort"
	"testing"

	"github.com/samuelfneumann/goppo/spec"
)

func TestFromNameUnknown(t *testing.T) {
	if _, err := FromName("Breakout-v0"); err == nil {
		t.Errorf("expected error for unregistered environment name")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	sort.Strings(names)

	expected := []string{"CartPole-v0", "CartPole-v1", "MountainCar-v0"}
	if len(names) != len(expected) {
		t.Fatalf("names = %v, expected %v", names, expected)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("names = %v, expected %v", names, expected)
			break
		}
	}
}

func TestCreateCartpole(t *testing.T) {
	config, err := FromName("CartPole-v0")
	if err != nil {
		t.Fatalf("could not look up environment: %v", err)
	}
	if config.EpisodeCutoff != 200 {
		t.Errorf("episode cutoff = %v, expected 200", config.EpisodeCutoff)
	}

	env, firstStep, err := config.Create(11)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}

	if !firstStep.First() {
		t.Errorf("environment should start on a First timestep")
	}

	obsSpec := env.ObservationSpec()
	if obsSpec.Shape.Len() != 4 {
		t.Errorf("observation has %v dimensions, expected 4",
			obsSpec.Shape.Len())
	}

	actionSpec := env.ActionSpec()
	if actionSpec.Cardinality != spec.Discrete {
		t.Errorf("actions should be discrete")
	}
	if actionSpec.UpperBound.AtVec(0) != 1.0 {
		t.Errorf("action upper bound = %v, expected 1",
			actionSpec.UpperBound.AtVec(0))
	}
}

func TestCreateCartpoleV1Cutoff(t *testing.T) {
	config, err := FromName("CartPole-v1")
	if err != nil {
		t.Fatalf("could not look up environment: %v", err)
	}
	if config.EpisodeCutoff != 500 {
		t.Errorf("episode cutoff = %v, expected 500", config.EpisodeCutoff)
	}
}

func TestCreateMountainCar(t *testing.T) {
	config, err := FromName("MountainCar-v0")
	if err != nil {
		t.Fatalf("could not look up environment: %v", err)
	}

	env, _, err := config.Create(11)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}

	obsSpec := env.ObservationSpec()
	if obsSpec.Shape.Len() != 2 {
		t.Errorf("observation has %v dimensions, expected 2",
			obsSpec.Shape.Len())
	}

	actionSpec := env.ActionSpec()
	if actionSpec.UpperBound.AtVec(0) != 2.0 {
		t.Errorf("action upper bound = %v, expected 2",
			actionSpec.UpperBound.AtVec(0))
	}
}

func TestCreateUnknownTask(t *testing.T) {
	config := NewConfig(Cartpole, TaskName("SwingUp"), 200, 1.0)
	if _, _, err := config.Create(11); err == nil {
		t.Errorf("expected error for unknown task")
	}
}
