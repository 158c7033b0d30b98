package rollout

import (
	"testing"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/policy"
	"github.com/samuelfneumann/goppo/environment/envconfig"
	"github.com/samuelfneumann/goppo/network"
)

// newTestWorker returns a Worker on a seeded CartPole environment with
// small, freshly initialized policy and value networks
func newTestWorker(t *testing.T, seed uint64) *Worker {
	t.Helper()

	config, err := envconfig.FromName("CartPole-v0")
	if err != nil {
		t.Fatalf("could not look up environment: %v", err)
	}
	env, _, err := config.Create(seed)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}

	pol, err := policy.NewCategoricalMLP(env, 1, G.NewGraph(), []int{16},
		[]bool{true}, []*network.Activation{network.TanH()},
		G.GlorotU(1.0), int64(seed))
	if err != nil {
		t.Fatalf("could not create policy: %v", err)
	}

	features := env.ObservationSpec().Shape.Len()
	valueFn, err := network.NewSingleHeadMLP(features, 1, G.NewGraph(),
		[]int{16}, []bool{true}, G.GlorotU(1.0),
		[]*network.Activation{network.TanH()})
	if err != nil {
		t.Fatalf("could not create value function: %v", err)
	}

	worker, err := NewWorker(env, pol, valueFn)
	if err != nil {
		t.Fatalf("could not create worker: %v", err)
	}
	return worker
}

// TestCollectConsumesQuota checks that one collection round gathers
// exactly the requested number of timesteps and that per-path data
// stays length-consistent
func TestCollectConsumesQuota(t *testing.T) {
	worker := newTestWorker(t, 17)
	defer worker.Close()

	quota := 50
	features := 4

	paths, err := worker.Collect(quota)
	if err != nil {
		t.Fatalf("could not collect paths: %v", err)
	}
	if len(paths) == 0 {
		t.Fatalf("collected no paths")
	}

	total := 0
	for i, path := range paths {
		total += path.Length

		if len(path.Rewards) != path.Length ||
			len(path.Values) != path.Length ||
			len(path.LogProbs) != path.Length ||
			len(path.Actions) != path.Length {
			t.Errorf("path %d per-step data does not match its length %d",
				i, path.Length)
		}
		if len(path.Obs) != path.Length*features {
			t.Errorf("path %d stored %d observation features, expected %d",
				i, len(path.Obs), path.Length*features)
		}

		// CartPole rewards +1 per step
		if path.Return != float64(path.Length) {
			t.Errorf("path %d return = %v, expected %v", i, path.Return,
				float64(path.Length))
		}
	}
	if total != quota {
		t.Errorf("collected %d timesteps, expected %d", total, quota)
	}

	// Only the final path may be cut off by the quota
	for i, path := range paths[:len(paths)-1] {
		if !path.Completed {
			t.Errorf("path %d was cut off before the quota was met", i)
		}
	}
}

// TestCollectBootstrapValues checks that terminal paths record a
// bootstrap value of 0 and that cut-off paths bootstrap from the
// predicted value of their last state
func TestCollectBootstrapValues(t *testing.T) {
	worker := newTestWorker(t, 33)
	defer worker.Close()

	paths, err := worker.Collect(50)
	if err != nil {
		t.Fatalf("could not collect paths: %v", err)
	}

	for i, path := range paths {
		if path.Terminal {
			if path.LastVal != 0.0 {
				t.Errorf("terminal path %d bootstraps from %v, expected 0",
					i, path.LastVal)
			}
			if !path.Completed {
				t.Errorf("terminal path %d should be a complete episode", i)
			}
		}
		if !path.Completed && path.Terminal {
			t.Errorf("cut-off path %d cannot be terminal", i)
		}
	}
}

// TestCollectReusesWorker checks that a worker can run consecutive
// collection rounds, as it must between training iterations
func TestCollectReusesWorker(t *testing.T) {
	worker := newTestWorker(t, 5)
	defer worker.Close()

	for round := 0; round < 3; round++ {
		paths, err := worker.Collect(25)
		if err != nil {
			t.Fatalf("round %d failed: %v", round, err)
		}

		total := 0
		for _, path := range paths {
			total += path.Length
		}
		if total != 25 {
			t.Errorf("round %d collected %d timesteps, expected 25",
				round, total)
		}
	}
}
