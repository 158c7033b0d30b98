// Package rollout implements experience collection with worker-local
// copies of a learner's networks. Each worker owns an environment
// instance and batch-1 clones of the policy and value networks, so
// multiple workers can collect trajectories concurrently without
// sharing any graph state with the learner or with each other.
package rollout

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/goppo/agent"
	"github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/network"
)

// samplingPolicy is a policy that samples actions and reports the log
// probability of the action it last selected
type samplingPolicy interface {
	agent.NNPolicy
	LogProbSampled() float64
}

// Path holds one trajectory collected by a Worker. A Path covers a
// single episode, possibly cut short by the worker's step quota. All
// per-timestep data is stored flat in row major order.
type Path struct {
	Obs      []float64
	Actions  []float64
	Rewards  []float64
	Values   []float64
	LogProbs []float64

	// LastVal is the value to bootstrap from when estimating the
	// advantages of this path: 0 if the path ended in a terminal
	// state, and the predicted value of the last state otherwise.
	LastVal float64

	// Terminal denotes whether the path ended in a terminal state
	Terminal bool

	// Completed denotes whether the path covers a full episode.
	// Paths cut off by the step quota are not complete.
	Completed bool

	// Return and Length describe the completed portion of the episode
	Return float64
	Length int
}

// Worker collects trajectories from an environment using local copies
// of a learner's policy and value networks. Workers are not safe for
// concurrent use; concurrency is achieved by running multiple workers.
type Worker struct {
	env    environment.Environment
	policy samplingPolicy

	valueFn network.NeuralNet
	valueVM G.VM
}

// NewWorker returns a new Worker collecting experience from env. The
// argument policy and value function are cloned with a batch size of
// 1, so the worker's copies share no state with the originals.
func NewWorker(env environment.Environment, policy agent.NNPolicy,
	valueFn network.NeuralNet) (*Worker, error) {
	policyClone, err := policy.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("newWorker: could not clone policy: %v",
			err)
	}
	sampler, ok := policyClone.(samplingPolicy)
	if !ok {
		return nil, fmt.Errorf("newWorker: policy (%T) does not expose "+
			"sampled log probabilities", policyClone)
	}
	sampler.Train()

	valueClone, err := valueFn.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("newWorker: could not clone value "+
			"function: %v", err)
	}

	return &Worker{
		env:     env,
		policy:  sampler,
		valueFn: valueClone,
		valueVM: G.NewTapeMachine(valueClone.Graph()),
	}, nil
}

// Sync copies the weights of the argument policy and value networks
// into the worker's local copies. Call between collection rounds so
// that workers act with the learner's current weights.
func (w *Worker) Sync(policy agent.NNPolicy, valueFn network.NeuralNet) {
	network.Set(w.policy.Network(), policy.Network())
	network.Set(w.valueFn, valueFn)
}

// Collect gathers at least quota timesteps of experience and returns
// the collected paths. The final episode is cut off once the quota is
// met, and its last state's predicted value recorded for
// bootstrapping.
func (w *Worker) Collect(quota int) ([]Path, error) {
	var paths []Path
	steps := 0

	for steps < quota {
		path, err := w.collectEpisode(quota - steps)
		if err != nil {
			return nil, fmt.Errorf("collect: %v", err)
		}
		steps += path.Length
		paths = append(paths, path)
	}

	return paths, nil
}

// collectEpisode runs a single episode for at most maxSteps timesteps
func (w *Worker) collectEpisode(maxSteps int) (Path, error) {
	var path Path

	step := w.env.Reset()
	for i := 0; i < maxSteps; i++ {
		obs := step.Observation.RawVector().Data
		value, err := w.value(obs)
		if err != nil {
			return Path{}, err
		}

		action := w.policy.SelectAction(step)
		logProb := w.policy.LogProbSampled()

		next, last := w.env.Step(action)

		path.Obs = append(path.Obs, obs...)
		path.Actions = append(path.Actions,
			action.RawVector().Data...)
		path.Rewards = append(path.Rewards, next.Reward)
		path.Values = append(path.Values, value)
		path.LogProbs = append(path.LogProbs, logProb)
		path.Return += next.Reward
		path.Length++

		step = next
		if last {
			path.Completed = true
			break
		}
	}

	if step.TerminalEnd() {
		path.Terminal = true
		path.LastVal = 0.0
	} else {
		// Timeout or quota cutoff
		lastVal, err := w.value(step.Observation.RawVector().Data)
		if err != nil {
			return Path{}, err
		}
		path.LastVal = lastVal
	}

	return path, nil
}

// value computes the worker-local state value prediction for obs
func (w *Worker) value(obs []float64) (float64, error) {
	if err := w.valueFn.SetInput(obs); err != nil {
		return 0, fmt.Errorf("value: could not set input: %v", err)
	}
	if err := w.valueVM.RunAll(); err != nil {
		return 0, fmt.Errorf("value: could not run value function: %v",
			err)
	}
	v := w.valueFn.Output()[0].Data().([]float64)
	w.valueVM.Reset()
	if len(v) != 1 {
		return 0, fmt.Errorf("value: expected a single state value " +
			"prediction")
	}
	return v[0], nil
}

// Close cleans up the worker's resources
func (w *Worker) Close() error {
	w.valueVM.Close()
	return w.policy.Close()
}
