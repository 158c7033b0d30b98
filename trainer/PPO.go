// Package trainer implements high-level training of reinforcement
// learning agents on named environments. A trainer owns an agent and
// a set of rollout workers, and each call to Train runs one iteration
// of parallel experience collection followed by a learning update,
// returning the iteration's metrics as a Result.
package trainer

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/samuelfneumann/goppo/agent"
	"github.com/samuelfneumann/goppo/agent/nonlinear/discrete/ppo"
	"github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/environment/envconfig"
	"github.com/samuelfneumann/goppo/executor"
	"github.com/samuelfneumann/goppo/rollout"
	ts "github.com/samuelfneumann/goppo/timestep"
)

// PPO trains a PPO agent on a named environment
type PPO struct {
	config  PPOConfig
	envName string

	env     environment.Environment
	agent   *ppo.PPO
	workers []*rollout.Worker

	iteration     int
	totalSteps    int
	totalEpisodes int
	totalTime     time.Duration
}

// NewPPO returns a new PPO trainer for the environment registered
// under envName, such as "CartPole-v0". The argument config is copied
// and is not referenced after NewPPO returns.
func NewPPO(config PPOConfig, envName string) (*PPO, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("newPPO: invalid configuration: %v", err)
	}

	envConfig, err := envconfig.FromName(envName)
	if err != nil {
		return nil, fmt.Errorf("newPPO: %v", err)
	}

	env, _, err := envConfig.Create(config.Seed)
	if err != nil {
		return nil, fmt.Errorf("newPPO: could not create environment: %v",
			err)
	}

	agentConfig, err := config.agentConfig()
	if err != nil {
		return nil, fmt.Errorf("newPPO: %v", err)
	}

	a, err := agentConfig.CreateAgent(env, config.Seed)
	if err != nil {
		return nil, fmt.Errorf("newPPO: could not create agent: %v", err)
	}
	ppoAgent, ok := a.(*ppo.PPO)
	if !ok {
		return nil, fmt.Errorf("newPPO: unexpected agent type %T", a)
	}

	workers := make([]*rollout.Worker, config.NumWorkers)
	for i := range workers {
		workerEnv, _, err := envConfig.Create(config.Seed + uint64(i) + 1)
		if err != nil {
			return nil, fmt.Errorf("newPPO: could not create worker "+
				"environment: %v", err)
		}
		workers[i], err = rollout.NewWorker(workerEnv,
			ppoAgent.Behaviour(), ppoAgent.ValueFn())
		if err != nil {
			return nil, fmt.Errorf("newPPO: could not create worker: %v",
				err)
		}
	}

	return &PPO{
		config:  config,
		envName: envName,
		env:     env,
		agent:   ppoAgent,
		workers: workers,
	}, nil
}

// Train runs a single training iteration: the rollout workers are
// synced with the agent's current weights, TrainBatchSize timesteps
// of experience are collected in parallel, and the agent is updated
// on the collected batch. The iteration's metrics are returned.
func (p *PPO) Train() (Result, error) {
	start := time.Now()

	for _, w := range p.workers {
		w.Sync(p.agent.Behaviour(), p.agent.ValueFn())
	}

	quotas := splitQuota(p.config.TrainBatchSize, len(p.workers))
	collected := make([][]rollout.Path, len(p.workers))
	tasks := make([]executor.Task, len(p.workers))
	for i := range p.workers {
		i := i
		tasks[i] = func(context.Context) error {
			paths, err := p.workers[i].Collect(quotas[i])
			collected[i] = paths
			return err
		}
	}
	if err := executor.Run(tasks...); err != nil {
		return nil, fmt.Errorf("train: could not collect experience: %v",
			err)
	}

	var paths []rollout.Path
	for _, workerPaths := range collected {
		paths = append(paths, workerPaths...)
	}

	for _, path := range paths {
		err := p.agent.StorePath(path.Obs, path.Actions, path.Rewards,
			path.Values, path.LogProbs, path.LastVal)
		if err != nil {
			return nil, fmt.Errorf("train: %v", err)
		}
	}

	if err := p.agent.Update(); err != nil {
		return nil, fmt.Errorf("train: %v", err)
	}

	elapsed := time.Since(start)
	p.iteration++
	p.totalTime += elapsed

	return p.result(paths, elapsed), nil
}

// result assembles the metrics of one training iteration
func (p *PPO) result(paths []rollout.Path, elapsed time.Duration) Result {
	var returns []float64
	var lengths []float64
	steps := 0
	for _, path := range paths {
		steps += path.Length
		if path.Completed {
			returns = append(returns, path.Return)
			lengths = append(lengths, float64(path.Length))
		}
	}
	p.totalSteps += steps
	p.totalEpisodes += len(returns)

	rewardMean, rewardMin, rewardMax := math.NaN(), math.NaN(), math.NaN()
	lenMean := math.NaN()
	if len(returns) > 0 {
		rewardMean = stat.Mean(returns, nil)
		rewardMin = floats.Min(returns)
		rewardMax = floats.Max(returns)
		lenMean = stat.Mean(lengths, nil)
	}

	return Result{
		EpisodeRewardMean: rewardMean,
		EpisodeRewardMin:  rewardMin,
		EpisodeRewardMax:  rewardMax,
		EpisodeLenMean:    lenMean,
		EpisodesThisIter:  len(returns),
		EpisodesTotal:     p.totalEpisodes,
		TimestepsThisIter: steps,
		TimestepsTotal:    p.totalSteps,
		TrainingIteration: p.iteration,
		TimeThisIterS:     elapsed.Seconds(),
		TimeTotalS:        p.totalTime.Seconds(),
		Info: Result{
			Learner: Result{
				PolicyLoss:  p.agent.PolicyLoss(),
				ValueFnLoss: p.agent.ValueLoss(),
				KL:          p.agent.ApproxKL(),
			},
		},
	}
}

// splitQuota splits total timesteps across n workers, assigning the
// remainder to the first workers
func splitQuota(total, n int) []int {
	quotas := make([]int, n)
	for i := range quotas {
		quotas[i] = total / n
		if i < total%n {
			quotas[i]++
		}
	}
	return quotas
}

// EvalEpisode runs a single episode on the trainer's environment with
// the agent's current policy in evaluation mode, returning the
// episode's return, its length, and its final timestep.
func (p *PPO) EvalEpisode() (float64, int, ts.TimeStep, error) {
	p.agent.Eval()
	defer p.agent.Train()

	step := p.env.Reset()
	if err := p.agent.ObserveFirst(step); err != nil {
		return 0, 0, ts.TimeStep{}, fmt.Errorf("evalEpisode: %v", err)
	}

	var ret float64
	length := 0
	for {
		action := p.agent.SelectAction(step)
		next, last := p.env.Step(action)
		if err := p.agent.Observe(action, next); err != nil {
			return 0, 0, ts.TimeStep{}, fmt.Errorf("evalEpisode: %v", err)
		}

		ret += next.Reward
		length++
		step = next
		if last {
			break
		}
	}
	p.agent.EndEpisode()

	return ret, length, step, nil
}

// EnvName returns the name of the environment the trainer trains on
func (p *PPO) EnvName() string { return p.envName }

// Agent returns the trainer's agent
func (p *PPO) Agent() agent.Agent { return p.agent }

// Env returns the trainer's environment. Rollout workers use their
// own environment instances; the returned environment is free for
// evaluation use between calls to Train.
func (p *PPO) Env() environment.Environment { return p.env }

// Config returns a copy of the trainer's configuration
func (p *PPO) Config() PPOConfig { return p.config }

// Close cleans up the trainer's agent and workers
func (p *PPO) Close() error {
	var firstErr error
	for _, w := range p.workers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := p.agent.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
