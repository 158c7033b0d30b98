// Package envconfig provides configuration structs for constructing
// environments with default physical parameters and tasks, along with
// a registry of well-known environment names. Environment
// configurations in this package are JSON serializable.
package envconfig

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/goppo/environment/classiccontrol/mountaincar"
	ts "github.com/samuelfneumann/goppo/timestep"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Cartpole    EnvName = "Cartpole"
	MountainCar EnvName = "MountainCar"
)

// TaskName stores the tasks that can be configured with this package
type TaskName string

// Tasks available for configuration
const (
	Balance TaskName = "Balance"
	Goal    TaskName = "Goal"
)

// Config implements a specific configuration of a specific environment
// and specific task. Not all environments can have all tasks.
type Config struct {
	Environment   EnvName
	Task          TaskName
	EpisodeCutoff uint
	Discount      float64
}

// registry maps well-known environment names to their configurations.
// The names follow the common benchmark-suite convention, where the
// version suffix selects the episode cutoff.
var registry = map[string]Config{
	"CartPole-v0": {
		Environment:   Cartpole,
		Task:          Balance,
		EpisodeCutoff: 200,
		Discount:      1.0,
	},
	"CartPole-v1": {
		Environment:   Cartpole,
		Task:          Balance,
		EpisodeCutoff: 500,
		Discount:      1.0,
	},
	"MountainCar-v0": {
		Environment:   MountainCar,
		Task:          Goal,
		EpisodeCutoff: 200,
		Discount:      1.0,
	},
}

// FromName returns the Config registered under a well-known
// environment name such as "CartPole-v0"
func FromName(name string) (Config, error) {
	c, ok := registry[name]
	if !ok {
		return Config{}, fmt.Errorf("fromName: no environment registered "+
			"under name %v", name)
	}
	return c, nil
}

// Names returns the well-known environment names that can be given to
// FromName
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// NewConfig returns a new environment Config
func NewConfig(envName EnvName, taskName TaskName, episodeCutoff uint,
	discount float64) Config {
	return Config{
		Environment:   envName,
		Task:          taskName,
		EpisodeCutoff: episodeCutoff,
		Discount:      discount,
	}
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep, error) {
	switch c.Environment {
	case Cartpole:
		return createCartpole(c.Task, int(c.EpisodeCutoff), seed, c.Discount)
	case MountainCar:
		return createMountainCar(c.Task, int(c.EpisodeCutoff), seed,
			c.Discount)
	}

	return nil, ts.TimeStep{}, fmt.Errorf("create: cannot create "+
		"environment %v, no such environment", c.Environment)
}

// createCartpole is a factory for creating the Cartpole environment
// with default physical parameters and default task parameters
func createCartpole(taskName TaskName, cutoff int, seed uint64,
	discount float64) (env.Environment, ts.TimeStep, error) {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	s := env.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, seed)

	var task env.Task
	switch taskName {
	case Balance:
		task = cartpole.NewBalance(s, cutoff, cartpole.FailAngle,
			cartpole.FailPosition)

	default:
		return nil, ts.TimeStep{}, fmt.Errorf("createCartpole: Cartpole "+
			"environment has no task %v", taskName)
	}

	return cartpole.NewDiscrete(task, discount)
}

// createMountainCar is a factory for creating the Mountain Car
// environment with default physical parameters and default task
// parameters
func createMountainCar(taskName TaskName, cutoff int, seed uint64,
	discount float64) (env.Environment, ts.TimeStep, error) {
	s := env.NewUniformStarter([]r1.Interval{
		{Min: -0.6, Max: -0.4},
		{Min: 0.0, Max: 0.0},
	}, seed)

	var task env.Task
	switch taskName {
	case Goal:
		task = mountaincar.NewGoal(s, cutoff, mountaincar.GoalPosition)

	default:
		return nil, ts.TimeStep{}, fmt.Errorf("createMountainCar: "+
			"Mountain Car environment has no task %v", taskName)
	}

	return mountaincar.NewDiscrete(task, discount)
}
