// Package experiment implements functionality for running an
// experiment
package experiment

import (
	ts "github.com/samuelfneumann/goppo/timestep"
)

// Experiment outlines structs that can run experiments. Experiments
// track environment TimeSteps, caching data about each TimeStep in
// RAM to be later saved to disk with the Save() method. The Run()
// method runs all episodes until the maximum timestep limit is
// reached. The RunEpisode() method runs a single episode.
//
// Experiments use Trackers to determine which data generated during
// the experiment is saved. Experiments send each TimeStep to their
// Trackers using the Tracker's Track() method.
type Experiment interface {
	Run() error

	// RunEpisode runs a single episode, returning whether the
	// experiment's timestep limit has been reached
	RunEpisode() (bool, error)

	// Save all tracked data to disk
	Save()

	track(ts.TimeStep)
}
