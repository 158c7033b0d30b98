package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/samuelfneumann/goppo/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/goppo/environment/envconfig"
	"github.com/samuelfneumann/goppo/executor"
	"github.com/samuelfneumann/goppo/experiment"
	"github.com/samuelfneumann/goppo/experiment/tracker"
	"github.com/samuelfneumann/goppo/trainer"
	"github.com/samuelfneumann/goppo/utils/progressbar"
)

var (
	envName    string
	iterations int
	numWorkers int
	seed       uint64
	renderPath string
	trackDir   string
)

var rootCmd = &cobra.Command{
	Use:   "goppo",
	Short: "Train a PPO agent on a classic control environment",
	Long: "Trains a PPO agent with default hyperparameters on a named " +
		"environment,\nprinting the metrics of every training iteration. " +
		"Available environments:\n\n\t" +
		strings.Join(envconfig.Names(), "\n\t"),
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&envName, "env", "CartPole-v0",
		"name of the environment to train on")
	rootCmd.Flags().IntVar(&iterations, "iterations", 1,
		"number of training iterations to run")
	rootCmd.Flags().IntVar(&numWorkers, "num-workers", 1,
		"number of parallel rollout workers")
	rootCmd.Flags().Uint64Var(&seed, "seed", 0,
		"random seed for environments and action sampling")
	rootCmd.Flags().StringVar(&renderPath, "render", "",
		"render a frame of the final evaluation state to this PNG file")
	rootCmd.Flags().StringVar(&trackDir, "track", "",
		"record evaluation episodes to this directory")
}

func run(cmd *cobra.Command, args []string) error {
	if err := executor.Init(executor.DefaultConfig()); err != nil {
		return err
	}
	defer executor.Shutdown()

	config := trainer.DefaultPPOConfig()
	config.NumWorkers = numWorkers
	config.Seed = seed

	t, err := trainer.NewPPO(config, envName)
	if err != nil {
		return err
	}
	defer t.Close()

	var bar *progressbar.ProgressBar
	if iterations > 1 {
		bar = progressbar.New(50, iterations, time.Second)
		bar.Display()
	}

	for i := 0; i < iterations; i++ {
		result, err := t.Train()
		if err != nil {
			return err
		}
		fmt.Println(trainer.PrettyPrint(result))
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Close()
	}

	if trackDir != "" {
		if err := evaluate(t); err != nil {
			return err
		}
	}

	if renderPath != "" {
		if !strings.HasPrefix(envName, "CartPole") {
			return fmt.Errorf("run: rendering is only supported for " +
				"CartPole environments")
		}
		_, _, final, err := t.EvalEpisode()
		if err != nil {
			return err
		}
		if err := cartpole.SaveFrame(final.Observation, renderPath); err != nil {
			return err
		}
	}

	return nil
}

// evaluate records evaluation episodes of the trained agent with the
// trackers writing to trackDir
func evaluate(t *trainer.PPO) error {
	if err := os.MkdirAll(trackDir, 0755); err != nil {
		return err
	}

	a := t.Agent()
	a.Eval()
	defer a.Train()

	// One epoch worth of evaluation steps
	steps := uint(t.Config().TrainBatchSize)
	exp := experiment.NewOnline(t.Env(), a, steps,
		tracker.NewReturn(filepath.Join(trackDir, "returns.bin")),
		tracker.NewEpisodeLength(filepath.Join(trackDir,
			"episode_lengths.bin")),
		tracker.NewLearningCurve(filepath.Join(trackDir,
			"learning_curve.png")),
	)
	if err := exp.Run(); err != nil {
		return err
	}
	exp.Save()

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
