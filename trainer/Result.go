package trainer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/logrusorgru/aurora"
)

// Result holds the metrics of a single training iteration as a nested
// key to value mapping. Nested values are themselves Results.
type Result map[string]interface{}

// Learner-statistics keys of a Result
const (
	EpisodeRewardMean = "episode_reward_mean"
	EpisodeRewardMin  = "episode_reward_min"
	EpisodeRewardMax  = "episode_reward_max"
	EpisodeLenMean    = "episode_len_mean"
	EpisodesThisIter  = "episodes_this_iter"
	EpisodesTotal     = "episodes_total"
	TimestepsThisIter = "timesteps_this_iter"
	TimestepsTotal    = "timesteps_total"
	TrainingIteration = "training_iteration"
	TimeThisIterS     = "time_this_iter_s"
	TimeTotalS        = "time_total_s"
	Info              = "info"
	Learner           = "learner"
	PolicyLoss        = "policy_loss"
	ValueFnLoss       = "vf_loss"
	KL                = "kl"
)

// PrettyPrint renders a Result as indented key: value lines with the
// keys sorted and colored. Nested Results are indented below their
// keys.
func PrettyPrint(r Result) string {
	var b strings.Builder
	prettyPrint(&b, r, 0)
	return b.String()
}

func prettyPrint(b *strings.Builder, r Result, depth int) {
	indent := strings.Repeat("  ", depth)

	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch value := r[key].(type) {
		case Result:
			fmt.Fprintf(b, "%v%v:\n", indent, aurora.Cyan(key))
			prettyPrint(b, value, depth+1)
		case float64:
			fmt.Fprintf(b, "%v%v: %.6g\n", indent, aurora.Cyan(key), value)
		default:
			fmt.Fprintf(b, "%v%v: %v\n", indent, aurora.Cyan(key), value)
		}
	}
}
