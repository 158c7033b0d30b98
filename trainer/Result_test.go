package trainer

import (
	"strings"
	"testing"
)

func testResult() Result {
	return Result{
		EpisodeRewardMean: 22.3,
		EpisodeRewardMin:  9.0,
		EpisodeRewardMax:  86.0,
		EpisodeLenMean:    22.3,
		EpisodesThisIter:  179,
		TimestepsTotal:    4000,
		TrainingIteration: 1,
		Info: Result{
			Learner: Result{
				PolicyLoss:  -0.012,
				ValueFnLoss: 170.2,
				KL:          0.018,
			},
		},
	}
}

func TestPrettyPrintNonEmpty(t *testing.T) {
	if out := PrettyPrint(testResult()); out == "" {
		t.Errorf("pretty printed result is empty")
	}
	if out := PrettyPrint(Result{}); out != "" {
		t.Errorf("pretty printed empty result should be empty, got %q",
			out)
	}
}

func TestPrettyPrintContainsKeys(t *testing.T) {
	out := PrettyPrint(testResult())

	keys := []string{
		EpisodeRewardMean,
		EpisodeRewardMin,
		EpisodeRewardMax,
		TrainingIteration,
		PolicyLoss,
		ValueFnLoss,
		KL,
	}
	for _, key := range keys {
		if !strings.Contains(out, key) {
			t.Errorf("output missing key %q", key)
		}
	}
}

func TestPrettyPrintSortsAndNests(t *testing.T) {
	out := PrettyPrint(testResult())

	// Top-level keys appear in sorted order
	if strings.Index(out, EpisodeLenMean) > strings.Index(out,
		EpisodeRewardMean) {
		t.Errorf("keys are not sorted")
	}

	// Nested learner stats are indented below the info key
	if strings.Index(out, Info) > strings.Index(out, PolicyLoss) {
		t.Errorf("nested keys should follow their parent key")
	}
	lines := strings.Split(out, "\n")
	foundIndented := false
	for _, line := range lines {
		if strings.HasPrefix(line, "  ") &&
			strings.Contains(line, Learner) {
			foundIndented = true
		}
	}
	if !foundIndented {
		t.Errorf("nested result should be indented")
	}
}
