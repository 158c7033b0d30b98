package gae

import (
	"math"
	"testing"
)

const tolerance = 1e-10

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestStoreErrors(t *testing.T) {
	b := New(2, 1, 1, 1.0, 1.0)

	if err := b.Store([]float64{1.0}, []float64{0.0}, 1.0, 0.5,
		-0.7); err == nil {
		t.Errorf("expected error for wrong observation size")
	}
	if err := b.Store([]float64{1.0, 2.0}, []float64{}, 1.0, 0.5,
		-0.7); err == nil {
		t.Errorf("expected error for wrong action size")
	}

	if err := b.Store([]float64{1.0, 2.0}, []float64{0.0}, 1.0, 0.5,
		-0.7); err != nil {
		t.Fatalf("could not store legal transition: %v", err)
	}
	if err := b.Store([]float64{1.0, 2.0}, []float64{0.0}, 1.0, 0.5,
		-0.7); err == nil {
		t.Errorf("expected error when storing to a full buffer")
	}
}

func TestStoredAndFull(t *testing.T) {
	b := New(1, 1, 2, 0.95, 0.99)

	if b.Stored() != 0 || b.Full() {
		t.Errorf("new buffer should be empty")
	}

	b.Store([]float64{0.0}, []float64{1.0}, 1.0, 0.1, -0.5)
	if b.Stored() != 1 || b.Full() {
		t.Errorf("buffer with 1 transition misreports its size")
	}

	b.Store([]float64{1.0}, []float64{0.0}, 1.0, 0.2, -0.5)
	if b.Stored() != 2 || !b.Full() {
		t.Errorf("full buffer misreports its size")
	}
}

func TestGetRequiresFullBuffer(t *testing.T) {
	b := New(1, 1, 2, 1.0, 1.0)
	b.Store([]float64{0.0}, []float64{1.0}, 1.0, 0.1, -0.5)

	if _, _, _, _, _, err := b.Get(); err == nil {
		t.Errorf("expected error when sampling a buffer that is not full")
	}
}

// TestFinishPathTerminal checks the GAE advantages and rewards-to-go
// of a trajectory ending in a terminal state against hand-computed
// values
func TestFinishPathTerminal(t *testing.T) {
	gamma := 0.5
	lambda := 1.0
	b := New(1, 1, 3, lambda, gamma)

	rewards := []float64{1.0, 1.0, 1.0}
	values := []float64{0.5, 0.4, 0.3}
	for i := range rewards {
		err := b.Store([]float64{float64(i)}, []float64{0.0}, rewards[i],
			values[i], -0.5)
		if err != nil {
			t.Fatalf("could not store transition: %v", err)
		}
	}
	b.FinishPath(0.0)

	// deltas: 1 + 0.5*0.4 - 0.5 = 0.7
	//         1 + 0.5*0.3 - 0.4 = 0.75
	//         1 + 0.0       - 0.3 = 0.7
	// advantages with gamma*lambda = 0.5, accumulated backwards
	expectedAdv := []float64{1.25, 1.1, 0.7}
	for i := range expectedAdv {
		if !closeEnough(b.advBuffer[i], expectedAdv[i]) {
			t.Errorf("advantage %d = %v, expected %v", i, b.advBuffer[i],
				expectedAdv[i])
		}
	}

	expectedRet := []float64{1.75, 1.5, 1.0}
	for i := range expectedRet {
		if !closeEnough(b.retBuffer[i], expectedRet[i]) {
			t.Errorf("reward-to-go %d = %v, expected %v", i,
				b.retBuffer[i], expectedRet[i])
		}
	}
}

// TestFinishPathBootstrap checks that a cut-off trajectory bootstraps
// its advantage and rewards-to-go from the last state's value
func TestFinishPathBootstrap(t *testing.T) {
	b := New(1, 1, 1, 1.0, 1.0)

	if err := b.Store([]float64{0.0}, []float64{0.0}, 1.0, 0.5,
		-0.5); err != nil {
		t.Fatalf("could not store transition: %v", err)
	}
	b.FinishPath(2.0)

	// delta = 1 + 2.0 - 0.5
	if !closeEnough(b.advBuffer[0], 2.5) {
		t.Errorf("advantage = %v, expected 2.5", b.advBuffer[0])
	}
	// reward-to-go = 1 + 2.0
	if !closeEnough(b.retBuffer[0], 3.0) {
		t.Errorf("reward-to-go = %v, expected 3.0", b.retBuffer[0])
	}
}

// TestGetStandardizesAdvantages checks that sampled advantages have
// mean 0 and standard deviation 1, and that the remaining buffers come
// back unmodified
func TestGetStandardizesAdvantages(t *testing.T) {
	gamma := 0.5
	lambda := 1.0
	b := New(1, 1, 3, lambda, gamma)

	logProbs := []float64{-0.2, -0.4, -0.6}
	for i := 0; i < 3; i++ {
		err := b.Store([]float64{float64(i)}, []float64{1.0}, 1.0,
			0.5-0.1*float64(i), logProbs[i])
		if err != nil {
			t.Fatalf("could not store transition: %v", err)
		}
	}
	b.FinishPath(0.0)

	obs, act, adv, ret, logp, err := b.Get()
	if err != nil {
		t.Fatalf("could not sample full buffer: %v", err)
	}

	mean := 0.0
	for _, a := range adv {
		mean += a
	}
	mean /= float64(len(adv))
	if math.Abs(mean) > 1e-8 {
		t.Errorf("standardized advantages have mean %v, expected 0", mean)
	}

	variance := 0.0
	for _, a := range adv {
		variance += (a - mean) * (a - mean)
	}
	std := math.Sqrt(variance / float64(len(adv)-1))
	if math.Abs(std-1.0) > 1e-6 {
		t.Errorf("standardized advantages have stddev %v, expected 1", std)
	}

	for i := 0; i < 3; i++ {
		if obs[i] != float64(i) {
			t.Errorf("observation %d = %v, expected %v", i, obs[i],
				float64(i))
		}
		if act[i] != 1.0 {
			t.Errorf("action %d = %v, expected 1", i, act[i])
		}
		if logp[i] != logProbs[i] {
			t.Errorf("log probability %d = %v, expected %v", i, logp[i],
				logProbs[i])
		}
	}

	expectedRet := []float64{1.75, 1.5, 1.0}
	for i := range expectedRet {
		if !closeEnough(ret[i], expectedRet[i]) {
			t.Errorf("reward-to-go %d = %v, expected %v", i, ret[i],
				expectedRet[i])
		}
	}

	if b.Stored() != 0 {
		t.Errorf("buffer should be empty after Get")
	}
}

// TestMultiplePaths checks that two trajectories stored back to back
// keep separate advantage calculations
func TestMultiplePaths(t *testing.T) {
	gamma := 1.0
	lambda := 1.0
	b := New(1, 1, 2, lambda, gamma)

	b.Store([]float64{0.0}, []float64{0.0}, 1.0, 0.5, -0.5)
	b.FinishPath(0.0)

	b.Store([]float64{1.0}, []float64{0.0}, -1.0, 0.25, -0.5)
	b.FinishPath(0.0)

	// First path: delta = 1 - 0.5; second path: delta = -1 - 0.25
	if !closeEnough(b.advBuffer[0], 0.5) {
		t.Errorf("first path advantage = %v, expected 0.5", b.advBuffer[0])
	}
	if !closeEnough(b.advBuffer[1], -1.25) {
		t.Errorf("second path advantage = %v, expected -1.25",
			b.advBuffer[1])
	}

	if !closeEnough(b.retBuffer[0], 1.0) {
		t.Errorf("first path reward-to-go = %v, expected 1.0",
			b.retBuffer[0])
	}
	if !closeEnough(b.retBuffer[1], -1.0) {
		t.Errorf("second path reward-to-go = %v, expected -1.0",
			b.retBuffer[1])
	}
}
