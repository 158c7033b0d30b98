package tracker

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/goppo/timestep"
)

// episode sends a synthetic episode of the given length and per-step
// reward to each argument Tracker
func episode(length int, reward float64, trackers ...Tracker) {
	obs := mat.NewVecDense(1, nil)

	for _, tr := range trackers {
		tr.Track(ts.New(ts.First, 0.0, 1.0, obs, 0))
	}
	for i := 1; i <= length; i++ {
		stepType := ts.Mid
		if i == length {
			stepType = ts.Last
		}
		for _, tr := range trackers {
			tr.Track(ts.New(stepType, reward, 1.0, obs, i))
		}
	}
}

func TestReturnTracker(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	r := NewReturn(filename)

	episode(3, 1.0, r)
	episode(5, -1.0, r)

	r.Save()
	data := LoadData(filename)

	expected := []float64{3.0, -5.0}
	if len(data) != len(expected) {
		t.Fatalf("loaded %v returns, expected %v", len(data),
			len(expected))
	}
	for i := range expected {
		if data[i] != expected[i] {
			t.Errorf("return %d = %v, expected %v", i, data[i],
				expected[i])
		}
	}
}

func TestEpisodeLengthTracker(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "lengths.bin")
	e := NewEpisodeLength(filename)

	episode(3, 1.0, e)
	episode(7, 1.0, e)

	e.Save()
	data := LoadData(filename)

	expected := []float64{3.0, 7.0}
	if len(data) != len(expected) {
		t.Fatalf("loaded %v lengths, expected %v", len(data),
			len(expected))
	}
	for i := range expected {
		if data[i] != expected[i] {
			t.Errorf("length %d = %v, expected %v", i, data[i],
				expected[i])
		}
	}
}

func TestReturnTrackerPanicsOnNonSequentialSteps(t *testing.T) {
	r := NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	r.Track(ts.New(ts.First, 0.0, 1.0, mat.NewVecDense(1, nil), 0))

	defer func() {
		if recover() == nil {
			t.Errorf("expected panic for non-sequential timesteps")
		}
	}()
	r.Track(ts.New(ts.Mid, 1.0, 1.0, mat.NewVecDense(1, nil), 5))
}

func TestLearningCurveSavesPlot(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "curve.png")
	l := NewLearningCurve(filename)

	episode(3, 1.0, l)
	episode(5, 1.0, l)

	l.Save()

	info, err := os.Stat(filename)
	if err != nil {
		t.Fatalf("could not access saved plot: %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("saved plot is empty")
	}
}
