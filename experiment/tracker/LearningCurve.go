package tracker

import (
	"log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	ts "github.com/samuelfneumann/goppo/timestep"
)

// LearningCurve tracks episodic returns and saves them as a learning
// curve plot, with episode numbers along the horizontal axis and
// episodic returns along the vertical axis.
type LearningCurve struct {
	lastTimeStep   int
	currentReturn  float64
	episodeReturns plotter.XYs
	filename       string
}

// NewLearningCurve returns a new LearningCurve Tracker which saves a
// plot of its data at the specified location filename. The filename
// extension selects the image format, for example learning_curve.png.
func NewLearningCurve(filename string) Tracker {
	return &LearningCurve{
		lastTimeStep: -1,
		filename:     filename,
	}
}

// Track accumulates the return of the current episode and caches a
// plot point once the episode ends
func (l *LearningCurve) Track(step ts.TimeStep) {
	l.currentReturn += step.Reward
	l.lastTimeStep = step.Number

	if step.Last() {
		l.episodeReturns = append(l.episodeReturns, plotter.XY{
			X: float64(len(l.episodeReturns)),
			Y: l.currentReturn,
		})
		l.currentReturn = 0.0
		l.lastTimeStep = -1
	}
}

// Save renders the learning curve and saves it to disk
func (l *LearningCurve) Save() {
	p := plot.New()
	p.Title.Text = "Learning Curve"
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = "Return"

	line, err := plotter.NewLine(l.episodeReturns)
	if err != nil {
		log.Fatalf("could not plot learning curve: %v", err)
	}
	p.Add(line)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, l.filename); err != nil {
		log.Fatalf("could not save learning curve: %v", err)
	}
}
