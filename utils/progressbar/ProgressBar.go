// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"strings"
	"time"
)

// ProgressBar implements a concurrent progress bar. All updates are
// done in a separate goroutine so that the progress bar runs
// concurrently with the process whose progress it displays.
type ProgressBar struct {
	// width determines the number of characters wide that the progress
	// bar should be
	width float64

	// maxProgress determines the number of times Increment() should
	// be called before the progress bar reaches 100%
	maxProgress float64

	// currentProgress measures the number of times Increment() was
	// called
	currentProgress float64

	incrementEvent chan float64
	closeEvent     chan struct{}
	closed         bool

	updateEvery time.Duration
}

// New returns a new progress bar that is width characters wide and
// reaches 100% capacity after max Increment() calls. The progress bar
// redraws every updateEvery and on every increment.
func New(width, max int, updateEvery time.Duration) *ProgressBar {
	return &ProgressBar{
		width:           float64(width),
		maxProgress:     float64(max),
		currentProgress: 0,
		incrementEvent:  make(chan float64),
		closeEvent:      make(chan struct{}),
		closed:          false,
		updateEvery:     updateEvery,
	}
}

// Increment increments the internal progress counter. Each time an
// iteration of the tracked process completes, Increment should be
// called.
func (pbar *ProgressBar) Increment() {
	if pbar.closed {
		return
	}
	select {
	case pbar.incrementEvent <- 1:
	case <-pbar.closeEvent:
	}
}

// Close closes the progress bar so that it will no longer display to
// the screen, cleaning up any resources the progress bar is using.
func (pbar *ProgressBar) Close() {
	if pbar.closed {
		panic("close: close on closed progress bar")
	}
	close(pbar.closeEvent)
	pbar.closed = true
	fmt.Println() // Jump to next line after the printed bar
}

// Display displays the progress bar on the screen. It should only be
// called once.
func (pbar *ProgressBar) Display() {
	go func() {
		currentProgress := pbar.currentProgress
		maxProgress := pbar.maxProgress
		width := pbar.width

		tick := time.NewTicker(pbar.updateEvery)
		start := time.Now()

		var bar strings.Builder

		for {
			select {
			case inc := <-pbar.incrementEvent:
				currentProgress += inc

			case <-tick.C:

			case <-pbar.closeEvent:
				tick.Stop()
				return
			}

			bar.Reset()
			bar.WriteString("|")

			currentProg := currentProgress / maxProgress * width
			for i := 0.0; i < currentProg; i++ {
				bar.WriteString("█")
			}
			for i := currentProg; i < width; i++ {
				bar.WriteString(" ")
			}
			fmt.Fprintf(&bar, "| [%.2f%% | elapsed: %v]",
				currentProgress/maxProgress*100,
				time.Since(start).Round(time.Second))

			fmt.Printf("\n\033[1A\033[K%v", bar.String())
		}
	}()
}
