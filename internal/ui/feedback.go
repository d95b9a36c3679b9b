// Package ui holds the terminal versions of the login surfaces:
// the feedback line, the capture trigger, the username field and the navigator.
package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const spinnerInterval = 100 * time.Millisecond

// Feedback prints status texts. The busy text is shown as a spinner until the next text replaces it.
type Feedback struct {
	w        io.Writer
	busyText string

	mu   sync.Mutex
	last string
	bar  *progressbar.ProgressBar
	stop chan struct{}
	done chan struct{}
}

// NewFeedback writes to w; SetText(busyText) starts the spinner.
func NewFeedback(w io.Writer, busyText string) *Feedback {
	return &Feedback{w: w, busyText: busyText}
}

// SetText replaces the current feedback text.
func (f *Feedback) SetText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopSpinner()
	f.last = text

	if f.busyText != "" && text == f.busyText {
		f.startSpinner(text)
		return
	}
	fmt.Fprintf(f.w, "💬 %s\n", text)
}

// Text returns the last text set.
func (f *Feedback) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// Close stops a running spinner.
func (f *Feedback) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopSpinner()
}

func (f *Feedback) startSpinner(text string) {
	f.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("⏳ "+text),
		progressbar.OptionSetWriter(f.w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	f.stop = make(chan struct{})
	f.done = make(chan struct{})

	go func(bar *progressbar.ProgressBar, stop <-chan struct{}, done chan<- struct{}) {
		defer close(done)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bar.Add(1)
			}
		}
	}(f.bar, f.stop, f.done)
}

// stopSpinner must be called with f.mu held.
func (f *Feedback) stopSpinner() {
	if f.bar == nil {
		return
	}
	close(f.stop)
	<-f.done
	f.bar.Finish()
	f.bar = nil
}
