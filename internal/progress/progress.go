// Package progress reports a streamed reply on the terminal: a spinner
// until the first text arrives, then the text as it grows.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter receives the lifecycle of one streamed reply.
type Reporter interface {
	Start(description string)
	// Update receives the aggregated reply so far.
	Update(text string)
	Finish()
	Error(err error)
}

// CLIProgress writes the reply to out and shows a spinner on errOut while
// waiting for the first chunk. The spinner is only drawn on a terminal.
type CLIProgress struct {
	out    io.Writer
	errOut io.Writer
	tty    bool

	mu      sync.Mutex
	spinner *progressbar.ProgressBar
	stopC   chan struct{}
	printed int
}

// NewCLIProgress creates a reporter writing the reply to out. The spinner
// goes to errOut when tty is set.
func NewCLIProgress(out, errOut io.Writer, tty bool) *CLIProgress {
	if f, ok := errOut.(*os.File); ok && tty {
		enableWindowsANSI(f)
	}
	return &CLIProgress{out: out, errOut: errOut, tty: tty}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start shows the spinner with description.
func (p *CLIProgress) Start(description string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.printed = 0
	if !p.tty {
		return
	}

	p.spinner = progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.errOut),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	p.stopC = make(chan struct{})
	go p.spin(p.spinner, p.stopC)
}

func (p *CLIProgress) spin(bar *progressbar.ProgressBar, stopC chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stopC:
			return
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}

// stopSpinner must be called with p.mu held.
func (p *CLIProgress) stopSpinner() {
	if p.spinner == nil {
		return
	}
	close(p.stopC)
	_ = p.spinner.Finish()
	p.spinner = nil
}

// Update prints the part of text not printed yet.
func (p *CLIProgress) Update(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopSpinner()
	if len(text) < p.printed {
		// Not a continuation of what was printed; start a new line
		fmt.Fprintln(p.out)
		p.printed = 0
	}
	fmt.Fprint(p.out, text[p.printed:])
	p.printed = len(text)
}

// Finish stops the spinner and ends the reply line.
func (p *CLIProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopSpinner()
	if p.printed > 0 {
		fmt.Fprintln(p.out)
	}
}

// Error stops the spinner and displays an error message.
func (p *CLIProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopSpinner()
	if err != nil {
		fmt.Fprintf(p.errOut, "\nError: %v\n", err)
	}
}

// NoOpProgress is a progress reporter that does nothing (for background/silent operations).
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

// Start does nothing.
func (p *NoOpProgress) Start(description string) {}

// Update does nothing.
func (p *NoOpProgress) Update(text string) {}

// Finish does nothing.
func (p *NoOpProgress) Finish() {}

// Error does nothing.
func (p *NoOpProgress) Error(err error) {}
