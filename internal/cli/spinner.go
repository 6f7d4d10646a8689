package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinner redraws a single status line with the time spent so far until it
// is stopped or its context ends. Long searches can run for minutes, so the
// elapsed time is part of the line.
type spinner struct {
	w       io.Writer
	message string
	start   time.Time

	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once

	width int // widest line drawn; read only after done is closed
}

// startSpinner starts animating message on w.
func startSpinner(ctx context.Context, w io.Writer, message string) *spinner {
	s := &spinner{
		w:       w,
		message: message,
		start:   time.Now(),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *spinner) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case <-ticker.C:
			line := fmt.Sprintf("%s %s %s",
				styleIconSpinner.Render(spinnerFrames[frame%len(spinnerFrames)]),
				StyleDim.Render(s.message),
				StyleDim.Render(time.Since(s.start).Truncate(100*time.Millisecond).String()))
			s.width = max(s.width, lipgloss.Width(line))
			fmt.Fprint(s.w, "\r"+line)
		}
	}
}

// stop ends the animation, clears the line and returns how long the spinner
// ran. It is safe to call more than once.
func (s *spinner) stop() time.Duration {
	s.quitOnce.Do(func() { close(s.quit) })
	<-s.done
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
		s.width = 0
	}
	return time.Since(s.start)
}

// fail stops the spinner and prints message as an error.
func (s *spinner) fail(message string) {
	s.stop()
	printError("%s", message)
}
