// Package cli implements the pathminer command-line interface.
//
// The CLI loads interaction networks from JSON, runs one of the search
// strategies on them, and reports, stores or renders the resulting
// subnetworks. Commands are built with cobra; diagnostics go through a
// charmbracelet/log logger carried in the command context, while results
// are printed to stdout with lipgloss styling.
//
// # Commands
//
//   - solve: Search a network for active subnetworks
//   - contract: Summarise the contracted network
//   - serve: Run the HTTP API
//   - runs: List and inspect stored runs
//   - cache: Manage the result cache
//
// # Logging
//
// --verbose (-v) enables debug output. --log-format switches between the
// human text format and json or logfmt, which suit "pathminer serve"
// running under a log collector.
package cli

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pathminer/pkg/errors"
)

// logFormats maps --log-format values to formatters.
var logFormats = map[string]log.Formatter{
	"text":   log.TextFormatter,
	"json":   log.JSONFormatter,
	"logfmt": log.LogfmtFormatter,
}

// newLogger creates a text logger with short "15:04:05.00" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// setLogFormat switches l to the named format. The machine formats use
// RFC 3339 timestamps.
func setLogFormat(l *log.Logger, name string) error {
	f, ok := logFormats[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(logFormats))
		for n := range logFormats {
			names = append(names, n)
		}
		slices.Sort(names)
		return errors.New(errors.ErrCodeInvalidInput, "unknown log format %q (use %s)", name, strings.Join(names, ", "))
	}
	l.SetFormatter(f)
	if f != log.TextFormatter {
		l.SetTimeFormat(time.RFC3339)
	}
	return nil
}

// progress logs the completion of one step together with its duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at info level with a "took" field.
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "took", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
