// Package logging builds the structured logger used throughout
// sarchive: a thin wrapper over log/slog configuring level, output
// stream, and text-vs-JSON handler selection from CLI flags. When
// logging to a file it also hands back a ReopenableFile so the CLI can
// rotate the log on SIGHUP without restarting the daemon.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Options configures the logger returned by New.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to
	// "info" when empty or unrecognized.
	Level string
	// JSON selects slog.NewJSONHandler over slog.NewTextHandler.
	JSON bool
	// AddSource includes the calling file:line in each record.
	AddSource bool
	// Output is where records are written. Takes precedence over
	// OutputPath. Defaults to os.Stderr when neither is set.
	Output io.Writer
	// OutputPath, if set and Output is nil, is opened for append and
	// wrapped in a ReopenableFile.
	OutputPath string
}

// New builds a *slog.Logger from opts. The returned *ReopenableFile is
// non-nil only when opts.OutputPath was used to open the log; the
// caller owns it and must Close it on shutdown.
func New(opts Options) (*slog.Logger, *ReopenableFile, error) {
	handlerOpts := &slog.HandlerOptions{
		Level:     parseLevel(opts.Level),
		AddSource: opts.AddSource,
	}

	var out io.Writer
	var rf *ReopenableFile
	switch {
	case opts.Output != nil:
		out = opts.Output
	case opts.OutputPath != "":
		f, err := NewReopenableFile(opts.OutputPath)
		if err != nil {
			return nil, nil, err
		}
		rf = f
		out = f
	default:
		out = os.Stderr
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler), rf, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ReopenableFile wraps an *os.File opened in append mode so a SIGHUP
// handler can swap in a freshly-opened handle at the same path — the
// usual logrotate dance — without the logger ever holding a stale fd.
type ReopenableFile struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewReopenableFile opens path for append, creating it if necessary.
func NewReopenableFile(path string) (*ReopenableFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	return &ReopenableFile{path: path, file: f}, nil
}

// Write implements io.Writer, forwarding to the currently open file.
func (r *ReopenableFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Write(p)
}

// Reopen closes the current handle and opens a new one at the same
// path, picking up a file a log rotator has since moved the old path
// out from under. Safe to call concurrently with Write.
func (r *ReopenableFile) Reopen() error {
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logging: reopen %s: %w", r.path, err)
	}
	r.mu.Lock()
	old := r.file
	r.file = f
	r.mu.Unlock()
	return old.Close()
}

// Close closes the underlying file.
func (r *ReopenableFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
