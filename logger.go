package sdftext

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/sdftext/gpusink"
	"github.com/gogpu/sdftext/sdfcache"
	"github.com/gogpu/sdftext/typeset"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for sdftext and all its sub-packages.
// By default, sdftext produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by sdftext:
//   - [slog.LevelDebug]: per-request diagnostics (request ID, glyph counts, timings)
//   - [slog.LevelInfo]: lifecycle events (configuration frozen, worker pool started)
//   - [slog.LevelWarn]: non-fatal issues (late Configure, font fallback, cache backend errors)
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	sdftext.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	propagateLogger(l)
}

// Logger returns the current logger used by sdftext.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// propagateLogger hands the logger to the sub-packages, which cannot import
// the root package.
func propagateLogger(l *slog.Logger) {
	typeset.SetLogger(l)
	sdfcache.SetLogger(l)
	gpusink.SetLogger(l)
}
