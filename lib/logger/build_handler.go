package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BuildLogHandler wraps an slog.Handler and additionally appends every
// record to a build log file, so a finished (or failed) build leaves a
// plain-text record next to its artifacts. Records are also forwarded to an
// optional extra handler, e.g. the OpenTelemetry log bridge.
//
// Implementation follows the slog handler guide for shared state across
// WithAttrs/WithGroup: https://pkg.go.dev/golang.org/x/example/slog-handler-guide
type BuildLogHandler struct {
	slog.Handler
	extra    slog.Handler
	logPath  string
	preAttrs []slog.Attr
	group    string
}

// NewBuildLogHandler creates a handler writing to wrapped, to extra (if not
// nil) and, when logPath is not empty, to the file at logPath.
func NewBuildLogHandler(wrapped, extra slog.Handler, logPath string) *BuildLogHandler {
	return &BuildLogHandler{
		Handler: wrapped,
		extra:   extra,
		logPath: logPath,
	}
}

// Handle passes the record to the wrapped handler first, then to the extra
// handler and the build log.
func (h *BuildLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.Handler.Handle(ctx, r); err != nil {
		return err
	}

	if h.extra != nil && h.extra.Enabled(ctx, r.Level) {
		// The bridge is best effort; a collector outage must not fail the build.
		_ = h.extra.Handle(ctx, r.Clone())
	}

	if h.logPath != "" && h.Handler.Enabled(ctx, r.Level) {
		h.writeToBuildLog(r)
	}
	return nil
}

// writeToBuildLog appends a record to the build log file.
// Opens and closes the file for each write to avoid file handle leaks.
func (h *BuildLogHandler) writeToBuildLog(r slog.Record) {
	// Format log line: timestamp LEVEL message key=value key=value...
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", r.Time.Format(time.RFC3339), r.Level.String(), r.Message)

	prefix := ""
	if h.group != "" {
		prefix = h.group + "."
	}
	for _, a := range h.preAttrs {
		fmt.Fprintf(&b, " %s%s=%v", prefix, a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s%s=%v", prefix, a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(h.logPath), 0755); err != nil {
		// Use package-level slog (not our handler) to avoid recursion.
		slog.Warn("failed to create build log directory", "path", h.logPath, "error", err)
		return
	}

	f, err := os.OpenFile(h.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Warn("failed to open build log file", "path", h.logPath, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(b.String()); err != nil {
		slog.Warn("failed to write to build log file", "path", h.logPath, "error", err)
	}
}

// Enabled reports whether either destination wants records at level.
func (h *BuildLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.Handler.Enabled(ctx, level) {
		return true
	}
	return h.extra != nil && h.extra.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes.
func (h *BuildLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newPreAttrs := make([]slog.Attr, len(h.preAttrs), len(h.preAttrs)+len(attrs))
	copy(newPreAttrs, h.preAttrs)
	newPreAttrs = append(newPreAttrs, attrs...)

	var extra slog.Handler
	if h.extra != nil {
		extra = h.extra.WithAttrs(attrs)
	}
	return &BuildLogHandler{
		Handler:  h.Handler.WithAttrs(attrs),
		extra:    extra,
		logPath:  h.logPath,
		preAttrs: newPreAttrs,
		group:    h.group,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *BuildLogHandler) WithGroup(name string) slog.Handler {
	var extra slog.Handler
	if h.extra != nil {
		extra = h.extra.WithGroup(name)
	}
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &BuildLogHandler{
		Handler:  h.Handler.WithGroup(name),
		extra:    extra,
		logPath:  h.logPath,
		preAttrs: h.preAttrs,
		group:    group,
	}
}
