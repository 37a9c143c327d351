package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/gookit/color"
)

// NewLogger builds the process-wide slog.Logger: JSON on stdout for
// production, a colorized single-line handler when LOG_PRETTY is set.
func NewLogger(level string, pretty bool) *slog.Logger {
	lvl := parseLevel(level)
	if pretty {
		return slog.New(newPrettyHandler(os.Stdout, lvl))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// prettyHandler is a development handler: colored level, short timestamp,
// key=value attrs. Not used in production paths.
type prettyHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Level
	attrs []slog.Attr
}

func newPrettyHandler(out io.Writer, level slog.Level) *prettyHandler {
	return &prettyHandler{mu: &sync.Mutex{}, out: out, level: level}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(coloredLevel(record.Level))
	b.WriteByte(' ')
	b.WriteString(record.Message)

	for _, attr := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", attr.Key, attr.Value)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *prettyHandler) WithGroup(_ string) slog.Handler {
	// Groups are flattened; good enough for a dev handler.
	return h
}

func coloredLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return color.Red.Render("ERROR")
	case level >= slog.LevelWarn:
		return color.Yellow.Render("WARN ")
	case level >= slog.LevelInfo:
		return color.Green.Render("INFO ")
	default:
		return color.Gray.Render("DEBUG")
	}
}
