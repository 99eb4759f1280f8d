package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	infoColor  = color.New(color.FgHiBlack)
	warnColor  = color.New(color.FgHiYellow)
	errorColor = color.New(color.FgHiRed)
	compColor  = color.New(color.FgCyan)
)

// Init installs the process-wide slog logger with a colored console
// handler. Debug enables debug-level records.
func Init(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	l := slog.New(newConsoleHandler(os.Stdout, level))
	slog.SetDefault(l)
	return l
}

type consoleHandler struct {
	w     io.Writer
	level slog.Level
	attrs []slog.Attr
	mu    *sync.Mutex
}

func newConsoleHandler(w io.Writer, level slog.Level) *consoleHandler {
	return &consoleHandler{w: w, level: level, mu: &sync.Mutex{}}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var levelStr string
	var levelColor *color.Color
	switch {
	case r.Level >= slog.LevelError:
		levelStr, levelColor = "ERROR", errorColor
	case r.Level >= slog.LevelWarn:
		levelStr, levelColor = "WARN", warnColor
	default:
		levelStr, levelColor = "INFO", infoColor
	}

	var b strings.Builder
	component := ""
	appendAttr := func(a slog.Attr) {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(a)
		return true
	})

	// 15:04:05 [LEVEL] [COMPONENT] message key=value
	fmt.Fprintf(h.w, "%s %s", time.Now().Format("15:04:05"), levelColor.Sprintf("[%s]", levelStr))
	if component != "" {
		fmt.Fprintf(h.w, " %s", compColor.Sprintf("[%s]", component))
	}
	fmt.Fprintf(h.w, " %s%s\n", r.Message, b.String())
	return nil
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{w: h.w, level: h.level, attrs: merged, mu: h.mu}
}

func (h *consoleHandler) WithGroup(string) slog.Handler { return h }
