// based on https://dusted.codes/creating-a-pretty-console-logger-using-gos-slog-package
package prettylog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

const (
	timeFormat = "15:04:05.000"
)

const (
	reset = "\033[0m"

	darkGray = 90
	lightRed = 91
	yellow   = 33
	cyan     = 36
	white    = 97
)

func colorize(colorCode int, v string) string {
	return fmt.Sprintf("\033[%dm%s%s", colorCode, v, reset)
}

type handler struct {
	level  slog.Leveler
	out    io.Writer
	mu     *sync.Mutex
	attrs  []slog.Attr
	groups []string
}

// NewHandler returns a colored handler. Each record starts with a time and
// level prefix, attributes follow as indented JSON.
func NewHandler(out io.Writer, level slog.Leveler) slog.Handler {
	return &handler{
		level: level,
		out:   out,
		mu:    new(sync.Mutex),
	}
}

func (h *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	for _, a := range attrs {
		h2.attrs = append(h2.attrs[:len(h2.attrs):len(h2.attrs)], h.qualify(a))
	}
	return &h2
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.groups = append(h2.groups[:len(h2.groups):len(h2.groups)], name)
	return &h2
}

func (h *handler) qualify(a slog.Attr) slog.Attr {
	for i := len(h.groups) - 1; i >= 0; i-- {
		a = slog.Group(h.groups[i], a)
	}
	return a
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"

	switch {
	case r.Level >= slog.LevelError:
		level = colorize(lightRed, level)
	case r.Level >= slog.LevelWarn:
		level = colorize(yellow, level)
	case r.Level >= slog.LevelInfo:
		level = colorize(cyan, level)
	default:
		level = colorize(darkGray, level)
	}

	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addAttr(attrs, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(attrs, h.qualify(a))
		return true
	})

	buf := new(bytes.Buffer)
	buf.WriteString(colorize(darkGray, r.Time.Format(timeFormat)))
	buf.WriteString(" ")
	buf.WriteString(level)
	buf.WriteString(" ")
	buf.WriteString(colorize(white, r.Message))
	if len(attrs) > 0 {
		buf.WriteString(" ")
		buf.WriteString(colorize(darkGray, attributesToString(attrs)))
	}
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func addAttr(attrs map[string]any, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := make(map[string]any)
		for _, ga := range a.Value.Group() {
			addAttr(group, ga)
		}
		if a.Key == "" {
			for k, v := range group {
				attrs[k] = v
			}
			return
		}
		if existing, ok := attrs[a.Key].(map[string]any); ok {
			for k, v := range group {
				existing[k] = v
			}
			return
		}
		attrs[a.Key] = group
		return
	}
	attrs[a.Key] = convert(a.Value.Any())
}

func attributesToString(attrs map[string]any) string {
	asJson, err := json.MarshalIndent(attrs, "  ", "  ")
	if err != nil {
		return fmt.Sprintf("%v", attrs)
	}
	return string(asJson)
}

// Loggable values control how they appear in the log. Types carrying key
// material implement it to avoid printing secrets.
type Loggable interface {
	ToLog() any
}

func convert(value any) any {
	switch v := value.(type) {
	case nil:
		return "nil"
	case Loggable:
		return v.ToLog()
	case error:
		return v.Error()
	case []byte:
		return fmt.Sprintf("[%d bytes]", len(v))
	case fmt.Stringer:
		return v.String()
	}
	if _, err := json.Marshal(value); err != nil {
		return fmt.Sprintf("%v", value)
	}
	return value
}
