package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

const timeLayout = "2006-01-02 15:04:05"

type consoleHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	plain  io.Writer
	level  slog.Leveler
	styles map[slog.Level]lipgloss.Style
	color  bool
	attrs  []slog.Attr
	groups []string
}

func newConsoleHandler(w io.Writer, level slog.Leveler, color bool) *consoleHandler {
	h := &consoleHandler{mu: &sync.Mutex{}, writer: w, level: level, color: color}
	if color {
		r := lipgloss.NewRenderer(w)
		r.SetColorProfile(termenv.ANSI)
		h.styles = map[slog.Level]lipgloss.Style{
			slog.LevelDebug: r.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
			slog.LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
			slog.LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			slog.LevelError: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		}
	}
	return h
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var tail bytes.Buffer
	if msg := strings.TrimSpace(record.Message); msg != "" {
		tail.WriteString(record.Message)
	}
	for _, attr := range h.attrs {
		writeAttr(&tail, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&tail, h.groups, attr)
		return true
	})
	tail.WriteByte('\n')

	label := "[" + levelLabel(record.Level) + "]"
	prefix := ts.Format(timeLayout) + " "

	h.mu.Lock()
	defer h.mu.Unlock()

	colored := label
	if h.color {
		colored = h.styles[bucket(record.Level)].Render(label)
	}
	if _, err := io.WriteString(h.writer, prefix+colored+" "+tail.String()); err != nil {
		return err
	}
	if h.plain != nil {
		if _, err := io.WriteString(h.plain, prefix+label+" "+tail.String()); err != nil {
			return err
		}
	}
	return nil
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func writeAttr(buf *bytes.Buffer, groups []string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		next := groups
		if attr.Key != "" {
			next = append(append([]string{}, groups...), attr.Key)
		}
		for _, a := range attr.Value.Group() {
			writeAttr(buf, next, a)
		}
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteByte('=')
	buf.WriteString(formatValue(attr.Value))
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return true
		}
	}
	return false
}

func bucket(level slog.Level) slog.Level {
	switch {
	case level >= slog.LevelError:
		return slog.LevelError
	case level >= slog.LevelWarn:
		return slog.LevelWarn
	case level >= slog.LevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func levelLabel(level slog.Level) string {
	switch bucket(level) {
	case slog.LevelError:
		return "ERROR"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
