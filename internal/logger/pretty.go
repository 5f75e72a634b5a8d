package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ANSI escape codes.
const (
	ansiReset   = "\033[0m"
	ansiBold    = "\033[1m"
	ansiDim     = "\033[2m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
	ansiGray    = "\033[37m"
)

// PrettyHandler writes one colored line per record:
//
//	15:04:05 INF item created item_id=item-abc tags=2
//
// Attributes inside groups are written as group.key=value.
type PrettyHandler struct {
	opts   slog.HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	prefix string // group path applied to attrs added later
	attrs  []byte // pre-rendered attrs from WithAttrs
}

// NewPrettyHandler creates a pretty handler. A nil opts logs at info level.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled reports whether level meets the configured minimum.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle renders and writes r.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(ansiDim + r.Time.Format("15:04:05") + ansiReset + " ")

	label, color := levelLabel(r.Level)
	buf.WriteString(color + label + ansiReset + " ")

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		buf.WriteString(ansiDim + filepath.Base(f.File) + ":" + strconv.Itoa(f.Line) + ansiReset + " ")
	}

	buf.WriteString(ansiBold + r.Message + ansiReset)

	var attrs bytes.Buffer
	attrs.Write(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&attrs, h.prefix, a)
		return true
	})
	if attrs.Len() > 0 {
		buf.WriteString(ansiCyan)
		buf.Write(attrs.Bytes())
		buf.WriteString(ansiReset)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs returns a handler that prints attrs on every record.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var buf bytes.Buffer
	buf.Write(h.attrs)
	for _, a := range attrs {
		appendAttr(&buf, h.prefix, a)
	}
	next := *h
	next.attrs = buf.Bytes()
	return &next
}

// WithGroup returns a handler that qualifies later attrs with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func appendAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return
		}
		if a.Key != "" {
			prefix += a.Key + "."
		}
		for _, ga := range group {
			appendAttr(buf, prefix, ga)
		}
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(prefix)
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(formatValue(a.Value))
}

func levelLabel(level slog.Level) (label, color string) {
	switch {
	case level >= slog.LevelError:
		return "ERR", ansiRed
	case level >= slog.LevelWarn:
		return "WRN", ansiYellow
	case level >= slog.LevelInfo:
		return "INF", ansiGreen
	case level >= slog.LevelDebug:
		return "DBG", ansiMagenta
	default:
		return level.String(), ansiGray
	}
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	default:
		return v.String()
	}
}
