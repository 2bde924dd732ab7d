package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const logTimestampLayout = "2006-01-02 15:04:05"

// consoleHandler renders one header line per record followed by indented
// "Label: value" fields. Attributes added through With are flattened once,
// when the derived logger is built.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	bound     []kv
	groups    []string
	addSource bool
}

type kv struct {
	key   string
	value slog.Value
}

// header holds the fields lifted out of the attribute list into the first line.
type header struct {
	component string
	itemKey   string
	stage     string
}

func (h *header) take(field kv) bool {
	switch field.key {
	case FieldComponent:
		h.component = attrString(field.value)
	case FieldItemKey:
		h.itemKey = attrString(field.value)
	case FieldStage:
		h.stage = attrString(field.value)
	default:
		return false
	}
	return true
}

// subject renders "dlsite/RJ01234567 (scrape)" style prefixes.
func (h header) subject() string {
	key, stage := strings.TrimSpace(h.itemKey), strings.TrimSpace(h.stage)
	if key != "" && stage != "" {
		return key + " (" + stage + ")"
	}
	return key + stage
}

func newPrettyHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]kv, len(h.bound), len(h.bound)+record.NumAttrs())
	copy(fields, h.bound)
	record.Attrs(func(attr slog.Attr) bool {
		fields = flattenAttr(fields, h.groups, attr)
		return true
	})

	var head header
	rest := fields[:0]
	for _, field := range lastWins(fields) {
		if !head.take(field) {
			rest = append(rest, field)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var b strings.Builder
	b.WriteString(ts.Local().Format(logTimestampLayout))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	if head.component != "" {
		b.WriteString(" [" + head.component + "]")
	}
	if subject := head.subject(); subject != "" {
		b.WriteString(" " + subject)
	}
	b.WriteString(" - ")
	b.WriteString(msg)
	if h.addSource {
		if src := record.Source(); src != nil {
			b.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
		}
	}
	b.WriteByte('\n')

	verbose := record.Level < slog.LevelInfo
	for _, field := range orderFields(rest) {
		if !verbose && skipInfoKey(field.key) {
			continue
		}
		b.WriteString("    - " + displayLabel(field.key) + ": " + formatValue(field.value) + "\n")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.derive()
	for _, attr := range attrs {
		next.bound = flattenAttr(next.bound, next.groups, attr)
	}
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	next := h.derive()
	next.groups = append(next.groups, name)
	return next
}

func (h *consoleHandler) derive() *consoleHandler {
	next := *h
	next.bound = append([]kv(nil), h.bound...)
	next.groups = append([]string(nil), h.groups...)
	return &next
}

// lastWins drops earlier duplicates of a key, keeping the position of the
// first occurrence and the value of the last.
func lastWins(fields []kv) []kv {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := make([]kv, 0, len(fields))
	for _, field := range fields {
		if field.key == "" {
			continue
		}
		if pos, ok := index[field.key]; ok {
			out[pos].value = field.value
			continue
		}
		index[field.key] = len(out)
		out = append(out, field)
	}
	return out
}

func flattenAttr(dst []kv, prefix []string, attr slog.Attr) []kv {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix = append(append([]string(nil), prefix...), attr.Key)
		}
		for _, member := range attr.Value.Group() {
			dst = flattenAttr(dst, prefix, member)
		}
		return dst
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(prefix, ".") + "." + key
	}
	return append(dst, kv{key: key, value: attr.Value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
