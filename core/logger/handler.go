package logger

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"
)

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

// defaultKeyOrder fixes the attribute order of emitted lines so logs stay
// grep- and eye-friendly regardless of call-site attr ordering.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"update_id",
	"user_id",
	"chat_id",
	"state",
	"next_state",
	"handler",
	"cb_key",
	"event_id",
	"speech_id",
	"speaker_id",
	"candidate_id",
	"outcome",
	"duration_ms",
	"count",
	"err",
	"err_code",
	"cause",
	"attempts",
}

type handlerConfig struct {
	level    slog.Leveler
	writer   io.Writer
	format   logFormat
	keyOrder []string
}

// structuredHandler renders records as single KV or JSON lines with a fixed
// key order. Context metadata (rid, update/user/chat ids) is merged in.
type structuredHandler struct {
	cfg   handlerConfig
	mu    *sync.Mutex
	attrs []slog.Attr
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if len(cfg.keyOrder) == 0 {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg, mu: &sync.Mutex{}}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.cfg.level != nil {
		min = h.cfg.level.Level()
	}
	return level >= min
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup is accepted but flattened; grouped keys are rare in this codebase.
func (h *structuredHandler) WithGroup(string) slog.Handler { return h }

func (h *structuredHandler) Handle(ctx context.Context, rec slog.Record) error {
	fields := make(map[string]slog.Value, rec.NumAttrs()+8)
	var order []string

	put := func(key string, val slog.Value) {
		if _, seen := fields[key]; !seen {
			order = append(order, key)
		}
		fields[key] = val
	}

	put("ts", slog.StringValue(rec.Time.Format(time.RFC3339Nano)))
	put("level", slog.StringValue(rec.Level.String()))

	for _, a := range h.attrs {
		put(a.Key, a.Value.Resolve())
	}
	rec.Attrs(func(a slog.Attr) bool {
		put(a.Key, a.Value.Resolve())
		return true
	})

	if _, ok := fields["event"]; !ok && rec.Message != "" {
		put("event", slog.StringValue(rec.Message))
	}
	if rid := RIDFrom(ctx); rid != "" {
		put("rid", slog.StringValue(rid))
	}
	if id := UpdateIDFrom(ctx); id != 0 {
		put("update_id", slog.IntValue(id))
	}
	if id := UserIDFrom(ctx); id != 0 {
		put("user_id", slog.Int64Value(id))
	}
	if id := ChatIDFrom(ctx); id != 0 {
		put("chat_id", slog.Int64Value(id))
	}
	if handler := HandlerFrom(ctx); handler != "" {
		put("handler", slog.StringValue(handler))
	}

	keys := orderKeys(order, h.cfg.keyOrder)

	var b strings.Builder
	if h.cfg.format == formatJSON {
		writeJSONLine(&b, keys, fields)
	} else {
		writeKVLine(&b, keys, fields)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.cfg.writer, b.String())
	return err
}

// orderKeys returns the present keys sorted by the configured order; keys not
// in the order list keep their insertion position at the tail.
func orderKeys(present, order []string) []string {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		rank[k] = i
	}
	known := make([]string, 0, len(present))
	var rest []string
	for _, k := range present {
		if _, ok := rank[k]; ok {
			known = append(known, k)
		} else {
			rest = append(rest, k)
		}
	}
	for i := 1; i < len(known); i++ {
		for j := i; j > 0 && rank[known[j]] < rank[known[j-1]]; j-- {
			known[j], known[j-1] = known[j-1], known[j]
		}
	}
	return append(known, rest...)
}

func writeKVLine(b *strings.Builder, keys []string, fields map[string]slog.Value) {
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kvValue(fields[k]))
	}
}

func writeJSONLine(b *strings.Builder, keys []string, fields map[string]slog.Value) {
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		b.WriteString(jsonValue(fields[k]))
	}
	b.WriteByte('}')
}

func kvValue(v slog.Value) string {
	s := rawValue(v)
	if strings.ContainsAny(s, " \t\"=") {
		return strconv.Quote(s)
	}
	return s
}

func jsonValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	default:
		return strconv.Quote(rawValue(v))
	}
}

func rawValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return Sanitize(v.String())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	default:
		return Sanitize(fmt.Sprint(v.Any()))
	}
}
