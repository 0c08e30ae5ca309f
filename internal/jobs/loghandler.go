package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/couchcryptid/location-import-service/internal/domain"
)

// jobLogHandler persists every record as a JobLogEntry and forwards it to
// the service handler tagged with the job id.
type jobLogHandler struct {
	store  domain.JobStore
	jobID  string
	inner  slog.Handler
	attrs  []slog.Attr
	prefix string
}

func newJobLogHandler(inner slog.Handler, store domain.JobStore, jobID string) *jobLogHandler {
	return &jobLogHandler{
		store: store,
		jobID: jobID,
		inner: inner.WithAttrs([]slog.Attr{slog.String("job_id", jobID)}),
	}
}

// Enabled persists everything from Info up and defers to inner below that.
func (h *jobLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo || h.inner.Enabled(ctx, level)
}

func (h *jobLogHandler) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level >= slog.LevelInfo {
		entry := domain.JobLogEntry{
			JobID:     h.jobID,
			Level:     rec.Level.String(),
			Message:   rec.Message,
			Attrs:     h.encodeAttrs(rec),
			CreatedAt: rec.Time.UTC(),
		}
		if err := h.store.AppendJobLog(ctx, entry); err != nil {
			warn := slog.NewRecord(rec.Time, slog.LevelWarn, "persist job log failed", rec.PC)
			warn.AddAttrs(slog.Any("error", err))
			_ = h.inner.Handle(ctx, warn)
		}
	}
	if h.inner.Enabled(ctx, rec.Level) {
		return h.inner.Handle(ctx, rec)
	}
	return nil
}

func (h *jobLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.inner = h.inner.WithAttrs(attrs)
	next.attrs = append(append([]slog.Attr{}, h.attrs...), h.qualify(attrs)...)
	return &next
}

func (h *jobLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.inner = h.inner.WithGroup(name)
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *jobLogHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.prefix == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.prefix + a.Key, Value: a.Value}
	}
	return out
}

// encodeAttrs flattens handler and record attributes into a JSON object.
// Empty when there are none.
func (h *jobLogHandler) encodeAttrs(rec slog.Record) string {
	if len(h.attrs) == 0 && rec.NumAttrs() == 0 {
		return ""
	}
	m := make(map[string]any, len(h.attrs)+rec.NumAttrs())
	for _, a := range h.attrs {
		m[a.Key] = attrValue(a.Value)
	}
	rec.Attrs(func(a slog.Attr) bool {
		m[h.prefix+a.Key] = attrValue(a.Value)
		return true
	})
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		out := make(map[string]any)
		for _, a := range v.Group() {
			out[a.Key] = attrValue(a.Value)
		}
		return out
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.Any()
	}
}
