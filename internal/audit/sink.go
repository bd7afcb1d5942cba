package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"docgate/internal/model"
)

// MemorySink keeps events in memory. Used by tests and as a local trail
// when no durable sink is configured.
type MemorySink struct {
	mu     sync.RWMutex
	events []model.SecurityEvent
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (m *MemorySink) Append(_ context.Context, ev model.SecurityEvent) error {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	return nil
}

// Events returns a snapshot of every appended event.
func (m *MemorySink) Events() []model.SecurityEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.SecurityEvent, len(m.events))
	copy(out, m.events)
	return out
}

// ByType returns the appended events of type t.
func (m *MemorySink) ByType(t model.EventType) []model.SecurityEvent {
	var out []model.SecurityEvent
	for _, ev := range m.Events() {
		if ev.EventType == t {
			out = append(out, ev)
		}
	}
	return out
}

// FileConfig controls the rotating JSON lines audit file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// FileSink writes one JSON object per line to a rotating file.
type FileSink struct {
	log    *zap.Logger
	writer *lumberjack.Logger

	mu     sync.Mutex
	closed bool
}

// NewFileSink opens a rotating audit file.
func NewFileSink(cfg FileConfig) *FileSink {
	w := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return &FileSink{log: newLineLogger(zapcore.AddSync(w)), writer: w}
}

// newLineLogger builds a logger whose lines carry only the event fields.
func newLineLogger(ws zapcore.WriteSyncer) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	return zap.New(zapcore.NewCore(enc, ws, zapcore.DebugLevel))
}

func (f *FileSink) Append(_ context.Context, ev model.SecurityEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrSinkClosed
	}
	f.log.Info("", zap.Inline(eventFields(ev)))
	return nil
}

// Close flushes and closes the file.
func (f *FileSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	_ = f.log.Sync()
	return f.writer.Close()
}

type eventFields model.SecurityEvent

func (e eventFields) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("event_id", e.ID)
	enc.AddString("timestamp", e.Timestamp.UTC().Format(time.RFC3339Nano))
	enc.AddString("event_type", string(e.EventType))
	enc.AddString("severity", string(e.Severity))
	if e.UserID != "" {
		enc.AddString("user_id", e.UserID)
	}
	if e.Username != "" {
		enc.AddString("username", e.Username)
	}
	if e.Resource != "" {
		enc.AddString("resource", e.Resource)
	}
	if e.Action != "" {
		enc.AddString("action", e.Action)
	}
	enc.AddString("outcome", string(e.Outcome))
	if len(e.Details) > 0 {
		return enc.AddReflected("details", e.Details)
	}
	return nil
}
