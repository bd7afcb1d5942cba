package audit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docgate/internal/model"
)

// Sink is an append-only destination for security events. There is no
// update or delete: an event, once appended, is never rewritten.
type Sink interface {
	Append(ctx context.Context, ev model.SecurityEvent) error
}

// Redactor removes secrets from free text before it is recorded.
type Redactor interface {
	Redact(content string) string
}

var defaultSeverity = map[model.EventType]model.EventSeverity{
	model.EventAuthSuccess:          model.EventSeverityInfo,
	model.EventAuthFailure:          model.EventSeverityMedium,
	model.EventAuthUnauthorized:     model.EventSeverityHigh,
	model.EventPermissionGranted:    model.EventSeverityInfo,
	model.EventPermissionDenied:     model.EventSeverityMedium,
	model.EventCommandInvoked:       model.EventSeverityInfo,
	model.EventCommandBlocked:       model.EventSeverityHigh,
	model.EventCommandFailed:        model.EventSeverityMedium,
	model.EventTranslationRequested: model.EventSeverityInfo,
	model.EventTranslationGenerated: model.EventSeverityInfo,
	model.EventTranslationApproved:  model.EventSeverityMedium,
	model.EventTranslationRejected:  model.EventSeverityMedium,
	model.EventTranslationPublished: model.EventSeverityHigh,
	model.EventSecretDetected:       model.EventSeverityHigh,
	model.EventLeakDetected:         model.EventSeverityCritical,
	model.EventServicePausedLeak:    model.EventSeverityCritical,
	model.EventDocumentAccessed:     model.EventSeverityInfo,
	model.EventDocumentRejectedSize: model.EventSeverityLow,
	model.EventConfigRead:           model.EventSeverityInfo,
	model.EventConfigModified:       model.EventSeverityHigh,
	model.EventRateLimitExceeded:    model.EventSeverityMedium,
	model.EventSystemStartup:        model.EventSeverityInfo,
	model.EventSystemShutdown:       model.EventSeverityInfo,
	model.EventSecurityException:    model.EventSeverityHigh,
	model.EventCircuitOpened:        model.EventSeverityHigh,
}

// DefaultSeverity returns the severity assigned to an event type.
func DefaultSeverity(t model.EventType) model.EventSeverity {
	if s, ok := defaultSeverity[t]; ok {
		return s
	}
	return model.EventSeverityMedium
}

// Logger records security events. Every event is sanitized before it
// reaches a sink, and sink failures are reported to the application log.
type Logger struct {
	sinks    []Sink
	redactor Redactor
	log      *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	observer func(model.SecurityEvent)
}

// New returns a logger fanning out to sinks.
func New(log *zap.Logger, redactor Redactor, sinks ...Sink) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{sinks: sinks, redactor: redactor, log: log, now: time.Now}
}

// WithObserver registers fn to be called after every recorded event.
func (l *Logger) WithObserver(fn func(model.SecurityEvent)) *Logger {
	l.mu.Lock()
	l.observer = fn
	l.mu.Unlock()
	return l
}

// Log records ev. Timestamp, ID and severity are filled in when missing.
func (l *Logger) Log(ctx context.Context, ev model.SecurityEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.now().UTC()
	}
	if ev.Severity == "" {
		ev.Severity = DefaultSeverity(ev.EventType)
	}
	if ev.EventType == model.EventConfigModified {
		ev.Severity = model.EventSeverityHigh
	}
	// Free-text fields can carry caller input such as document paths.
	ev.Resource = l.redact(ev.Resource)
	ev.Username = l.redact(ev.Username)
	ev.Action = l.redact(ev.Action)
	ev.Details = l.sanitizeMap(ev.Details)
	if rid := RequestIDFromContext(ctx); rid != "" {
		if len(ev.Details) == 0 {
			ev.Details = map[string]any{}
		}
		if _, ok := ev.Details["request_id"]; !ok {
			ev.Details["request_id"] = rid
		}
	}

	for _, s := range l.sinks {
		if err := s.Append(ctx, ev); err != nil {
			l.log.Error("audit sink append failed",
				zap.String("event_id", ev.ID),
				zap.String("event_type", string(ev.EventType)),
				zap.Error(err),
			)
		}
	}

	l.mu.RLock()
	obs := l.observer
	l.mu.RUnlock()
	if obs != nil {
		obs(ev)
	}
}

var sensitiveKey = regexp.MustCompile(`(?i)pass(word|wd)?|secret|token|api[_-]?key|authorization|credential|private[_-]?key`)

const maskedValue = "[REDACTED]"

func (l *Logger) sanitizeMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		if sensitiveKey.MatchString(k) {
			out[k] = maskedValue
			continue
		}
		out[k] = l.sanitizeValue(v)
	}
	return out
}

func (l *Logger) sanitizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return l.redact(t)
	case error:
		return l.redact(t.Error())
	case map[string]any:
		return l.sanitizeMap(t)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return l.sanitizeMap(m)
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = l.redact(s)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = l.sanitizeValue(e)
		}
		return out
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		return t
	case fmt.Stringer:
		return l.redact(t.String())
	default:
		return l.redact(fmt.Sprintf("%v", t))
	}
}

func (l *Logger) redact(s string) string {
	if l.redactor == nil {
		return s
	}
	return l.redactor.Redact(s)
}

// ErrSinkClosed is returned by sinks after Close.
var ErrSinkClosed = errors.New("audit sink closed")
