package breaker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"docgate/internal/model"
)

// ErrOpen is returned without calling the protected function while the
// breaker is open, or while its single half-open probe is in flight.
var ErrOpen = errors.New("circuit breaker is open")

// Defaults applied when Settings leave a field zero.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 30 * time.Second
)

// StateChangeFunc observes phase transitions.
type StateChangeFunc func(name string, from, to model.CircuitPhase)

// Settings configure one breaker.
type Settings struct {
	Name             string
	FailureThreshold int
	Cooldown         time.Duration
	// CallTimeout bounds each protected call; zero leaves the caller's
	// context untouched.
	CallTimeout   time.Duration
	OnStateChange StateChangeFunc
	// IsSuccessful classifies errors that do not count as failures, such as
	// a missing object. Nil counts every error.
	IsSuccessful func(err error) bool
}

// Breaker protects a single external dependency. It is not a retry
// mechanism: a rejected or failed call is returned to the caller as is.
type Breaker struct {
	name     string
	timeout  time.Duration
	success  func(error) bool
	cb       *gobreaker.CircuitBreaker[any]
	failures atomic.Int64
	onChange StateChangeFunc

	mu       sync.Mutex
	openedAt *time.Time
}

// New builds a breaker from s.
func New(s Settings) *Breaker {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = DefaultFailureThreshold
	}
	if s.Cooldown <= 0 {
		s.Cooldown = DefaultCooldown
	}
	b := &Breaker{name: s.Name, timeout: s.CallTimeout, onChange: s.OnStateChange, success: s.IsSuccessful}
	threshold := uint32(s.FailureThreshold)
	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		OnStateChange: b.stateChanged,
		IsSuccessful:  b.successful,
	})
	return b
}

// Name returns the protected dependency name.
func (b *Breaker) Name() string { return b.name }

// Do runs fn through the breaker.
func Do[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	out, err := b.cb.Execute(func() (any, error) {
		callCtx := ctx
		if b.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}
		v, err := fn(callCtx)
		if !b.successful(err) {
			b.failures.Add(1)
			return nil, err
		}
		b.failures.Store(0)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%s: %w", b.name, ErrOpen)
	}
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	return out.(T), nil
}

func (b *Breaker) successful(err error) bool {
	if err == nil {
		return true
	}
	return b.success != nil && b.success(err)
}

// Execute is Do for calls that only return an error.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	_, err := Do(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// State returns a snapshot of the breaker.
func (b *Breaker) State() model.CircuitState {
	phase := phaseOf(b.cb.State())
	st := model.CircuitState{
		Name:                b.name,
		Phase:               phase,
		ConsecutiveFailures: int(b.failures.Load()),
	}
	b.mu.Lock()
	if b.openedAt != nil && phase != model.CircuitClosed {
		t := *b.openedAt
		st.OpenedAt = &t
	}
	b.mu.Unlock()
	return st
}

// stateChanged runs under gobreaker's lock and must not call back into cb.
func (b *Breaker) stateChanged(name string, from, to gobreaker.State) {
	b.mu.Lock()
	switch to {
	case gobreaker.StateOpen:
		now := time.Now().UTC()
		b.openedAt = &now
	case gobreaker.StateClosed:
		b.openedAt = nil
		b.failures.Store(0)
	}
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(name, phaseOf(from), phaseOf(to))
	}
}

func phaseOf(s gobreaker.State) model.CircuitPhase {
	switch s {
	case gobreaker.StateOpen:
		return model.CircuitOpen
	case gobreaker.StateHalfOpen:
		return model.CircuitHalfOpen
	default:
		return model.CircuitClosed
	}
}

// Registry hands out one breaker per dependency so that a degraded
// dependency never fails calls to a healthy one.
type Registry struct {
	defaults Settings

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry returns a registry creating breakers from defaults.
func NewRegistry(defaults Settings) *Registry {
	return &Registry{defaults: defaults, breakers: make(map[string]*Breaker)}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	s := r.defaults
	s.Name = name
	b := New(s)
	r.breakers[name] = b
	return b
}

// States returns a snapshot of every breaker ordered by name.
func (r *Registry) States() []model.CircuitState {
	r.mu.Lock()
	list := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		list = append(list, b)
	}
	r.mu.Unlock()

	out := make([]model.CircuitState, 0, len(list))
	for _, b := range list {
		out = append(out, b.State())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
