package snapshot

import (
	"context"
	"errors"
	"sync"

	"github.com/mohae/deepcopy"
	"github.com/mohitkumar/flowcall/logger"
	"github.com/mohitkumar/flowcall/model"
	"github.com/mohitkumar/flowcall/persistence"
	"go.uber.org/zap"
)

const STATE_FIELD = "state"

var ErrNoProvider = errors.New("no state provider configured")

// Observer receives the state after every mutation. diff is nil when diffing
// is disabled.
type Observer interface {
	StateChanged(state map[string]any, diff *model.Diff)
}

type ObserverFunc func(state map[string]any, diff *model.Diff)

func (f ObserverFunc) StateChanged(state map[string]any, diff *model.Diff) {
	f(state, diff)
}

type LoggingObserver struct{}

func (LoggingObserver) StateChanged(state map[string]any, diff *model.Diff) {
	if diff == nil {
		logger.Debug("state changed", zap.Int("keys", len(state)))
		return
	}
	logger.Debug("state changed", zap.Int("keys", len(state)), zap.Int("added", len(diff.Added)), zap.Int("updated", len(diff.Updated)), zap.Int("removed", len(diff.Removed)))
}

type Manager struct {
	mu        sync.RWMutex
	state     map[string]any
	previous  map[string]any
	lastDiff  *model.Diff
	storage   persistence.Storage
	persist   bool
	diffing   bool
	observers []Observer
	provider  Provider
}

type Option func(*Manager)

func WithDiffing(enabled bool) Option {
	return func(m *Manager) {
		m.diffing = enabled
	}
}

func WithPersistence(enabled bool) Option {
	return func(m *Manager) {
		m.persist = enabled
	}
}

func WithObserver(observer Observer) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, observer)
	}
}

func WithProvider(provider Provider) Option {
	return func(m *Manager) {
		m.provider = provider
	}
}

func New(storage persistence.Storage, opts ...Option) *Manager {
	m := &Manager{
		state:    make(map[string]any),
		previous: make(map[string]any),
		storage:  storage,
		persist:  storage != nil,
		diffing:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.storage == nil {
		m.persist = false
	}
	if m.persist {
		m.load()
	}
	return m
}

func (m *Manager) load() {
	var persisted map[string]any
	found, err := m.storage.Get(persistence.STATE_KEY, &persisted)
	if err != nil {
		logger.Error("error loading state", zap.Error(err))
		return
	}
	if found && persisted != nil {
		m.state = persisted
	}
}

func (m *Manager) save() {
	if !m.persist {
		return
	}
	if err := m.storage.Set(persistence.STATE_KEY, m.state); err != nil {
		logger.Error("error saving state, in memory state stays authoritative", zap.Error(err))
	}
}

func copyState(state map[string]any) map[string]any {
	if len(state) == 0 {
		return make(map[string]any)
	}
	return deepcopy.Copy(state).(map[string]any)
}

// mutate runs fn under the write lock with the previous/diff bookkeeping and
// notifies observers after the lock is released.
func (m *Manager) mutate(persist bool, fn func(state map[string]any) map[string]any) {
	m.mu.Lock()
	if m.diffing {
		m.previous = copyState(m.state)
	}
	m.state = fn(m.state)
	if persist {
		m.save()
	}
	var diff *model.Diff
	if m.diffing {
		diff = ComputeDiff(m.previous, m.state)
		m.lastDiff = diff
	}
	observers := m.observers
	var current map[string]any
	if len(observers) > 0 {
		current = copyState(m.state)
	}
	m.mu.Unlock()

	for _, o := range observers {
		o.StateChanged(current, diff)
	}
}

func (m *Manager) SetState(key string, value any, persist bool) {
	m.mutate(persist, func(state map[string]any) map[string]any {
		state[key] = value
		return state
	})
}

func (m *Manager) RemoveState(key string, persist bool) {
	m.mutate(persist, func(state map[string]any) map[string]any {
		delete(state, key)
		return state
	})
}

func (m *Manager) ClearState(persist bool) {
	m.mutate(persist, func(state map[string]any) map[string]any {
		return make(map[string]any)
	})
}

func (m *Manager) GetState(key string, def any) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.state[key]; ok {
		return v
	}
	return def
}

func (m *Manager) GetAllState() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyState(m.state)
}

// Capture is a deep copy of the current state, safe to compare later.
func (m *Manager) Capture() map[string]any {
	return m.GetAllState()
}

func (m *Manager) PreviousState() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyState(m.previous)
}

func (m *Manager) LastDiff() *model.Diff {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastDiff
}

func (m *Manager) HasProvider() bool {
	return m.provider != nil
}

// FetchFromSource replaces the whole state with the provider's data.
func (m *Manager) FetchFromSource(ctx context.Context) (map[string]any, error) {
	if m.provider == nil {
		return nil, ErrNoProvider
	}
	fetched, err := m.provider.Fetch(ctx)
	if err != nil {
		logger.Error("error fetching state from source", zap.Error(err))
		return nil, err
	}
	m.mutate(true, func(state map[string]any) map[string]any {
		return copyState(fetched)
	})
	logger.Debug("state fetched from source", zap.Int("keys", len(fetched)))
	return m.GetAllState(), nil
}

// UpdateFromResponse sets stateKey from a top-level response property, or
// else merges a nested "state" object with a single persistence call. It
// reports whether the state changed.
func (m *Manager) UpdateFromResponse(response any, stateKey string) bool {
	body, ok := response.(map[string]any)
	if !ok {
		return false
	}
	if stateKey != "" {
		if v, ok := body[stateKey]; ok {
			m.SetState(stateKey, v, true)
			return true
		}
	}
	nested, ok := body[STATE_FIELD].(map[string]any)
	if !ok {
		return false
	}
	m.mutate(true, func(state map[string]any) map[string]any {
		for k, v := range nested {
			state[k] = v
		}
		return state
	})
	return true
}
