// Package netmon tracks server reachability for the client.
//
// Connectivity is derived from an active probe (usually the server's
// health endpoint) polled on an interval. Transitions are debounced so
// a flapping link does not trigger a storm of sync attempts.
package netmon

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Probe checks whether the server is reachable. A nil error means online.
type Probe func(ctx context.Context) error

// Listener is invoked on every debounced connectivity transition.
type Listener func(online bool)

const (
	// DefaultInterval is how often the probe runs.
	DefaultInterval = 15 * time.Second

	// DefaultDebounce is how long a new state must hold before
	// listeners are notified.
	DefaultDebounce = 2 * time.Second
)

// Monitor polls a Probe and notifies subscribers about connectivity
// transitions.
type Monitor struct {
	probe    Probe
	logger   *slog.Logger
	interval time.Duration
	debounce time.Duration

	mu        sync.Mutex
	online    bool
	pending   *time.Timer
	listeners map[int]Listener
	nextID    int
	cancel    context.CancelFunc
	done      chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithInterval sets the probe polling interval.
func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithDebounce sets the transition debounce window.
func WithDebounce(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d >= 0 {
			m.debounce = d
		}
	}
}

// New creates a Monitor. The monitor starts in the offline state until
// the first successful probe.
func New(probe Probe, logger *slog.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		probe:     probe,
		logger:    logger,
		interval:  DefaultInterval,
		debounce:  DefaultDebounce,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins polling. It returns immediately; polling stops when the
// context is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.loop(ctx)
}

// Stop halts polling and waits for the poll loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	err := m.probe(probeCtx)
	cancel()

	m.observe(err == nil)
}

// observe records a probe result and schedules the debounced
// notification on a state change.
func (m *Monitor) observe(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if online == m.online {
		// Same state again cancels a pending flip.
		if m.pending != nil {
			m.pending.Stop()
			m.pending = nil
		}
		return
	}

	if m.pending != nil {
		// A flip to this state is already scheduled.
		return
	}

	if m.debounce == 0 {
		m.transitionLocked(online)
		return
	}

	m.pending = time.AfterFunc(m.debounce, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.pending = nil
		m.transitionLocked(online)
	})
}

func (m *Monitor) transitionLocked(online bool) {
	if online == m.online {
		return
	}
	m.online = online
	m.logger.Info("connectivity changed", "online", online)

	for _, listener := range m.listeners {
		go listener(online)
	}
}

// IsOnline reports the current debounced connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline forces the state immediately, bypassing the probe and the
// debounce window. Intended for tests and manual overrides.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
	m.transitionLocked(online)
}

// Subscribe registers a listener and returns an id for Unsubscribe.
func (m *Monitor) Subscribe(listener Listener) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener
	return id
}

// Unsubscribe removes a listener registered with Subscribe.
func (m *Monitor) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, id)
}
