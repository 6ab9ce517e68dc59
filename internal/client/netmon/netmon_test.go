package netmon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMonitor_StartsOffline(t *testing.T) {
	m := New(func(ctx context.Context) error { return nil }, testLogger())
	assert.False(t, m.IsOnline())
}

func TestMonitor_ProbeSuccessGoesOnline(t *testing.T) {
	m := New(
		func(ctx context.Context) error { return nil },
		testLogger(),
		WithInterval(10*time.Millisecond),
		WithDebounce(0),
	)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, m.IsOnline, time.Second, 5*time.Millisecond)
}

func TestMonitor_ProbeFailureGoesOffline(t *testing.T) {
	var failing atomic.Bool
	m := New(
		func(ctx context.Context) error {
			if failing.Load() {
				return errors.New("unreachable")
			}
			return nil
		},
		testLogger(),
		WithInterval(10*time.Millisecond),
		WithDebounce(0),
	)

	m.Start(context.Background())
	defer m.Stop()

	require.Eventually(t, m.IsOnline, time.Second, 5*time.Millisecond)

	failing.Store(true)
	require.Eventually(t, func() bool { return !m.IsOnline() }, time.Second, 5*time.Millisecond)
}

func TestMonitor_DebounceSuppressesFlap(t *testing.T) {
	m := New(func(ctx context.Context) error { return nil }, testLogger(),
		WithDebounce(50*time.Millisecond))

	// Flip would go online, but the same offline observation before the
	// debounce window elapses cancels it.
	m.observe(true)
	m.observe(false)

	time.Sleep(100 * time.Millisecond)
	assert.False(t, m.IsOnline())
}

func TestMonitor_DebouncedTransitionFires(t *testing.T) {
	m := New(func(ctx context.Context) error { return nil }, testLogger(),
		WithDebounce(10*time.Millisecond))

	m.observe(true)
	require.Eventually(t, m.IsOnline, time.Second, 5*time.Millisecond)
}

func TestMonitor_SubscribeNotifies(t *testing.T) {
	m := New(func(ctx context.Context) error { return nil }, testLogger(), WithDebounce(0))

	var (
		mu     sync.Mutex
		states []bool
	)
	id := m.Subscribe(func(online bool) {
		mu.Lock()
		states = append(states, online)
		mu.Unlock()
	})

	m.SetOnline(true)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 1
	}, time.Second, 5*time.Millisecond)

	m.SetOnline(false)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []bool{true, false}, states)
	mu.Unlock()

	m.Unsubscribe(id)
	m.SetOnline(true)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Len(t, states, 2)
	mu.Unlock()
}

func TestMonitor_SetOnlineIdempotent(t *testing.T) {
	m := New(func(ctx context.Context) error { return nil }, testLogger())

	var calls atomic.Int32
	m.Subscribe(func(bool) { calls.Add(1) })

	m.SetOnline(true)
	m.SetOnline(true)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMonitor_StopIsSafeTwice(t *testing.T) {
	m := New(func(ctx context.Context) error { return nil }, testLogger(),
		WithInterval(10*time.Millisecond))

	m.Start(context.Background())
	m.Stop()
	m.Stop()
}
