package sync

import (
	"time"

	"github.com/offsync/offsync/internal/models"
)

// Config tunes the sync engine.
type Config struct {
	// InitialDelay is the backoff delay after the first failure.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration

	// Jitter is the maximum random addition to a backoff delay.
	Jitter time.Duration

	// MaxRetries is how many failures an item may accumulate before it
	// goes terminal and waits for manual intervention.
	MaxRetries int

	// ItemTimeout bounds a single apply call.
	ItemTimeout time.Duration

	// Debounce is how long connectivity must hold before a reconnect
	// triggers an automatic sync.
	Debounce time.Duration

	// Strategy is the conflict resolution strategy applied when the
	// server record has diverged.
	Strategy models.Strategy
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 1 * time.Second,
		MaxDelay:     60 * time.Second,
		Jitter:       1 * time.Second,
		MaxRetries:   5,
		ItemTimeout:  30 * time.Second,
		Debounce:     2 * time.Second,
		Strategy:     models.StrategyManual,
	}
}
