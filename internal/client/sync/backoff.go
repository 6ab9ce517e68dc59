package sync

import (
	"math/rand"
	"time"

	"github.com/sethvargo/go-retry"
)

// nextDelay computes the backoff delay before retry attempt n (1-based):
// InitialDelay doubled per prior failure, capped at MaxDelay, plus up
// to Jitter of random noise so clients do not retry in lockstep.
func nextDelay(cfg Config, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	backoff := retry.WithCappedDuration(cfg.MaxDelay, retry.NewExponential(cfg.InitialDelay))

	var delay time.Duration
	for i := 0; i < attempt; i++ {
		d, stop := backoff.Next()
		if stop {
			break
		}
		delay = d
	}

	if cfg.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(cfg.Jitter)))
	}

	return delay
}
