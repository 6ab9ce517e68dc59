package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/offsync/offsync/internal/client/sync"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")

	if err := c.requireSession(ctx); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("Pushing queued writes to the server...")

	result, err := c.svc.SyncNow(ctx, func(done, total int) {
		c.io.Printf("  %d/%d\n", done, total)
	})
	if err != nil {
		if errors.Is(err, sync.ErrCycleInProgress) {
			return fmt.Errorf("a sync cycle is already running")
		}
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	if result.Aborted {
		c.io.Println("⚠ Server unreachable. Remaining writes stay queued.")
	} else {
		c.io.Println("✓ Synchronization finished")
	}
	c.io.Println()
	c.io.Printf("Synced:    %d\n", result.Synced)
	if result.Failed > 0 {
		c.io.Printf("Failed:    %d\n", result.Failed)
	}
	if result.Conflicts > 0 {
		c.io.Printf("Conflicts: %d (run 'offsync conflicts')\n", result.Conflicts)
	}
	if result.Discarded > 0 {
		c.io.Printf("Discarded: %d\n", result.Discarded)
	}
	if result.Skipped > 0 {
		c.io.Printf("Skipped:   %d (blocked behind a failed write to the same record)\n", result.Skipped)
	}

	return nil
}
