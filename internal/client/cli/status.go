package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/offsync/offsync/internal/client/storage"
	"github.com/offsync/offsync/internal/models"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Sync Status ===")
	c.io.Println()

	session, err := c.sessions.GetSession(ctx)
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		c.io.Println("Session: not authenticated")
	case err != nil:
		return fmt.Errorf("failed to load session: %w", err)
	case time.Now().After(session.ExpiresAt):
		c.io.Println("Session: expired, run 'offsync login' again")
	default:
		c.io.Printf("Session: valid until %s\n", session.ExpiresAt.Format(time.RFC3339))
	}

	status, err := c.svc.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read sync status: %w", err)
	}

	if status.Online {
		c.io.Println("Network: online")
	} else {
		c.io.Println("Network: offline")
	}
	c.io.Printf("Sync:    %s\n", status.Phase)

	c.io.Println()
	c.io.Printf("Queue: %d pending, %d failed, %d in conflict\n",
		status.Counts[models.StatusPending],
		status.Counts[models.StatusFailed],
		status.Counts[models.StatusConflict],
	)
	if status.OpenConflicts > 0 {
		c.io.Printf("⚠ %d conflict(s) need manual resolution. Run 'offsync conflicts'.\n", status.OpenConflicts)
	}

	c.io.Println()
	stats := status.Stats
	c.io.Printf("Synced total: %d, failed total: %d\n", stats.TotalSynced, stats.TotalFailed)
	if stats.LastSyncTime > 0 {
		c.io.Printf("Last sync: %s\n", formatMillis(stats.LastSyncTime))
	} else {
		c.io.Println("Last sync: never")
	}
	if stats.LastSuccessTime > 0 {
		c.io.Printf("Last successful sync: %s\n", formatMillis(stats.LastSuccessTime))
	}
	if stats.AverageSyncDuration > 0 {
		c.io.Printf("Average cycle duration: %.0f ms\n", stats.AverageSyncDuration)
	}

	return nil
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format(time.RFC3339)
}
