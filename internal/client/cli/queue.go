package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/offsync/offsync/internal/models"
)

func (c *Cli) runQueue(ctx context.Context) error {
	c.io.Println("=== Queued Writes ===")
	c.io.Println()

	items, err := c.svc.ListQueue(ctx)
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}

	if len(items) == 0 {
		c.io.Println("The queue is empty.")
		return nil
	}

	c.io.Printf("Found %d item(s):\n", len(items))
	c.io.Println()

	for i, item := range items {
		c.io.Printf("%d. [%s] %s\n", i+1, item.Status, item.Type)
		c.io.Printf("   ID:      %s\n", item.ID)
		c.io.Printf("   Target:  %s (base version %d)\n", item.Payload.TargetID, item.Payload.BaseVersion)
		c.io.Printf("   Queued:  %s\n", formatMillis(item.Timestamp))
		if item.Retries > 0 {
			c.io.Printf("   Retries: %d\n", item.Retries)
		}
		if item.Status == models.StatusFailed {
			if item.NextRetryAt > 0 {
				c.io.Printf("   Next attempt: %s\n", formatMillis(item.NextRetryAt))
				if wait := time.Until(time.UnixMilli(item.NextRetryAt)); wait > 0 {
					c.io.Printf("   (in %s)\n", wait.Round(time.Second))
				}
			} else {
				c.io.Println("   Gave up. Use 'offsync retry' to try again.")
			}
		}
		if item.Error != "" {
			c.io.Printf("   Last error: %s\n", item.Error)
		}
		c.io.Println()
	}

	return nil
}
