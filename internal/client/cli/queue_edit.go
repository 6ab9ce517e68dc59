package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runRetry(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing item id. Usage: offsync retry <item-id>")
	}

	if err := c.svc.RetryItem(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to retry item: %w", err)
	}

	c.io.Printf("✓ Item %s queued for another attempt\n", args[0])
	return nil
}

func (c *Cli) runRemove(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing item id. Usage: offsync remove <item-id>")
	}

	if err := c.svc.RemoveFromQueue(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}

	c.io.Printf("✓ Item %s removed from the queue\n", args[0])
	return nil
}

func (c *Cli) runClear(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "failed" {
		removed, err := c.svc.ClearFailedItems(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear failed items: %w", err)
		}
		c.io.Printf("✓ Removed %d failed item(s)\n", removed)
		return nil
	}

	// Dropping the whole queue loses unsynced writes, so ask first.
	answer, err := c.io.ReadInput("This drops ALL queued writes, synced or not. Type 'yes' to continue: ")
	if err != nil {
		return err
	}
	if answer != "yes" {
		c.io.Println("Aborted.")
		return nil
	}

	if err := c.svc.ClearQueue(ctx); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}

	c.io.Println("✓ Queue cleared")
	return nil
}
