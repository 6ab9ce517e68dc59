package cli

import (
	"context"
)

// runWatch keeps the process alive with auto-sync enabled: connectivity
// is polled, queued writes drain on reconnect and failed ones retry on
// their backoff schedule.
func (c *Cli) runWatch(ctx context.Context) error {
	if err := c.requireSession(ctx); err != nil {
		return err
	}

	c.svc.Start(ctx)
	defer c.svc.Stop()

	c.io.Println("Watching connectivity. Queued writes sync automatically. Ctrl+C to stop.")
	<-ctx.Done()

	c.io.Println()
	c.io.Println("Stopped.")
	return nil
}
