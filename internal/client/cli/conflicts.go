package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/offsync/offsync/internal/models"
)

func (c *Cli) runConflicts(ctx context.Context) error {
	c.io.Println("=== Conflicts ===")
	c.io.Println()

	conflicts, err := c.svc.ListConflicts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}

	open := 0
	for _, conflict := range conflicts {
		if conflict.Resolved {
			continue
		}
		open++

		c.io.Printf("%d. %s on %s %s\n", open, conflict.ID, conflict.Type, conflict.TargetID)
		c.io.Printf("   Detected:         %s\n", formatMillis(conflict.DetectedAt))
		c.io.Printf("   Server version:   %d\n", conflict.ServerVersion)
		c.io.Printf("   Diverging fields: %s\n", strings.Join(conflict.ConflictFields, ", "))
		for _, field := range conflict.ConflictFields {
			c.io.Printf("     %s: yours=%s server=%s\n",
				field, rawField(conflict.ClientData, field), rawField(conflict.ServerData, field))
		}
		c.io.Println()
	}

	if open == 0 {
		c.io.Println("No unresolved conflicts.")
		return nil
	}

	c.io.Println("Resolve with: offsync resolve <conflict-id> <client|server|merged>")
	return nil
}

func (c *Cli) runResolve(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: offsync resolve <conflict-id> <client|server|merged>")
	}
	conflictID := args[0]

	var resolution models.Resolution
	switch args[1] {
	case "client":
		resolution = models.ResolutionClient
	case "server":
		resolution = models.ResolutionServer
	case "merged":
		resolution = models.ResolutionMerged
	default:
		return fmt.Errorf("unknown choice: %s. Use: client, server or merged", args[1])
	}

	var mergedData map[string]json.RawMessage
	if resolution == models.ResolutionMerged {
		input, err := c.io.ReadInput("Merged fields as JSON object: ")
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(input), &mergedData); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}

	if err := c.svc.ResolveConflict(ctx, conflictID, resolution, mergedData); err != nil {
		return fmt.Errorf("failed to resolve conflict: %w", err)
	}

	c.io.Printf("✓ Conflict %s resolved (%s)\n", conflictID, resolution)
	if resolution != models.ResolutionServer {
		c.io.Println("The write is queued again and will sync shortly.")
	}
	return nil
}

func rawField(data map[string]json.RawMessage, name string) string {
	if value, ok := data[name]; ok {
		return string(value)
	}
	return "(unset)"
}
