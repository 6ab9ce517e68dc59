package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runCache(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing subcommand. Usage: offsync cache <list|usage|remove|clear>")
	}

	switch args[0] {
	case "list":
		return c.runCacheList(ctx)
	case "usage":
		return c.runCacheUsage(ctx)
	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("missing document id. Usage: offsync cache remove <id>")
		}
		if err := c.svc.RemoveCachedDocument(ctx, args[1]); err != nil {
			return fmt.Errorf("failed to remove cached document: %w", err)
		}
		c.io.Printf("✓ Document %s removed from cache\n", args[1])
		return nil
	case "clear":
		if err := c.svc.ClearCache(ctx); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		c.io.Println("✓ Cache cleared")
		return nil
	default:
		return fmt.Errorf("unknown subcommand: %s. Use: list, usage, remove or clear", args[0])
	}
}

func (c *Cli) runCacheList(ctx context.Context) error {
	c.io.Println("=== Cached Documents ===")
	c.io.Println()

	docs, err := c.svc.ListCachedDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cached documents: %w", err)
	}

	if len(docs) == 0 {
		c.io.Println("The cache is empty.")
		return nil
	}

	for i, doc := range docs {
		c.io.Printf("%d. %s\n", i+1, doc.Name)
		c.io.Printf("   ID:     %s\n", doc.ID)
		c.io.Printf("   Size:   %s\n", formatBytes(doc.Size))
		c.io.Printf("   Cached: %s\n", formatMillis(doc.CachedAt))
		c.io.Println()
	}

	return c.runCacheUsage(ctx)
}

func (c *Cli) runCacheUsage(ctx context.Context) error {
	used, quota, err := c.svc.GetStorageUsage(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache usage: %w", err)
	}

	percent := 0.0
	if quota > 0 {
		percent = float64(used) / float64(quota) * 100
	}
	c.io.Printf("Cache usage: %s of %s (%.1f%%)\n", formatBytes(used), formatBytes(quota), percent)
	return nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
