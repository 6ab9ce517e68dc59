package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/offsync/offsync/internal/client/storage"
	"github.com/offsync/offsync/pkg/api"
)

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")

	password, err := c.readPassword()
	if err != nil {
		return err
	}

	resp, err := c.client.Token(ctx, api.TokenRequest{Password: password})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	session := &storage.Session{
		AccessToken: resp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if err := c.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	c.client.SetToken(resp.AccessToken)

	c.io.Println()
	c.io.Println("✓ Logged in")
	c.io.Printf("Token expires: %s\n", session.ExpiresAt.Format(time.RFC3339))
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.sessions.DeleteSession(ctx); err != nil {
		return fmt.Errorf("failed to drop session: %w", err)
	}
	c.client.SetToken("")

	c.io.Println("✓ Logged out")
	return nil
}
