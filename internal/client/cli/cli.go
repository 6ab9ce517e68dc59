package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/offsync/offsync/internal/client/api"
	"github.com/offsync/offsync/internal/client/iocli"
	"github.com/offsync/offsync/internal/client/storage"
	"github.com/offsync/offsync/internal/client/sync"
)

// Cli dispatches terminal commands to the sync service.
type Cli struct {
	io       iocli.IO
	svc      *sync.Service
	client   *api.Client
	sessions storage.SessionStorage
}

func New(io iocli.IO, svc *sync.Service, client *api.Client, sessions storage.SessionStorage) *Cli {
	return &Cli{
		io:       io,
		svc:      svc,
		client:   client,
		sessions: sessions,
	}
}

// LoadSession restores a previously stored token into the API client.
// A missing or expired session is not an error; commands that need the
// server will report it themselves.
func (c *Cli) LoadSession(ctx context.Context) {
	session, err := c.sessions.GetSession(ctx)
	if err != nil {
		return
	}
	if time.Now().After(session.ExpiresAt) {
		return
	}
	c.client.SetToken(session.AccessToken)
}

// requireSession returns an error unless a valid session is stored.
func (c *Cli) requireSession(ctx context.Context) error {
	session, err := c.sessions.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return fmt.Errorf("not authenticated. Please run 'offsync login' first")
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		return fmt.Errorf("session has expired. Please run 'offsync login' again")
	}
	c.client.SetToken(session.AccessToken)
	return nil
}

// readPassword prefers the OFFSYNC_PASSWORD environment variable over
// an interactive prompt, so scripted use never touches the terminal.
func (c *Cli) readPassword() (string, error) {
	if envPassword := os.Getenv("OFFSYNC_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

func PrintUsage() {
	fmt.Println("offsync client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  offsync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version      Show version information")
	fmt.Println("  --server URL   Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH      Path to local database (default: offsync-client.db)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  login                     Authenticate against the server")
	fmt.Println("  logout                    Drop the stored session")
	fmt.Println("  status                    Show queue, connectivity and sync stats")
	fmt.Println("  add <note|report>         Queue a new write")
	fmt.Println("  queue                     List queued writes")
	fmt.Println("  sync                      Push queued writes to the server now")
	fmt.Println("  watch                     Stay running and sync automatically on reconnect")
	fmt.Println("  retry <item-id>           Reset a failed item for another attempt")
	fmt.Println("  remove <item-id>          Drop one item from the queue")
	fmt.Println("  clear [failed]            Drop all items, or only the failed ones")
	fmt.Println("  conflicts                 List unresolved conflicts")
	fmt.Println("  resolve <id> <choice>     Resolve a conflict (client, server or merged)")
	fmt.Println("  cache <list|usage|clear>  Inspect or empty the offline document cache")
	fmt.Println()
	fmt.Println("The password for login is read from the OFFSYNC_PASSWORD environment")
	fmt.Println("variable when set, otherwise prompted interactively.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  offsync login")
	fmt.Println("  offsync add note")
	fmt.Println("  offsync sync")
	fmt.Println("  offsync resolve b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5 server")
	fmt.Println("  offsync --server https://example.com status")
}
