package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/offsync/offsync/internal/models"
)

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing data type. Usage: offsync add <note|report>")
	}

	switch args[0] {
	case "note":
		return c.runAddNote(ctx)
	case "report":
		return c.runAddReport(ctx)
	default:
		return fmt.Errorf("unknown data type: %s. Use: note or report", args[0])
	}
}

func (c *Cli) runAddNote(ctx context.Context) error {
	c.io.Println("=== Queue Note ===")
	c.io.Println()

	targetID, baseVersion, err := c.readTarget()
	if err != nil {
		return err
	}

	var note models.NotePayload
	if note.SubjectID, err = c.io.ReadInput("Subject ID: "); err != nil {
		return err
	}
	if note.AuthorID, err = c.io.ReadInput("Author ID: "); err != nil {
		return err
	}
	if note.Category, err = c.io.ReadInput("Category: "); err != nil {
		return err
	}
	if note.Date, err = c.io.ReadInput("Date (YYYY-MM-DD): "); err != nil {
		return err
	}
	if note.Note, err = c.io.ReadInput("Note: "); err != nil {
		return err
	}
	if note.GroupID, err = c.io.ReadInput("Group ID: "); err != nil {
		return err
	}

	payload, err := models.NewNotePayload(targetID, baseVersion, note)
	if err != nil {
		return fmt.Errorf("failed to build note: %w", err)
	}

	item, err := c.svc.Enqueue(ctx, payload)
	if err != nil {
		return fmt.Errorf("failed to queue note: %w", err)
	}

	c.io.Println()
	c.io.Printf("✓ Note queued (item %s)\n", item.ID)
	c.printDeliveryHint()
	return nil
}

func (c *Cli) runAddReport(ctx context.Context) error {
	c.io.Println("=== Queue Report ===")
	c.io.Println()

	targetID, baseVersion, err := c.readTarget()
	if err != nil {
		return err
	}

	var report models.ReportPayload
	if report.SubjectID, err = c.io.ReadInput("Subject ID: "); err != nil {
		return err
	}
	if report.Category, err = c.io.ReadInput("Category: "); err != nil {
		return err
	}
	if report.Description, err = c.io.ReadInput("Description: "); err != nil {
		return err
	}
	if report.Priority, err = c.io.ReadInput("Priority (low/high/urgent): "); err != nil {
		return err
	}
	if report.SubmittedBy, err = c.io.ReadInput("Submitted by: "); err != nil {
		return err
	}
	if report.Status, err = c.io.ReadInput("Status: "); err != nil {
		return err
	}
	if report.GroupID, err = c.io.ReadInput("Group ID: "); err != nil {
		return err
	}

	payload, err := models.NewReportPayload(targetID, baseVersion, report)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	item, err := c.svc.Enqueue(ctx, payload)
	if err != nil {
		return fmt.Errorf("failed to queue report: %w", err)
	}

	c.io.Println()
	c.io.Printf("✓ Report queued (item %s)\n", item.ID)
	c.printDeliveryHint()
	return nil
}

// readTarget asks which record is being edited. An empty answer means a
// new record, whose id is minted here and whose base version is 0.
func (c *Cli) readTarget() (string, int64, error) {
	targetID, err := c.io.ReadInput("Record ID (empty for new): ")
	if err != nil {
		return "", 0, err
	}
	if targetID == "" {
		return uuid.NewString(), 0, nil
	}

	version, err := c.readBaseVersion()
	if err != nil {
		return "", 0, err
	}
	return targetID, version, nil
}

func (c *Cli) readBaseVersion() (int64, error) {
	input, err := c.io.ReadInput("Base version: ")
	if err != nil {
		return 0, err
	}
	if input == "" {
		return 0, nil
	}

	version, err := strconv.ParseInt(input, 10, 64)
	if err != nil || version < 0 {
		return 0, fmt.Errorf("invalid base version: %s", input)
	}
	return version, nil
}

func (c *Cli) printDeliveryHint() {
	if c.svc.IsOnline() {
		c.io.Println("Delivery will start automatically.")
	} else {
		c.io.Println("You are offline. The write will sync once the server is reachable.")
	}
}
