package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joshdurbin/shortlink/internal/form"
)

// Commands provides command-line operations for the client
type Commands struct {
	client *Client
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer
}

// NewCommands creates a new Commands instance writing results to out and
// notifications to errOut
func NewCommands(client *Client, logger *zap.Logger, out, errOut io.Writer) *Commands {
	return &Commands{
		client: client,
		logger: logger,
		out:    out,
		errOut: errOut,
	}
}

// ShortenOptions are the form fields of a shorten submission
type ShortenOptions struct {
	URL    string
	Short  string
	Expiry int
	// Fail turns every outcome other than a created short URL into an error
	Fail bool
}

// writerNotifier prints transient notifications on a line of their own
type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) Notify(message string) {
	fmt.Fprintf(n.w, "Error: %s\n", message)
}

// Shorten fills a form with opts, submits it and prints the resulting state
func (c *Commands) Shorten(ctx context.Context, opts ShortenOptions) error {
	controller := form.NewController(c.client, writerNotifier{w: c.errOut}, form.WithLogger(c.logger))
	controller.SetURL(opts.URL)
	controller.SetShort(opts.Short)
	controller.SetExpiry(opts.Expiry)

	outcome := controller.Submit(ctx)
	state := controller.State()

	if state.ResultLink != "" {
		fmt.Fprintf(c.out, "%s\n", state.ResultTitle)
		fmt.Fprintf(c.out, "%s\n", state.ResultLink)
	}
	if state.URLError {
		fmt.Fprintf(c.errOut, "URL: %s\n", state.URLHelper)
	}
	if state.ShortError {
		fmt.Fprintf(c.errOut, "Short: %s\n", state.ShortHelper)
	}

	if opts.Fail && outcome != form.OutcomeShortened {
		return fmt.Errorf("shorten failed: %s", outcome)
	}
	return nil
}

// Get retrieves and displays information about a short URL
func (c *Commands) Get(ctx context.Context, shortCode string) error {
	entry, err := c.client.GetURL(ctx, shortCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			fmt.Fprintf(c.out, "Short code '%s' not found\n", shortCode)
			return nil
		}
		return err
	}

	fmt.Fprintf(c.out, "URL Information:\n")
	fmt.Fprintf(c.out, "Short Code: %s\n", entry.ShortCode)
	fmt.Fprintf(c.out, "Original URL: %s\n", entry.OriginalURL)
	fmt.Fprintf(c.out, "Created At: %s\n", entry.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(c.out, "Expires At: %s\n", entry.ExpiresAt.Format(time.RFC3339))
	if entry.LastUsedAt != nil {
		fmt.Fprintf(c.out, "Last Used At: %s\n", entry.LastUsedAt.Format(time.RFC3339))
	} else {
		fmt.Fprintf(c.out, "Last Used At: Never\n")
	}
	fmt.Fprintf(c.out, "Usage Count: %d\n", entry.UsageCount)

	return nil
}

// Delete removes a short URL
func (c *Commands) Delete(ctx context.Context, shortCode string) error {
	err := c.client.DeleteURL(ctx, shortCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			fmt.Fprintf(c.out, "Short code '%s' not found\n", shortCode)
			return nil
		}
		return err
	}

	fmt.Fprintf(c.out, "Short URL '%s' deleted successfully\n", shortCode)
	return nil
}

// List displays all live short URLs in a table
func (c *Commands) List(ctx context.Context) error {
	entries, err := c.client.ListURLs(ctx)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No URLs found")
		return nil
	}

	fmt.Fprintf(c.out, "%-15s %-50s %-20s %-20s %s\n", "Short Code", "Original URL", "Expires At", "Last Used", "Usage Count")
	fmt.Fprintln(c.out, strings.Repeat("-", 120))

	for _, entry := range entries {
		lastUsed := "Never"
		if entry.LastUsedAt != nil {
			lastUsed = entry.LastUsedAt.Format("2006-01-02 15:04:05")
		}

		originalURL := entry.OriginalURL
		if runes := []rune(originalURL); len(runes) > 50 {
			originalURL = string(runes[:47]) + "..."
		}

		fmt.Fprintf(c.out, "%-15s %-50s %-20s %-20s %d\n",
			entry.ShortCode,
			originalURL,
			entry.ExpiresAt.Format("2006-01-02 15:04:05"),
			lastUsed,
			entry.UsageCount,
		)
	}

	return nil
}
