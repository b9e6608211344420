package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/calimingo/order-dashboard-service/internal/mail"
	"github.com/calimingo/order-dashboard-service/internal/models"
)

// MaxPageSize caps the partner page body; order documents are small.
const MaxPageSize = 10 * 1024 * 1024 // 10MB

// Client fetches order documents from ProDBX "view" links so a dashboard
// user can paste a link instead of forwarding the confirmation email.
type Client struct {
	http      *http.Client
	userAgent string
}

// New creates a fetch client from configuration, with a 30 second default
// timeout.
func New(cfg models.FetchConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
	}
}

// FetchOrderPage retrieves the HTML body behind a view link and wraps it as
// the {html, text} pair the parser consumes.
func (c *Client) FetchOrderPage(ctx context.Context, url string) (*mail.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid order page URL: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxPageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read order page body: %w", err)
	}

	return mail.FromHTML(string(body)), nil
}
