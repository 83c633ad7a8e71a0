package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chedlikh/greenspace-notify/internal/domain"
	"github.com/chedlikh/greenspace-notify/internal/xerrors"
)

// RestClient issues the bootstrap fetch and the mark-as-read REST fallbacks.
// Every request carries the bearer token; a missing token or user id is a
// local precondition failure and the request is never issued.
type RestClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewRestClient(baseURL, token string) *RestClient {
	return &RestClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchNotifications retrieves the current backlog for the user, newest
// first. A non-200 response contributes zero items and is not retried.
func (c *RestClient) FetchNotifications(ctx context.Context, userID string) ([]domain.WireNotification, error) {
	if c.token == "" {
		return nil, xerrors.ErrMissingToken
	}
	if userID == "" {
		return nil, xerrors.ErrInvalidInput
	}

	url := fmt.Sprintf("%s/api/notifications/user/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bootstrap fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("bootstrap fetch: unexpected status %d", resp.StatusCode)
	}

	var items []domain.WireNotification
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("bootstrap fetch: decode: %w", err)
	}
	return items, nil
}

// MarkAsRead is the REST fallback for flipping one notification, used
// independently of the socket path.
func (c *RestClient) MarkAsRead(ctx context.Context, id string) error {
	if id == "" {
		return xerrors.ErrInvalidInput
	}
	return c.put(ctx, fmt.Sprintf("%s/api/notifications/%s/mark-as-read", c.baseURL, id))
}

// MarkAllAsRead is the REST fallback for flipping the whole backlog.
func (c *RestClient) MarkAllAsRead(ctx context.Context, userID string) error {
	if userID == "" {
		return xerrors.ErrInvalidInput
	}
	return c.put(ctx, fmt.Sprintf("%s/api/notifications/mark-all-read/%s", c.baseURL, userID))
}

func (c *RestClient) put(ctx context.Context, url string) error {
	if c.token == "" {
		return xerrors.ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("mark-as-read: unexpected status %d", resp.StatusCode)
	}
	return nil
}
