// client/client.go
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	kaerrors "github.com/Melonai/ka/internal/errors"
	"github.com/Melonai/ka/internal/history"
	"github.com/Melonai/ka/internal/repository"
	shared "github.com/Melonai/ka/shared/types"
)

// Client talks to a ka daemon.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

func (c *Client) Health() (*shared.Health, error) {
	var health shared.Health
	if err := c.do(http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) History() (*history.RepositoryHistory, error) {
	var log history.RepositoryHistory
	if err := c.do(http.MethodGet, "/api/history", nil, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (c *Client) Status() ([]repository.StatusEntry, error) {
	var entries []repository.StatusEntry
	if err := c.do(http.MethodGet, "/api/status", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// File fetches path at cursor, or at the daemon's current cursor when cursor is nil.
func (c *Client) File(path string, cursor *uint64) (*repository.FileVersion, error) {
	target := "/api/files/" + escapePath(path)
	if cursor != nil {
		target += "?cursor=" + strconv.FormatUint(*cursor, 10)
	}

	var version repository.FileVersion
	if err := c.do(http.MethodGet, target, nil, &version); err != nil {
		return nil, err
	}
	return &version, nil
}

func (c *Client) Diff(path string) (*shared.FileDiff, error) {
	var d shared.FileDiff
	if err := c.do(http.MethodGet, "/api/diff/"+escapePath(path), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Update asks the daemon to record the working tree. A zero timestamp uses
// the daemon's clock.
func (c *Client) Update(timestamp uint64) (*repository.UpdateResult, error) {
	var result repository.UpdateResult
	if err := c.do(http.MethodPost, "/api/update", shared.UpdateRequest{Timestamp: timestamp}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Shift(cursor uint64) (*repository.ShiftResult, error) {
	var result repository.ShiftResult
	if err := c.do(http.MethodPost, "/api/shift", shared.ShiftRequest{Cursor: &cursor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(method, target string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError turns an error reply back into a typed error, so callers can
// use errors.IsType on remote failures too.
func decodeError(resp *http.Response) error {
	var body shared.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Type == "" {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return &kaerrors.Error{
		Type:    kaerrors.ErrorType(body.Type),
		Message: body.Message,
		Code:    resp.StatusCode,
		Details: body.Details,
	}
}

func escapePath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
