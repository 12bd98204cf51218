package ipfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// APIError is the error envelope returned by the IPFS HTTP API.
type APIError struct {
	Status  int
	Message string `json:"Message"`
	Code    int    `json:"Code"`
	Type    string `json:"Type"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ipfs api error (HTTP %d): %s", e.Status, e.Message)
}

// Client pins content through the IPFS HTTP API. It is safe for concurrent use.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

func NewClient(apiURL string, httpClient *http.Client) *Client {
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: httpClient,
	}
}

// Pin asks the node to retain hash. With recursive set, every block reachable
// from hash is retained too.
func (c *Client) Pin(ctx context.Context, hash string, recursive bool) error {
	query := url.Values{}
	query.Set("arg", hash)
	query.Set("recursive", strconv.FormatBool(recursive))

	endpoint := c.apiURL + "/api/v0/pin/add?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to pin %s: %w", hash, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data)), Type: "http"}
	}

	return apiErr
}

// IsTransient reports whether err is a transport-level failure worth
// retrying. Errors reported by the node itself are not transient, except for
// server errors that arrived without an API envelope (proxies, restarts).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == "http" && apiErr.Status >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
