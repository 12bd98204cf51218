package steem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
)

const (
	databaseAPI           = "database_api"
	getDiscussionsByBlog  = "get_discussions_by_blog"
	maxResponseBodyLength = 32 << 20
)

// Client talks to a Steem node over JSON-RPC 2.0. It is safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
}

func NewClient(endpoint string, httpClient *http.Client, userAgent string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// FetchRecentPosts returns up to limit of the most recent posts of the blog
// feedName, newest first.
func (c *Client) FetchRecentPosts(ctx context.Context, feedName string, limit int) ([]Post, error) {
	var posts []Post
	query := discussionQuery{Tag: feedName, Limit: limit}

	if err := c.call(ctx, databaseAPI, getDiscussionsByBlog, []any{query}, &posts); err != nil {
		return nil, err
	}

	return posts, nil
}

func (c *Client) call(ctx context.Context, api, method string, args any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      0,
		Method:  "call",
		Params:  []any{api, method, args},
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s.%s: %w", api, method, err)
	}
	defer resp.Body.Close()

	if !isJSON(resp.Header.Get("Content-Type")) {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}
		return ErrNotJSON
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLength))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if envelope.Error != nil {
		return envelope.Error
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if len(envelope.Result) == 0 || bytes.Equal(envelope.Result, []byte("null")) {
		return ErrEmptyResponse
	}

	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}

	return nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
