package steem

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Post is one entry of a blog as returned by get_discussions_by_blog. Only the
// fields the pinner reads are decoded.
type Post struct {
	ID           int64  `json:"id"`
	Author       string `json:"author"`
	Permlink     string `json:"permlink"`
	Body         string `json:"body"`
	Category     string `json:"category"`
	JSONMetadata string `json:"json_metadata"`
}

var (
	// ErrNotJSON is returned when the node answers with a non-JSON content type.
	ErrNotJSON = errors.New("not a JSON response")
	// ErrEmptyResponse is returned when the envelope carries neither result nor error.
	ErrEmptyResponse = errors.New("response has neither result nor error")
)

// RPCError is the error envelope of a JSON-RPC response.
type RPCError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// StatusError is returned for non-2xx responses without an RPC error envelope.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.Status)
}

type discussionQuery struct {
	Tag   string `json:"tag"`
	Limit int    `json:"limit"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}
