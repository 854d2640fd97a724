// http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sphinx-core/lamport/src/common"
	"github.com/sphinx-core/lamport/src/crypto/lamport"
	"github.com/sphinx-core/lamport/src/keystore"
)

// Client talks to a running Server.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient returns a client for the server at address ("host:port" or a URL).
func NewClient(address string) *Client {
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}
	return &Client{
		base: strings.TrimRight(address, "/"),
		hc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Unwrap maps the status back onto the sentinel errors the server derived it from.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return keystore.ErrNotFound
	case http.StatusConflict:
		return lamport.ErrKeyAlreadySpent
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Generate creates a key pair on the server.
func (c *Client) Generate(ctx context.Context, digest string) (*KeyResponse, error) {
	var out KeyResponse
	if err := c.do(ctx, http.MethodPost, "/keys", GenerateRequest{Digest: digest}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Keys lists the server's keys.
func (c *Client) Keys(ctx context.Context) ([]KeyResponse, error) {
	var out []KeyResponse
	if err := c.do(ctx, http.MethodGet, "/keys", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Key fetches one key.
func (c *Client) Key(ctx context.Context, id string) (*KeyResponse, error) {
	var out KeyResponse
	if err := c.do(ctx, http.MethodGet, "/keys/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sign spends key id on message.
func (c *Client) Sign(ctx context.Context, id string, message []byte) (*SignResponse, error) {
	var out SignResponse
	req := SignRequest{MessageHex: common.Bytes2Hex(message)}
	if err := c.do(ctx, http.MethodPost, "/keys/"+url.PathEscape(id)+"/sign", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify asks the server to check a signature.
func (c *Client) Verify(ctx context.Context, req VerifyRequest) (bool, error) {
	var out VerifyResponse
	if err := c.do(ctx, http.MethodPost, "/verify", req, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// Digests lists the digests the server accepts.
func (c *Client) Digests(ctx context.Context) ([]string, error) {
	var out struct {
		Digests []string `json:"digests"`
	}
	if err := c.do(ctx, http.MethodGet, "/digests", nil, &out); err != nil {
		return nil, err
	}
	return out.Digests, nil
}
