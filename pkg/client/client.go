package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Client is the typed API gateway. Every call attaches the current bearer
// token; a 401 triggers one shared refresh and exactly one retry.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session

	// Settings receives alarm-hours updates after successful profile calls.
	Settings *Settings
}

func New(baseURL string, session *Session) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		session:  session,
		Settings: NewSettings(),
	}
}

// Session returns the underlying auth session.
func (c *Client) Session() *Session { return c.session }

// do performs one authorized request. On 401 it joins the shared refresh
// flight and retries once with the new token; a second 401 (or a failed
// refresh) is terminal.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	status, data, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		if rerr := c.session.Refresh(ctx); rerr != nil {
			return rerr
		}
		status, data, err = c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}
	}
	if status >= 400 {
		return newAPIError(status, data)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.session.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, transientError(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, transientError(err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}
