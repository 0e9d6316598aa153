// Package client is the HTTP client opsctl uses to talk to a console
// instance.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// APIError mirrors the server's error envelope.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Client wraps a resty client pointed at one console server.
type Client struct {
	rc *resty.Client
}

// New creates a Client for the given server base URL.
func New(server, userAgent string, timeout time.Duration) (*Client, error) {
	if server == "" {
		return nil, fmt.Errorf("server is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(server, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent)
	return &Client{rc: rc}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	resp, err := c.rc.R().SetContext(ctx).SetResult(out).SetError(&errorBody{}).Get(endpoint)
	return wrap(resp, err)
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	req := c.rc.R().SetContext(ctx).SetResult(out).SetError(&errorBody{})
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(endpoint)
	return wrap(resp, err)
}

func (c *Client) put(ctx context.Context, endpoint string, body, out any) error {
	resp, err := c.rc.R().SetContext(ctx).SetBody(body).SetResult(out).SetError(&errorBody{}).Put(endpoint)
	return wrap(resp, err)
}

func (c *Client) delete(ctx context.Context, endpoint string) error {
	resp, err := c.rc.R().SetContext(ctx).SetError(&errorBody{}).Delete(endpoint)
	return wrap(resp, err)
}

func wrap(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}
		if body, ok := resp.Error().(*errorBody); ok && body.Error != "" {
			apiErr.Message = body.Error
			apiErr.Code = body.Code
		}
		return apiErr
	}
	return nil
}
