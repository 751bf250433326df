package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

type client struct {
	serverURL string
	timeout   time.Duration
	http      *http.Client
}

func (c *client) httpClient() *http.Client {
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c.http
}

// invoke posts params to a channel and returns the data of a successful
// envelope. A failed envelope becomes an error carrying its message.
func (c *client) invoke(ctx context.Context, channel string, params any) (gjson.Result, error) {
	var body io.Reader
	switch p := params.(type) {
	case nil:
	case string:
		body = strings.NewReader(p)
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("failed to marshal params: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	url := strings.TrimRight(c.serverURL, "/") + "/api/ipc/" + channel
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	env, status, err := c.do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	if !env.Get("success").Bool() {
		msg := env.Get("error").String()
		if msg == "" {
			msg = http.StatusText(status)
		}
		return gjson.Result{}, fmt.Errorf("%s: %s", channel, msg)
	}
	return env.Get("data"), nil
}

func (c *client) get(ctx context.Context, path string) (gjson.Result, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.serverURL, "/")+path, nil)
	if err != nil {
		return gjson.Result{}, 0, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

func (c *client) do(req *http.Request) (gjson.Result, int, error) {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return gjson.Result{}, 0, fmt.Errorf("failed to send request to %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, resp.StatusCode, fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return gjson.ParseBytes(raw), resp.StatusCode, nil
}
