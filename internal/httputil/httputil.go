// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxBodyBytes bounds how much of a response body Get will read.
const maxBodyBytes = 64 << 20

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response carried HTTP 200.
func (r Response) OK() bool { return r.StatusCode == http.StatusOK }

// Get issues a GET request for url with the given User-Agent and reads the
// whole body. Non-200 responses are returned without error so callers can
// decide how to treat them; only transport failures produce an error.
func Get(ctx context.Context, client *http.Client, url, userAgent string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, fmt.Errorf("creating request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{StatusCode: resp.StatusCode}, fmt.Errorf("reading response body: %w", err)
	}
	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// Pacer enforces a fixed pause after each request. It is the only rate
// control the API clients use; there is no backoff.
type Pacer struct {
	Delay time.Duration
}

// Wait sleeps for the configured delay. It returns ctx.Err() if the context
// is cancelled first. A zero or negative delay returns immediately.
func (p Pacer) Wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
