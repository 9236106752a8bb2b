package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	userAgent          = "daily-planner-agent/1.0"
	maxBodyBytes       = 4 << 20
)

// ErrUpstreamStatus is returned for non-2xx responses from an upstream API
var ErrUpstreamStatus = errors.New("sources: unexpected upstream status")

// NewHTTPClient returns the client shared by the HTTP adapters
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// fetcher performs GETs with bounded exponential retry. 4xx responses are not retried.
type fetcher struct {
	client  *http.Client
	retries uint64
	initial time.Duration
}

func newFetcher(client *http.Client) fetcher {
	if client == nil {
		client = NewHTTPClient(0)
	}
	return fetcher{client: client, retries: 2, initial: 200 * time.Millisecond}
}

func (f fetcher) get(ctx context.Context, url, accept string) ([]byte, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return err
		}
		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
		case resp.StatusCode >= 300:
			return backoff.Permanent(fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode))
		}
		body = data
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.initial
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, f.retries), ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
