package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

const defaultHTTPTimeout = 15 * time.Second
const defaultHTTPRetries = 3
const defaultHTTPRetryDelay = 200 * time.Millisecond
const maxHTTPRetryDelay = 2 * time.Second

// HTTPOptions configures index and requirements-file requests. Zero values
// select the defaults.
type HTTPOptions struct {
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
	User         string
	Password     string
	UserAgent    string
}

type httpRetryConfig struct {
	timeout   time.Duration
	retries   int
	baseDelay time.Duration
	user      string
	password  string
	userAgent string
}

func normalizeHTTPConfig(opts HTTPOptions) httpRetryConfig {
	timeout := time.Duration(opts.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	retryCount := opts.Retries
	if retryCount <= 0 {
		retryCount = defaultHTTPRetries
	}
	baseDelay := time.Duration(opts.RetryDelayMs) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = defaultHTTPRetryDelay
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "pipkit"
	}
	return httpRetryConfig{
		timeout:   timeout,
		retries:   retryCount,
		baseDelay: baseDelay,
		user:      opts.User,
		password:  opts.Password,
		userAgent: userAgent,
	}
}

type httpRequest struct {
	method      string
	url         string
	body        []byte
	contentType string
}

func doRequest(ctx context.Context, request httpRequest, cfg httpRetryConfig) (*http.Response, error) {
	client := &http.Client{Timeout: cfg.timeout}
	method := request.method
	if method == "" {
		method = http.MethodGet
	}
	var lastErr error
	for attempt := 0; attempt < cfg.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request canceled").
				WithCause(ctx.Err())
		}
		var body io.Reader
		if request.body != nil {
			body = bytes.NewReader(request.body)
		}
		req, err := http.NewRequestWithContext(ctx, method, request.url, body)
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to create request").
				WithCause(err)
		}
		req.Header.Set("User-Agent", cfg.userAgent)
		if request.contentType != "" {
			req.Header.Set("Content-Type", request.contentType)
		}
		if strings.TrimSpace(cfg.password) != "" {
			req.SetBasicAuth(strings.TrimSpace(cfg.user), cfg.password)
		}
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("request canceled").
					WithCause(ctx.Err())
			}
			lastErr = err
			if attempt < cfg.retries-1 {
				if err := waitRetry(ctx, httpRetryDelay(attempt, cfg)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("request failed").
				WithCause(err)
		}
		if (resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests) && attempt < cfg.retries-1 {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if err := waitRetry(ctx, httpRetryDelay(attempt, cfg)); err != nil {
				return nil, err
			}
			continue
		}
		return resp, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("request failed")
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("request failed").
		WithCause(lastErr)
}

func httpRetryDelay(attempt int, cfg httpRetryConfig) time.Duration {
	delay := cfg.baseDelay * time.Duration(1<<attempt)
	if delay > maxHTTPRetryDelay {
		delay = maxHTTPRetryDelay
	}
	jitter := time.Duration(time.Now().UnixNano() % int64(delay/2+1))
	return delay + jitter
}

func httpStatusCode(status int) errbuilder.ErrCode {
	switch {
	case status == http.StatusNotFound:
		return errbuilder.CodeNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errbuilder.CodePermissionDenied
	default:
		return errbuilder.CodeInternal
	}
}

func waitRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("request canceled").
			WithCause(ctx.Err())
	case <-timer.C:
		return nil
	}
}
