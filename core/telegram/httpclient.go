package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/meetbot/core/telegram/netutil"
)

const (
	dialTimeout       = 5 * time.Second
	tlsTimeout        = 5 * time.Second
	idleConnTimeout   = 90 * time.Second
	keepAliveInterval = 30 * time.Second
	clientGracePeriod = 20 * time.Second
	minClientTimeout  = 30 * time.Second
	retryAttempts     = 3
	retryBackoff      = 2 * time.Second
)

// NewHTTPClient builds the client for Bot API calls. Telegram holds a
// getUpdates request open for the long poll duration before answering, so
// both the header and overall timeouts must outlive the poll hold.
func NewHTTPClient(longPoll time.Duration) *http.Client {
	timeout := longPoll + clientGracePeriod
	if timeout < minClientTimeout {
		timeout = minClientTimeout
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &retryRoundTripper{
			base: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   dialTimeout,
					KeepAlive: keepAliveInterval,
				}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConnsPerHost:   4,
				IdleConnTimeout:       idleConnTimeout,
				TLSHandshakeTimeout:   tlsTimeout,
				ResponseHeaderTimeout: timeout,
			},
			attempts: retryAttempts,
			backoff:  retryBackoff,
		},
	}
}

// retryRoundTripper retries transient network failures with linear backoff.
// Only errors netutil.ShouldRetry classifies as transient are retried, and
// only when the request body can be replayed.
type retryRoundTripper struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		attemptReq, err := t.replay(req, attempt)
		if err != nil {
			return nil, err
		}
		if attemptReq == nil {
			break
		}

		resp, err := t.base.RoundTrip(attemptReq)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) {
			break
		}

		timer := time.NewTimer(t.backoff * time.Duration(attempt))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// replay prepares the request for the given attempt. It returns nil when the
// body cannot be rewound, which ends the retry loop with the previous error.
func (t *retryRoundTripper) replay(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	if req.Body == nil {
		return req.Clone(req.Context()), nil
	}
	if req.GetBody == nil {
		return nil, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}
