// Package gateway is the client-side HTTP transport for the auth service:
// every outbound request is time-bounded, identified as app traffic, retried
// on transport failures only, and translated into the shared error taxonomy.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/httputil"
)

// ClientHeader mirrors the server-side client-identification header name.
const ClientHeader = "X-FieldForce-Client"

const (
	DefaultTimeout       = 15 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryBase     = 500 * time.Millisecond
)

// Config configures the gateway.
type Config struct {
	// BaseURL is the auth service root, e.g. "https://api.fieldforce.example".
	BaseURL string

	// AppToken is sent in the client-identification header on every request.
	AppToken string

	// Timeout bounds each individual attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// RetryAttempts is the number of retries after the first attempt, taken
	// only for transport-class failures. Zero means DefaultRetryAttempts.
	RetryAttempts int

	// RetryBase is the linear backoff unit: the n-th retry waits n*RetryBase.
	RetryBase time.Duration
}

// Gateway performs JSON requests against the auth service.
type Gateway struct {
	baseURL       string
	appToken      string
	timeout       time.Duration
	retryAttempts int
	retryBase     time.Duration
	client        *http.Client
	breaker       *gobreaker.CircuitBreaker[*response]
	logger        *slog.Logger
}

type response struct {
	status int
	body   []byte
}

// New creates a gateway.
func New(cfg Config, logger *slog.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultRetryBase
	}

	breaker := gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:    "auth-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 8
		},
	})

	return &Gateway{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		appToken:      cfg.AppToken,
		timeout:       cfg.Timeout,
		retryAttempts: cfg.RetryAttempts,
		retryBase:     cfg.RetryBase,
		client:        &http.Client{},
		breaker:       breaker,
		logger:        logger,
	}
}

// Do performs an unauthenticated JSON request and decodes the response into
// out (which may be nil).
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	return g.do(ctx, method, path, "", body, out)
}

// DoWithToken performs a request carrying an Authorization bearer token.
func (g *Gateway) DoWithToken(ctx context.Context, method, path, bearer string, body, out any) error {
	return g.do(ctx, method, path, bearer, body, out)
}

// do runs the attempt loop. Only transport-class failures are retried, with
// linear backoff retryBase*attempt; a received HTTP status, whatever it is,
// terminates the loop immediately.
func (g *Gateway) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return autherrors.InvalidInput("request body could not be encoded")
		}
	}

	var lastErr error
	for attempt := 0; attempt <= g.retryAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * g.retryBase
			g.logger.DebugContext(ctx, "retrying request",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", wait),
			)
			select {
			case <-ctx.Done():
				return autherrors.Wrap(autherrors.ErrTimeout, "request canceled")
			case <-time.After(wait):
			}
		}

		res, err := g.attempt(ctx, method, path, bearer, payload)
		if err == nil {
			return decodeSuccess(res, out)
		}
		if !autherrors.IsRetryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (g *Gateway) attempt(ctx context.Context, method, path, bearer string, payload []byte) (*response, error) {
	res, err := g.breaker.Execute(func() (*response, error) {
		return g.roundTrip(ctx, method, path, bearer, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Fail fast while the circuit is open; still network-class so
			// callers present it as a connectivity problem.
			return nil, autherrors.Wrap(autherrors.ErrNetwork, "service temporarily unavailable")
		}
		return nil, err
	}
	if res.status >= 400 {
		var errBody httputil.ErrorBody
		_ = json.Unmarshal(res.body, &errBody)
		return nil, translateStatus(res.status, errBody)
	}
	return res, nil
}

// roundTrip performs one time-bounded HTTP exchange. Transport errors come
// back wrapped in the retryable sentinels; an HTTP response of any status is
// a success at this layer.
func (g *Gateway) roundTrip(ctx context.Context, method, path, bearer string, payload []byte) (*response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, autherrors.Wrap(autherrors.ErrInternal, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ClientHeader, g.appToken)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s: %w", method, path, autherrors.ErrTimeout)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, autherrors.ErrTimeout)
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, autherrors.ErrNetwork)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", autherrors.ErrNetwork)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

func decodeSuccess(res *response, out any) error {
	if out == nil || res.status == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return autherrors.Wrap(autherrors.ErrInternal, "decode response body")
	}
	return nil
}
