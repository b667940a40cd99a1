package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/adapter/metrics"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// StatusError is returned for responses with a status code of 400 or above.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// Config controls breaker and retry behaviour of a ResilientClient.
type Config struct {
	Name    string
	Timeout time.Duration

	EnableCircuitBreaker bool
	MaxFailures          uint32
	CircuitTimeout       time.Duration

	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultConfig(name string) Config {
	return Config{
		Name:                 name,
		Timeout:              5 * time.Second,
		EnableCircuitBreaker: true,
		MaxFailures:          5,
		CircuitTimeout:       30 * time.Second,
		MaxRetries:           3,
		InitialInterval:      200 * time.Millisecond,
		MaxInterval:          2 * time.Second,
	}
}

// ResilientClient wraps an http.Client with a circuit breaker and bounded,
// context-aware retries.
type ResilientClient struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	config  Config
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *ResilientClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &ResilientClient{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		logger: logger,
	}
	if cfg.EnableCircuitBreaker {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Timeout:     cfg.CircuitTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.MaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
	return c
}

// Do sends req. The request body is buffered once so every attempt replays the
// same payload. Responses with status >= 400 are closed and returned as *StatusError.
func (c *ResilientClient) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body = b
	}

	if c.breaker == nil {
		return c.doWithRetry(req, body)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doWithRetry(req, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordHTTPClientError("circuit_open")
			return nil, fmt.Errorf("%s: %w", c.config.Name, ErrCircuitOpen)
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

func (c *ResilientClient) doWithRetry(req *http.Request, body []byte) (*http.Response, error) {
	var resp *http.Response

	attempt := func() error {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}
		r, err := c.client.Do(req)
		if err != nil {
			metrics.RecordHTTPClientError("connection")
			if shouldRetry(err, nil) {
				return err
			}
			return backoff.Permanent(err)
		}
		if r.StatusCode >= 400 {
			recordStatus(r.StatusCode)
			r.Body.Close()
			statusErr := &StatusError{StatusCode: r.StatusCode, Status: r.Status}
			if shouldRetry(nil, r) {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}
		resp = r
		return nil
	}

	if c.config.MaxRetries <= 0 {
		if err := attempt(); err != nil {
			var permanent *backoff.PermanentError
			if errors.As(err, &permanent) {
				return nil, permanent.Err
			}
			return nil, err
		}
		return resp, nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.config.InitialInterval
	exp.MaxInterval = c.config.MaxInterval
	exp.Multiplier = 2.0
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.config.MaxRetries)), req.Context())
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.config.Name, err)
	}
	return resp, nil
}

func shouldRetry(err error, resp *http.Response) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		msg := err.Error()
		return strings.Contains(msg, "connection refused") ||
			strings.Contains(msg, "connection reset") ||
			strings.Contains(msg, "EOF")
	}
	if resp == nil {
		return false
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func recordStatus(code int) {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		metrics.RecordHTTPClientError("auth")
	case code == http.StatusTooManyRequests:
		metrics.RecordHTTPClientError("rate_limit")
	case code == http.StatusRequestTimeout:
		metrics.RecordHTTPClientError("timeout")
	case code >= 500:
		metrics.RecordHTTPClientError("server_error")
	default:
		metrics.RecordHTTPClientError("http_error")
	}
}
