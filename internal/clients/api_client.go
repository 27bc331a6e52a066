package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"enclave-sdk/internal/dto"
	"enclave-sdk/internal/sdkerr"
)

// APIConfig configures the backend client.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests; zero disables the limit.
	RequestsPerSecond float64
	Burst             int
	// ReadAttempts bounds attempts for idempotent GETs, first try included.
	ReadAttempts int
	RetryDelay   time.Duration
}

// DefaultAPIConfig returns the settings used when a field is left zero.
func DefaultAPIConfig(baseURL string) APIConfig {
	return APIConfig{
		BaseURL:           baseURL,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
		Burst:             5,
		ReadAttempts:      3,
		RetryDelay:        500 * time.Millisecond,
	}
}

// RequestObserver receives one call per HTTP attempt. status is 0 on network errors.
type RequestObserver interface {
	ObserveRequest(method, endpoint string, status int, elapsed time.Duration)
}

// APIClient talks to the backend REST API.
type APIClient struct {
	BaseURL string
	Client  *http.Client

	log          logrus.FieldLogger
	limiter      *rate.Limiter
	readAttempts int
	retryDelay   time.Duration
	observer     RequestObserver

	authMu sync.RWMutex
	token  string
	claims *dto.JWTClaims
}

// NewAPIClient creates a client. log may be nil.
func NewAPIClient(cfg APIConfig, log logrus.FieldLogger) *APIClient {
	def := DefaultAPIConfig(cfg.BaseURL)
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ReadAttempts <= 0 {
		cfg.ReadAttempts = def.ReadAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &APIClient{
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		Client:       &http.Client{Timeout: cfg.Timeout},
		log:          log.WithField("component", "api"),
		readAttempts: cfg.ReadAttempts,
		retryDelay:   cfg.RetryDelay,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	c.log.WithFields(logrus.Fields{"base_url": c.BaseURL, "timeout": cfg.Timeout}).Debug("[API] client created")
	return c
}

// SetObserver installs a per-request observer, typically SDK metrics.
func (c *APIClient) SetObserver(o RequestObserver) {
	c.observer = o
}

// request is one logical API call.
type request struct {
	method   string
	endpoint string // route template used for errors and metrics, e.g. /api/checkbooks/id/:id
	path     string
	query    url.Values
	body     interface{}
}

// do sends req and decodes a 2xx body into out. Only GETs are retried.
func (c *APIClient) do(ctx context.Context, req request, out interface{}) error {
	var payload []byte
	if req.body != nil {
		var err error
		if payload, err = json.Marshal(req.body); err != nil {
			return sdkerr.New(sdkerr.KindValidation, req.endpoint, fmt.Errorf("failed to marshal request: %w", err))
		}
	}

	attempts := 1
	if req.method == http.MethodGet {
		attempts = c.readAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := c.retryDelay << (attempt - 2)
			c.log.WithFields(logrus.Fields{"endpoint": req.endpoint, "attempt": attempt, "delay": delay}).
				Warnf("[API] retrying after error: %v", lastErr)
			select {
			case <-ctx.Done():
				return sdkerr.New(sdkerr.KindTransport, req.endpoint, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := c.once(ctx, req, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return sdkerr.New(sdkerr.KindTransport, req.endpoint, lastErr)
}

func (c *APIClient) once(ctx context.Context, req request, payload []byte, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	u := c.BaseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.Client.Do(httpReq)
	if err != nil {
		c.observe(req, 0, start)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	c.observe(req, resp.StatusCode, start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(req, resp.StatusCode, respBody)
		c.log.WithFields(logrus.Fields{
			"endpoint": req.endpoint,
			"status":   resp.StatusCode,
		}).Warnf("[API] request failed: %s", apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &DecodeError{Endpoint: req.endpoint, Err: err}
	}
	return nil
}

func (c *APIClient) observe(req request, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(req.method, req.endpoint, status, time.Since(start))
	}
}

// retryable reports network failures and 5xx responses. Decode errors and
// 4xx are final.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
