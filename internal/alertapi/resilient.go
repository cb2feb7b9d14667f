package alertapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Resilient transport errors.
var (
	// ErrCircuitOpen is returned while the gateway circuit is open.
	ErrCircuitOpen = errors.New("alert gateway circuit is open")
)

// ServerError represents an HTTP 5xx from the gateway.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "gateway error: " + http.StatusText(e.StatusCode)
}

// ResilientConfig holds configuration for the resilient HTTP transport.
type ResilientConfig struct {
	// Name identifies the circuit breaker for logging.
	Name string

	// Timeout is the per-request timeout. Default: 10 seconds.
	Timeout time.Duration

	// MaxRetries is the retry budget for transient failures. Default: 3.
	MaxRetries uint64

	// InitialInterval is the first retry backoff. Default: 100ms.
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff. Default: 5 seconds.
	MaxInterval time.Duration

	// ReadyToTrip overrides the default trip condition (at least 5
	// requests with a 50% failure rate).
	ReadyToTrip func(counts gobreaker.Counts) bool
}

// ResilientClient executes HTTP requests with retries and a circuit
// breaker. Emergency broadcasts must not silently vanish into a dead
// gateway, so 5xx responses and network failures retry with backoff
// until the circuit trips.
type ResilientClient struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	cfg        ResilientConfig
}

// NewResilientClient creates a resilient transport, applying defaults
// for zero-valued config fields.
func NewResilientClient(cfg ResilientConfig) *ResilientClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		}
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: readyToTrip,
	})

	return &ResilientClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		cfg:        cfg,
	}
}

// Do executes the request, retrying 5xx responses and network errors
// with exponential backoff. It returns ErrCircuitOpen without touching
// the network while the circuit is open. The final 5xx response is
// returned to the caller when the retry budget runs out.
func (c *ResilientClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	var lastResp *http.Response

	operation := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			clone := req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				clone.Body = body
			}
			r, err := c.httpClient.Do(clone)
			if err != nil {
				return nil, err
			}
			// 5xx counts against the circuit
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				lastResp = resp
			}
			return err
		}
		lastResp = resp
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx))
	if err != nil {
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}
	return lastResp, nil
}

// State returns the current circuit breaker state.
func (c *ResilientClient) State() gobreaker.State {
	return c.breaker.State()
}
