// Package alertapi is the client for the downstream alert-dispatch
// gateway, the service that hands broadcasts to the mobile networks.
package alertapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertarea/alertarea/internal/broadcast"
)

// ClientName identifies this client for circuit breaker naming.
const ClientName = "alert-gateway"

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 10 * time.Second

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestRecorder receives the timing of each gateway call.
// middleware.GatewayMetrics satisfies it.
type RequestRecorder interface {
	RecordRequest(gateway, operation string, duration time.Duration, err error)
}

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alertapi: gateway returned %d: %s", e.StatusCode, e.Body)
}

// ClientConfig holds configuration for the gateway client.
type ClientConfig struct {
	// BaseURL is the gateway base URL (required).
	BaseURL string

	// APIKey is the bearer token for the gateway (required).
	APIKey string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Logger for client operations.
	Logger zerolog.Logger

	// Metrics records call timings (optional).
	Metrics RequestRecorder
}

// Client submits and cancels broadcasts on the gateway. It satisfies
// broadcast.Dispatcher.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
	logger     zerolog.Logger
	metrics    RequestRecorder
}

var _ broadcast.Dispatcher = (*Client)(nil)

// NewClient creates a gateway client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = NewResilientClient(ResilientConfig{
			Name:    ClientName,
			Timeout: timeout,
		})
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

func (c *Client) record(operation string, start time.Time, err error) {
	if c.metrics != nil {
		c.metrics.RecordRequest(ClientName, operation, time.Since(start), err)
	}
}

// broadcastRequest is the gateway's create payload.
type broadcastRequest struct {
	Reference           string        `json:"reference"`
	Content             string        `json:"content"`
	AreaIDs             []string      `json:"area_ids"`
	AreaNames           []string      `json:"area_names"`
	AggregateNames      []string      `json:"aggregate_names"`
	SimplePolygons      [][][]float64 `json:"simple_polygons"`
	ForceOverride       bool          `json:"force_override"`
	CountOfPhones       float64       `json:"count_of_phones"`
	CountOfPhonesLikely float64       `json:"count_of_phones_likely"`
}

// CreateBroadcast submits a broadcast for transmission.
func (c *Client) CreateBroadcast(ctx context.Context, b *broadcast.Broadcast) error {
	payload := broadcastRequest{
		Reference:           b.Reference,
		Content:             b.Content,
		AreaIDs:             b.AreaIDs,
		AreaNames:           b.AreaNames,
		AggregateNames:      b.AggregateNames,
		SimplePolygons:      b.SimplePolygons,
		ForceOverride:       b.ForceOverride,
		CountOfPhones:       b.CountOfPhones,
		CountOfPhonesLikely: b.CountOfPhonesLikely,
	}

	c.logger.Info().
		Str("broadcast_id", b.ID).
		Str("reference", b.Reference).
		Bool("force_override", b.ForceOverride).
		Msg("submitting broadcast to gateway")

	start := time.Now()
	err := c.post(ctx, fmt.Sprintf("%s/broadcasts/%s", c.baseURL, b.ID), payload)
	c.record("create-broadcast", start, err)
	return err
}

// CancelBroadcast stops an in-flight broadcast.
func (c *Client) CancelBroadcast(ctx context.Context, id string) error {
	c.logger.Info().
		Str("broadcast_id", id).
		Msg("cancelling broadcast on gateway")

	start := time.Now()
	err := c.post(ctx, fmt.Sprintf("%s/broadcasts/%s/cancel", c.baseURL, id), nil)
	c.record("cancel-broadcast", start, err)
	return err
}

// BroadcastStatus reports the gateway's view of a broadcast.
func (c *Client) BroadcastStatus(ctx context.Context, id string) (status string, err error) {
	start := time.Now()
	defer func() { c.record("broadcast-status", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/broadcasts/%s", c.baseURL, id), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reaching gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return out.Status, nil
}

func (c *Client) post(ctx context.Context, url string, payload any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reaching gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}
