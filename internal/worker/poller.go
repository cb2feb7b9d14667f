// Package worker provides background reconciliation for AlertArea.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertarea/alertarea/internal/broadcast"
)

// BroadcastLifecycle is the slice of the broadcast service the poller
// drives.
type BroadcastLifecycle interface {
	List(ctx context.Context, opts broadcast.ListOptions) ([]*broadcast.Broadcast, error)
	Complete(ctx context.Context, id string) (*broadcast.Broadcast, error)
	Cancel(ctx context.Context, id string) (*broadcast.Broadcast, error)
}

// StatusSource reports the gateway-side status of a broadcast.
type StatusSource interface {
	BroadcastStatus(ctx context.Context, id string) (string, error)
}

// PollConfig holds configuration for the status poller.
type PollConfig struct {
	// Interval between polls. Default: 30 seconds.
	Interval time.Duration

	// Concurrency is the number of concurrent status lookups.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each status lookup.
	// Default: 10 seconds
	Timeout time.Duration
}

// PollerMetrics tracks poller statistics.
type PollerMetrics struct {
	mu sync.RWMutex

	TotalPolls int64
	Completed  int64
	Cancelled  int64
	Failures   int64

	LastPollAt       time.Time
	LastPollDuration time.Duration
}

// Snapshot returns a copy of the current metrics.
func (m *PollerMetrics) Snapshot() PollerMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return PollerMetrics{
		TotalPolls:       m.TotalPolls,
		Completed:        m.Completed,
		Cancelled:        m.Cancelled,
		Failures:         m.Failures,
		LastPollAt:       m.LastPollAt,
		LastPollDuration: m.LastPollDuration,
	}
}

// Poller reconciles live broadcasts against the alert gateway. The
// gateway owns the end of a broadcast's life: once it reports a
// terminal status, the local record follows it.
type Poller struct {
	config    PollConfig
	logger    zerolog.Logger
	lifecycle BroadcastLifecycle
	source    StatusSource

	metrics *PollerMetrics
}

// PollerConfig holds dependencies for creating a Poller.
type PollerConfig struct {
	Config    PollConfig
	Logger    zerolog.Logger
	Lifecycle BroadcastLifecycle
	Source    StatusSource
}

// NewPoller creates a new status poller.
func NewPoller(cfg PollerConfig) *Poller {
	config := cfg.Config
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.Concurrency == 0 {
		config.Concurrency = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &Poller{
		config:    config,
		logger:    cfg.Logger,
		lifecycle: cfg.Lifecycle,
		source:    cfg.Source,
		metrics:   &PollerMetrics{},
	}
}

// Metrics returns the poller metrics.
func (p *Poller) Metrics() *PollerMetrics {
	return p.metrics
}

// PollResult contains the result of one reconciliation pass.
type PollResult struct {
	StartTime time.Time
	Duration  time.Duration
	Checked   int
	Completed int
	Cancelled int
	Failed    int
}

// Poll runs one reconciliation pass over all live broadcasts.
func (p *Poller) Poll(ctx context.Context) *PollResult {
	startTime := time.Now()
	result := &PollResult{StartTime: startTime}

	live, err := p.lifecycle.List(ctx, broadcast.ListOptions{
		Statuses: []broadcast.Status{broadcast.StatusBroadcasting},
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to list live broadcasts")
		result.Failed++
		p.updateMetrics(result)
		return result
	}
	result.Checked = len(live)
	if len(live) == 0 {
		p.updateMetrics(result)
		return result
	}

	idsChan := make(chan string, len(live))
	resultsChan := make(chan pollOutcome, len(live))

	var wg sync.WaitGroup
	for i := 0; i < p.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.pollWorker(ctx, idsChan, resultsChan)
		}()
	}

	for _, b := range live {
		idsChan <- b.ID
	}
	close(idsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for outcome := range resultsChan {
		switch outcome {
		case outcomeCompleted:
			result.Completed++
			atomic.AddInt64(&p.metrics.Completed, 1)
		case outcomeCancelled:
			result.Cancelled++
			atomic.AddInt64(&p.metrics.Cancelled, 1)
		case outcomeFailed:
			result.Failed++
			atomic.AddInt64(&p.metrics.Failures, 1)
		case outcomeUnchanged:
		}
	}

	result.Duration = time.Since(startTime)
	p.updateMetrics(result)

	p.logger.Info().
		Dur("duration", result.Duration).
		Int("checked", result.Checked).
		Int("completed", result.Completed).
		Int("cancelled", result.Cancelled).
		Int("failed", result.Failed).
		Msg("broadcast status poll completed")

	return result
}

// Run polls on the configured interval until the context ends.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

type pollOutcome int

const (
	outcomeUnchanged pollOutcome = iota
	outcomeCompleted
	outcomeCancelled
	outcomeFailed
)

func (p *Poller) pollWorker(ctx context.Context, ids <-chan string, results chan<- pollOutcome) {
	for id := range ids {
		select {
		case <-ctx.Done():
			return
		default:
			results <- p.pollOne(ctx, id)
		}
	}
}

func (p *Poller) pollOne(ctx context.Context, id string) pollOutcome {
	pollCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	status, err := p.source.BroadcastStatus(pollCtx, id)
	if err != nil {
		p.logger.Warn().Err(err).Str("broadcast_id", id).Msg("gateway status lookup failed")
		return outcomeFailed
	}

	switch status {
	case "completed":
		if _, err := p.lifecycle.Complete(pollCtx, id); err != nil {
			p.logger.Error().Err(err).Str("broadcast_id", id).Msg("failed to complete broadcast")
			return outcomeFailed
		}
		return outcomeCompleted
	case "cancelled":
		if _, err := p.lifecycle.Cancel(pollCtx, id); err != nil {
			p.logger.Error().Err(err).Str("broadcast_id", id).Msg("failed to cancel broadcast")
			return outcomeFailed
		}
		return outcomeCancelled
	default:
		return outcomeUnchanged
	}
}

func (p *Poller) updateMetrics(result *PollResult) {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()
	p.metrics.TotalPolls++
	p.metrics.LastPollAt = result.StartTime
	p.metrics.LastPollDuration = result.Duration
}
