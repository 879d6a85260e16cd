package bulkapi

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"carreg/internal/registration/models"
	"carreg/pkg/platform/circuit"
	"carreg/pkg/platform/sentinel"
)

const defaultProbeInterval = 5 * time.Second

// BreakerClient stops calling a failing remote service. While the breaker
// is open, calls fail fast with sentinel.ErrUnavailable except for one probe
// per interval; enough successful probes close it again.
type BreakerClient struct {
	next          Client
	breaker       *circuit.Breaker
	logger        *slog.Logger
	probeInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	lastProbe time.Time
}

type BreakerOption func(*BreakerClient)

func WithLogger(logger *slog.Logger) BreakerOption {
	return func(c *BreakerClient) {
		c.logger = logger
	}
}

// WithProbeInterval sets how often an open breaker lets a call through.
func WithProbeInterval(d time.Duration) BreakerOption {
	return func(c *BreakerClient) {
		if d > 0 {
			c.probeInterval = d
		}
	}
}

func NewBreakerClient(next Client, breaker *circuit.Breaker, opts ...BreakerOption) *BreakerClient {
	c := &BreakerClient{
		next:          next,
		breaker:       breaker,
		logger:        slog.Default(),
		probeInterval: defaultProbeInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *BreakerClient) ExecuteRegistration(ctx context.Context, req models.BulkRegistrationRequest) (*models.RemoteResponse, error) {
	if !c.allow() {
		return nil, sentinel.ErrUnavailable
	}
	resp, err := c.next.ExecuteRegistration(ctx, req)
	c.record(ctx, err)
	return resp, err
}

func (c *BreakerClient) ExecuteSubsequentRegistration(ctx context.Context, reqs []models.SubsequentRegistrationRequest) (*models.SubsequentRegistrationResponse, error) {
	if !c.allow() {
		return nil, sentinel.ErrUnavailable
	}
	resp, err := c.next.ExecuteSubsequentRegistration(ctx, reqs)
	c.record(ctx, err)
	return resp, err
}

func (c *BreakerClient) allow() bool {
	if !c.breaker.IsOpen() {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastProbe) < c.probeInterval {
		return false
	}
	c.lastProbe = now
	return true
}

// record ignores cancellation by the caller; only remote failures count.
func (c *BreakerClient) record(ctx context.Context, err error) {
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) && ctx.Err() != nil {
		return
	}
	if err != nil {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.mu.Lock()
			c.lastProbe = c.now()
			c.mu.Unlock()
			c.logger.WarnContext(ctx, "remote registration circuit opened",
				"breaker", c.breaker.Name(),
				"error", err,
			)
		}
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "remote registration circuit closed",
			"breaker", c.breaker.Name(),
		)
	}
}
