package runtime

import (
	"context"
	"time"

	"github.com/vinodismyname/salespulse/config"
	"golang.org/x/sync/semaphore"
)

// Limits are the guardrails applied to tool calls and loaded datasets.
type Limits struct {
	MaxConcurrentRequests int
	MaxOpenDatasets       int

	// Row bounds
	MaxRows         int
	PreviewRowLimit int
	TopN            int

	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration
}

// NewLimits fills unset values from config defaults.
func NewLimits(maxConcurrentRequests, maxOpenDatasets int) Limits {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if maxOpenDatasets <= 0 {
		maxOpenDatasets = config.DefaultMaxOpenDatasets
	}
	return Limits{
		MaxConcurrentRequests: maxConcurrentRequests,
		MaxOpenDatasets:       maxOpenDatasets,
		MaxRows:               config.DefaultMaxRows,
		PreviewRowLimit:       config.DefaultPreviewRowLimit,
		TopN:                  config.DefaultTopN,
		OperationTimeout:      config.DefaultOperationTimeout,
		AcquireRequestTimeout: config.DefaultAcquireRequestTimeout,
	}
}

// Controller holds the request and dataset semaphores.
type Controller struct {
	limits   Limits
	requests *semaphore.Weighted
	datasets *semaphore.Weighted
}

func NewController(limits Limits) *Controller {
	return &Controller{
		limits:   limits,
		requests: semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		datasets: semaphore.NewWeighted(int64(limits.MaxOpenDatasets)),
	}
}

// AcquireRequest blocks until a request slot is free or ctx ends.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requests.Acquire(ctx, 1)
}

func (c *Controller) ReleaseRequest() { c.requests.Release(1) }

// AcquireDataset reserves a slot for one cached dataset. It does not wait:
// a full cache is reported immediately so the caller can close something.
func (c *Controller) AcquireDataset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.datasets.TryAcquire(1) {
		return ErrDatasetLimit
	}
	return nil
}

func (c *Controller) ReleaseDataset() { c.datasets.Release(1) }

// LimitsSnapshot returns the configured limits.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}
