package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/sokonihq/sokoni-backend/pkg/logger"
)

const expiryBatchSize = 200

// orderExpirer is the slice of the orders service this job needs.
type orderExpirer interface {
	ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// OrderExpiryJobParams configure the pending-order expiry job.
type OrderExpiryJobParams struct {
	Logger *logger.Logger
	Orders orderExpirer
	TTL    time.Duration
}

// NewOrderExpiryJob builds the job that cancels orders left pending and
// unpaid longer than the configured TTL.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("expiry ttl must be positive")
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    params.TTL,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders orderExpirer
	ttl    time.Duration
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	var errs []error
	total := 0
	for {
		expired, err := j.orders.ExpireStalePending(ctx, j.ttl, expiryBatchSize)
		total += expired
		if err != nil {
			errs = append(errs, err)
			break
		}
		if expired < expiryBatchSize {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": total})
	j.logg.Info(logCtx, "order expiry loop complete")
	return multierr.Combine(errs...)
}
