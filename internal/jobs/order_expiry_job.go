package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/zaliuojibanga/shop-core/pkg/logger"
)

// orderExpirer cancels pending-payment orders whose reservation lapsed.
// The expired-orders counter is owned by the implementation, which knows
// the true cancellation count.
type orderExpirer interface {
	ExpirePending(ctx context.Context, now time.Time) (int, error)
}

// OrderExpiryJobParams configure the order expiry job.
type OrderExpiryJobParams struct {
	Logger   *logger.Logger
	Checkout orderExpirer
}

// NewOrderExpiryJob builds the job that releases reservations held by
// pending-payment orders past their deadline.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Checkout == nil {
		return nil, fmt.Errorf("checkout service required")
	}
	return &orderExpiryJob{
		logg:     params.Logger,
		checkout: params.Checkout,
		now:      time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg     *logger.Logger
	checkout orderExpirer
	now      func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order_expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	expired, err := j.checkout.ExpirePending(ctx, j.now())
	if err != nil {
		return fmt.Errorf("expire pending orders: %w", err)
	}
	if expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired_orders", expired), "expired pending orders")
	}
	return nil
}
