package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	expired int
	err     error
	gotNow  time.Time
}

func (f *fakeExpirer) ExpirePending(_ context.Context, now time.Time) (int, error) {
	f.gotNow = now
	return f.expired, f.err
}

func TestOrderExpiryJobReportsExpiredCount(t *testing.T) {
	expirer := &fakeExpirer{expired: 3}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:   testLogger(),
		Checkout: expirer,
	})
	require.NoError(t, err)
	require.Equal(t, "order_expiry", job.Name())

	frozen := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	job.(*orderExpiryJob).now = func() time.Time { return frozen }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, frozen, expirer.gotNow)
}

func TestOrderExpiryJobWrapsServiceError(t *testing.T) {
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:   testLogger(),
		Checkout: &fakeExpirer{err: errors.New("db down")},
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.ErrorContains(t, err, "expire pending orders")
}

func TestNewOrderExpiryJobValidatesDeps(t *testing.T) {
	_, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: testLogger()})
	require.EqualError(t, err, "checkout service required")

	_, err = NewOrderExpiryJob(OrderExpiryJobParams{Checkout: &fakeExpirer{}})
	require.EqualError(t, err, "logger required")
}
