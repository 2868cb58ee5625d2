package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRetentionRepo struct {
	deleted   int64
	err       error
	gotCutoff time.Time
}

func (f *fakeRetentionRepo) DeletePublishedBefore(cutoff time.Time) (int64, error) {
	f.gotCutoff = cutoff
	return f.deleted, f.err
}

func TestOutboxRetentionJobCutoff(t *testing.T) {
	repo := &fakeRetentionRepo{deleted: 12}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:        testLogger(),
		Repository:    repo,
		RetentionDays: 7,
	})
	require.NoError(t, err)
	require.Equal(t, "outbox_retention", job.Name())

	frozen := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	job.(*outboxRetentionJob).now = func() time.Time { return frozen }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, frozen.AddDate(0, 0, -7), repo.gotCutoff)
}

func TestOutboxRetentionJobDefaultsRetention(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: &fakeRetentionRepo{},
	})
	require.NoError(t, err)
	require.Equal(t, defaultOutboxRetentionDays, job.(*outboxRetentionJob).retention)
}

func TestOutboxRetentionJobWrapsRepoError(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: &fakeRetentionRepo{err: errors.New("deadlock")},
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.ErrorContains(t, err, "purge published outbox events")
}
