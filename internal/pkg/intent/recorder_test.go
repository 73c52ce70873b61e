package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/app/repository"
	"github.com/ManuelReschke/PropKit/internal/pkg/database/dbtest"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, models.IntentCompleted, Outcome("sub_1", nil))
	assert.Equal(t, models.IntentFailed, Outcome("", errors.New("rejected")))
	assert.Equal(t, models.IntentOrphaned, Outcome("sub_1", errors.New("commit failed")))
}

func TestBeginAndSettle(t *testing.T) {
	db := dbtest.Open(t)
	store := repository.NewStore(db)
	rec := NewRecorder(store)
	ctx := context.Background()

	h, err := rec.Begin(ctx, models.IntentOpCreateSubscription, 4, 0)
	require.NoError(t, err)
	require.NotEmpty(t, h.Key)

	stored, err := store.Repositories(ctx).Intent.GetByKey(h.Key)
	require.NoError(t, err)
	assert.Equal(t, models.IntentPending, stored.Status)
	assert.Equal(t, uint(4), stored.UserID)

	rec.Settle(ctx, h, "sub_9", nil)
	stored, err = store.Repositories(ctx).Intent.GetByKey(h.Key)
	require.NoError(t, err)
	assert.Equal(t, models.IntentCompleted, stored.Status)
	assert.Equal(t, "sub_9", stored.ExternalRef)
	assert.NotNil(t, stored.ResolvedAt)

	// resolution is final
	rec.Settle(ctx, h, "", errors.New("late failure"))
	stored, err = store.Repositories(ctx).Intent.GetByKey(h.Key)
	require.NoError(t, err)
	assert.Equal(t, models.IntentCompleted, stored.Status)
}

func TestSettleOrphaned(t *testing.T) {
	db := dbtest.Open(t)
	store := repository.NewStore(db)
	rec := NewRecorder(store)
	ctx := context.Background()

	h, err := rec.Begin(ctx, models.IntentOpPurchaseLabel, 1, 12)
	require.NoError(t, err)
	rec.Settle(ctx, h, "ord_1", errors.New("commit failed"))

	orphans, err := rec.ListOrphaned(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, "ord_1", orphans[0].ExternalRef)
	assert.Equal(t, uint(12), orphans[0].SubjectID)
	assert.Contains(t, orphans[0].Error, "commit failed")
}

func TestMarkStaleFailed(t *testing.T) {
	db := dbtest.Open(t)
	store := repository.NewStore(db)
	rec := NewRecorder(store)
	ctx := context.Background()

	_, err := rec.Begin(ctx, models.IntentOpCreateSubscription, 1, 0)
	require.NoError(t, err)

	// nothing is older than an hour yet
	n, err := rec.MarkStaleFailed(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	rec.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	stale, err := rec.ListStale(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	n, err = rec.MarkStaleFailed(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := store.Repositories(ctx).Intent.GetByKey(stale[0].Key)
	require.NoError(t, err)
	assert.Equal(t, models.IntentFailed, stored.Status)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	h, err := rec.Begin(context.Background(), models.IntentOpPurchaseLabel, 1, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, h.Key)
	rec.Settle(context.Background(), h, "x", nil)

	_, err = rec.ListStale(context.Background(), time.Minute)
	assert.Error(t, err)
}
