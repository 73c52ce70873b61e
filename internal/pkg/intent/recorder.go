// Package intent keeps a durable record of every call to a payment or
// shipping provider so that remote side effects without a local record can
// be found and reconciled by an operator.
package intent

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/app/repository"
)

// Handle identifies a begun intent. The key doubles as the provider
// idempotency key.
type Handle struct {
	Key       string
	Operation string
}

// Recorder writes intents outside any business transaction. A nil Recorder
// is valid and records nothing.
type Recorder struct {
	store *repository.Store
	now   func() time.Time
}

func NewRecorder(store *repository.Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Begin stores a pending intent before the provider is called. Failing to
// store the intent aborts the operation, so no remote call happens untracked.
func (r *Recorder) Begin(ctx context.Context, operation string, userID, subjectID uint) (Handle, error) {
	h := Handle{Key: uuid.NewString(), Operation: operation}
	if r == nil {
		return h, nil
	}
	err := r.store.Repositories(ctx).Intent.Create(&models.ExternalCallIntent{
		Key:       h.Key,
		Operation: operation,
		Status:    models.IntentPending,
		UserID:    userID,
		SubjectID: subjectID,
	})
	return h, err
}

// Settle resolves the intent from the outcome of the whole operation:
// externalRef is what the provider returned (empty if the call failed or was
// never made) and err is the final error of the operation.
func (r *Recorder) Settle(ctx context.Context, h Handle, externalRef string, opErr error) {
	if r == nil || h.Key == "" {
		return
	}

	status := Outcome(externalRef, opErr)
	msg := ""
	if opErr != nil {
		msg = opErr.Error()
	}

	// The request context may already be canceled; resolution must still land.
	writeCtx := context.WithoutCancel(ctx)
	if err := r.store.Repositories(writeCtx).Intent.Resolve(h.Key, status, externalRef, msg); err != nil {
		log.Errorf("[Intent] failed to resolve %s (%s) as %s: %v", h.Key, h.Operation, status, err)
		return
	}
	if status == models.IntentOrphaned {
		log.Errorf("[Intent] %s (%s) orphaned remote object %s: %v", h.Key, h.Operation, externalRef, opErr)
	}
}

// Outcome classifies an operation result into a final intent status.
func Outcome(externalRef string, opErr error) models.IntentStatus {
	switch {
	case opErr == nil:
		return models.IntentCompleted
	case externalRef != "":
		return models.IntentOrphaned
	default:
		return models.IntentFailed
	}
}

// ListOrphaned returns every intent whose remote side effect has no local record.
func (r *Recorder) ListOrphaned(ctx context.Context) ([]models.ExternalCallIntent, error) {
	if r == nil {
		return nil, errors.New("intent recorder is not configured")
	}
	return r.store.Repositories(ctx).Intent.ListByStatus(models.IntentOrphaned, r.now().Add(time.Minute))
}

// ListStale returns pending intents older than olderThan. These belong to
// processes that died between the provider call and resolution.
func (r *Recorder) ListStale(ctx context.Context, olderThan time.Duration) ([]models.ExternalCallIntent, error) {
	if r == nil {
		return nil, errors.New("intent recorder is not configured")
	}
	return r.store.Repositories(ctx).Intent.ListByStatus(models.IntentPending, r.now().Add(-olderThan))
}

// MarkStaleFailed resolves stale pending intents as failed and returns how many were changed.
func (r *Recorder) MarkStaleFailed(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := r.ListStale(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	repo := r.store.Repositories(ctx).Intent
	for _, it := range stale {
		if err := repo.Resolve(it.Key, models.IntentFailed, it.ExternalRef, "stale: never resolved"); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}
