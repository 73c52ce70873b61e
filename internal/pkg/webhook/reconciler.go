// Package webhook applies payment and shipping provider callbacks to local
// subscriptions and shipments.
package webhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/app/repository"
	"github.com/ManuelReschke/PropKit/internal/pkg/lifecycle"
	"github.com/ManuelReschke/PropKit/internal/pkg/metrics"
)

const paymentObjectSubscription = "subscription"

// PaymentEvent is a payment provider callback about a subscription.
type PaymentEvent struct {
	// DeliveryID is the provider delivery id, if the provider sent one.
	DeliveryID     string
	SubscriptionID string
	Status         string
	Object         string
	Payload        []byte
}

// ShippingEvent is a carrier tracking callback.
type ShippingEvent struct {
	DeliveryID   string
	TrackingCode string
	Status       string
	Payload      []byte
}

// Result reports what happened to a delivery.
type Result struct {
	Outcome   string `json:"outcome"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Reconciler is the Webhook Reconciler. It never returns an error: every
// delivery is acknowledged and either applied or dropped.
type Reconciler struct {
	store *repository.Store
	now   func() time.Time
}

func NewReconciler(store *repository.Store) *Reconciler {
	return &Reconciler{store: store, now: time.Now}
}

// HandlePayment maps the provider status onto the subscription with the
// matching external id. Unknown ids are dropped.
func (r *Reconciler) HandlePayment(ctx context.Context, ev PaymentEvent) Result {
	return r.handle(ctx, models.WebhookChannelPayment, ev.DeliveryID, ev.SubscriptionID, ev.Status, ev.Payload,
		func(repos *repository.Repositories) (string, error) {
			object := strings.ToLower(strings.TrimSpace(ev.Object))
			if object != "" && object != paymentObjectSubscription {
				return models.WebhookOutcomeIgnored, nil
			}
			externalID := strings.TrimSpace(ev.SubscriptionID)
			if externalID == "" {
				return models.WebhookOutcomeDropped, nil
			}

			sub, err := repos.Subscription.GetByExternalID(externalID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.WebhookOutcomeDropped, nil
			}
			if err != nil {
				return models.WebhookOutcomeFailed, err
			}

			change := lifecycle.SubscriptionTransition(sub.Status, lifecycle.PaymentStatusToSubscriptionStatus(ev.Status))
			if err := repos.Subscription.UpdateStatus(sub.ID, change.Status); err != nil {
				return models.WebhookOutcomeFailed, err
			}
			if change.Changed {
				log.Infof("[Webhook] subscription %d (%s) status %s -> %s", sub.ID, externalID, change.From, change.Status)
			}
			return models.WebhookOutcomeApplied, nil
		})
}

// HandleShipping maps the carrier status onto the shipment with the matching
// tracking code. Unknown tracking codes are dropped. Timestamps follow the
// same once-only rule as manual status updates.
func (r *Reconciler) HandleShipping(ctx context.Context, ev ShippingEvent) Result {
	return r.handle(ctx, models.WebhookChannelShipping, ev.DeliveryID, ev.TrackingCode, ev.Status, ev.Payload,
		func(repos *repository.Repositories) (string, error) {
			tracking := strings.TrimSpace(ev.TrackingCode)
			if tracking == "" {
				return models.WebhookOutcomeDropped, nil
			}

			sh, err := repos.Shipment.GetByTrackingCode(tracking)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.WebhookOutcomeDropped, nil
			}
			if err != nil {
				return models.WebhookOutcomeFailed, err
			}

			change := lifecycle.ShipmentTransition(sh, lifecycle.CarrierStatusToShipmentStatus(ev.Status))
			if err := repos.Shipment.ApplyChange(sh.ID, change, r.now()); err != nil {
				return models.WebhookOutcomeFailed, err
			}
			if change.From != change.Status {
				log.Infof("[Webhook] shipment %d (%s) status %s -> %s", sh.ID, tracking, change.From, change.Status)
			}
			return models.WebhookOutcomeApplied, nil
		})
}

func (r *Reconciler) handle(
	ctx context.Context,
	channel, deliveryID, reference, externalStatus string,
	payload []byte,
	apply func(repos *repository.Repositories) (string, error),
) Result {
	event, duplicate := r.record(ctx, channel, deliveryID, reference, externalStatus, payload)
	if duplicate {
		metrics.RecordWebhookDelivery(channel, models.WebhookOutcomeDuplicate)
		return Result{Outcome: event.Outcome, Duplicate: true}
	}

	var outcome string
	err := r.store.WithTx(ctx, func(repos *repository.Repositories) error {
		var applyErr error
		outcome, applyErr = apply(repos)
		return applyErr
	})
	if err != nil {
		outcome = models.WebhookOutcomeFailed
		log.Errorf("[Webhook] %s delivery for %q failed: %v", channel, reference, err)
	} else if outcome == models.WebhookOutcomeDropped {
		log.Infof("[Webhook] %s delivery for unknown reference %q dropped", channel, reference)
	}

	if event != nil {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		if markErr := r.store.Repositories(context.WithoutCancel(ctx)).WebhookEvent.MarkProcessed(event.ID, outcome, errMsg); markErr != nil {
			log.Errorf("[Webhook] failed to mark %s delivery %d processed: %v", channel, event.ID, markErr)
		}
	}
	metrics.RecordWebhookDelivery(channel, outcome)
	return Result{Outcome: outcome}
}

// record stores the delivery. A delivery id seen before whose processing
// finished is reported as duplicate. Failing to record never blocks
// processing.
func (r *Reconciler) record(ctx context.Context, channel, deliveryID, reference, externalStatus string, payload []byte) (*models.WebhookEvent, bool) {
	id := strings.TrimSpace(deliveryID)
	if id == "" {
		id = "gen:" + uuid.NewString()
	}

	created, stored, err := r.store.Repositories(ctx).WebhookEvent.CreateIfNotExists(&models.WebhookEvent{
		Channel:        channel,
		DeliveryID:     id,
		Reference:      strings.TrimSpace(reference),
		ExternalStatus: strings.TrimSpace(externalStatus),
		PayloadJSON:    string(payload),
	})
	if err != nil {
		log.Errorf("[Webhook] failed to record %s delivery %s: %v", channel, id, err)
		return nil, false
	}
	if !created && stored.ProcessedAt != nil && stored.Outcome != models.WebhookOutcomeFailed {
		return stored, true
	}
	return stored, false
}
