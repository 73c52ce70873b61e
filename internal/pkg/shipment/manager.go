// Package shipment creates supply-kit shipments, moves them through their
// lifecycle and buys their shipping labels.
package shipment

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/app/repository"
	"github.com/ManuelReschke/PropKit/internal/pkg/apperr"
	"github.com/ManuelReschke/PropKit/internal/pkg/gateway"
	"github.com/ManuelReschke/PropKit/internal/pkg/intent"
	"github.com/ManuelReschke/PropKit/internal/pkg/lifecycle"
	"github.com/ManuelReschke/PropKit/internal/pkg/usercontext"
)

type CreateInput struct {
	SubscriptionID  uint
	PropertyID      uint
	ShippingService string
}

// LabelArchiver copies a purchased label document to durable storage and
// returns the stored reference.
type LabelArchiver interface {
	Archive(ctx context.Context, trackingCode, sourceURL string, at time.Time) (string, error)
}

// LabelResult is the outcome of a successful label purchase.
type LabelResult struct {
	TrackingCode string           `json:"tracking_code"`
	LabelRef     string           `json:"label_ref"`
	Shipment     *models.Shipment `json:"shipment"`
}

// Manager is the Shipment Manager.
type Manager struct {
	store    *repository.Store
	shipping gateway.ShippingGateway
	intents  *intent.Recorder
	archiver LabelArchiver
	now      func() time.Time
}

func NewManager(store *repository.Store, shipping gateway.ShippingGateway, intents *intent.Recorder) *Manager {
	return &Manager{store: store, shipping: shipping, intents: intents, now: time.Now}
}

// WithLabelArchive makes GenerateLabel copy every purchased label to archiver.
func (m *Manager) WithLabelArchive(archiver LabelArchiver) *Manager {
	m.archiver = archiver
	return m
}

// Create adds a pending shipment for a property of an active subscription.
// The property address is copied onto the shipment.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*models.Shipment, error) {
	const op = "shipment.Create"

	if in.SubscriptionID == 0 {
		return nil, apperr.InvalidInput(op, "subscription_id is required")
	}
	if in.PropertyID == 0 {
		return nil, apperr.InvalidInput(op, "property_id is required")
	}
	service := strings.TrimSpace(in.ShippingService)
	if service == "" {
		service = models.DefaultShippingService
	}

	var created *models.Shipment
	err := m.store.WithTx(ctx, func(r *repository.Repositories) error {
		sub, err := r.Subscription.GetByID(in.SubscriptionID)
		if err != nil {
			return apperr.FromLookup(op, "active subscription not found", err)
		}
		if sub.Status != models.SubscriptionActive {
			return apperr.NotFound(op, "active subscription not found")
		}

		property, err := r.Property.GetInSubscription(in.PropertyID, sub.ID)
		if err != nil {
			return apperr.FromLookup(op, "property not found in subscription", err)
		}

		sh := &models.Shipment{
			SubscriptionID:  sub.ID,
			PropertyID:      property.ID,
			Address:         property.FullAddress(),
			Status:          models.ShipmentPending,
			ShippingService: service,
		}
		if err := r.Shipment.Create(sh); err != nil {
			return apperr.Internal(op, err)
		}
		created = sh
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}

	log.Infof("[Shipments] created shipment %d for subscription %d property %d", created.ID, created.SubscriptionID, created.PropertyID)
	return created, nil
}

// UpdateStatus always writes the requested status. shipped_at and
// delivered_at are stamped only on the first move into their status.
func (m *Manager) UpdateStatus(ctx context.Context, id uint, status models.ShipmentStatus) (*models.Shipment, error) {
	const op = "shipment.UpdateStatus"

	if !status.IsValid() {
		return nil, apperr.InvalidInput(op, "invalid shipment status")
	}

	var updated *models.Shipment
	err := m.store.WithTx(ctx, func(r *repository.Repositories) error {
		sh, err := r.Shipment.GetByID(id)
		if err != nil {
			return apperr.FromLookup(op, "shipment not found", err)
		}
		change := lifecycle.ShipmentTransition(sh, status)
		if err := r.Shipment.ApplyChange(sh.ID, change, m.now()); err != nil {
			return apperr.Internal(op, err)
		}
		updated, err = r.Shipment.GetByID(sh.ID)
		if err != nil {
			return apperr.Internal(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}

	log.Infof("[Shipments] shipment %d status set to %s", updated.ID, updated.Status)
	return updated, nil
}

// GenerateLabel buys a label for the shipment. On provider failure the
// shipment is left untouched; on success the tracking code is stored and
// the shipment moves to in_transit.
func (m *Manager) GenerateLabel(ctx context.Context, id uint) (*LabelResult, error) {
	const op = "shipment.GenerateLabel"

	r := m.store.Repositories(ctx)
	sh, err := r.Shipment.GetByID(id)
	if err != nil {
		return nil, apperr.FromLookup(op, "shipment not found", err)
	}
	property, err := r.Property.GetByID(sh.PropertyID)
	if err != nil {
		return nil, apperr.FromLookup(op, "shipment property not found", err)
	}
	sub, err := r.Subscription.GetByID(sh.SubscriptionID)
	if err != nil {
		return nil, apperr.FromLookup(op, "shipment subscription not found", err)
	}
	recipient, err := r.User.GetByID(sub.UserID)
	if err != nil {
		return nil, apperr.FromLookup(op, "recipient not found", err)
	}

	h, err := m.intents.Begin(ctx, models.IntentOpPurchaseLabel, recipient.ID, sh.ID)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}

	label, err := m.shipping.PurchaseLabel(ctx, gateway.LabelRequest{
		IdempotencyKey: h.Key,
		ShipmentID:     sh.ID,
		Recipient: gateway.Recipient{
			Name:    recipient.Name,
			Email:   recipient.Email,
			Address: property.Address,
			City:    property.City,
			State:   property.State,
			ZipCode: property.ZipCode,
		},
	})
	if err != nil {
		m.intents.Settle(ctx, h, labelExternalRef(label), err)
		return nil, apperr.ExternalProvider(op, "failed to generate shipping label", gateway.DetailsOf(err), err)
	}

	now := m.now()
	labelRef := label.LabelURL
	if m.archiver != nil {
		if uri, archiveErr := m.archiver.Archive(ctx, label.TrackingCode, label.LabelURL, now); archiveErr != nil {
			log.Warnf("[Shipments] label archive for shipment %d failed, keeping provider url: %v", sh.ID, archiveErr)
		} else {
			labelRef = uri
		}
	}

	var updated *models.Shipment
	err = m.store.WithTx(ctx, func(r *repository.Repositories) error {
		current, err := r.Shipment.GetByID(sh.ID)
		if err != nil {
			return apperr.Internal(op, err)
		}
		if err := r.Shipment.SetLabel(current.ID, label.TrackingCode, labelRef); err != nil {
			return apperr.Internal(op, err)
		}
		change := lifecycle.ShipmentTransition(current, models.ShipmentInTransit)
		if err := r.Shipment.ApplyChange(current.ID, change, now); err != nil {
			return apperr.Internal(op, err)
		}
		updated, err = r.Shipment.GetByID(current.ID)
		if err != nil {
			return apperr.Internal(op, err)
		}
		return nil
	})
	m.intents.Settle(ctx, h, labelExternalRef(label), err)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}

	log.Infof("[Shipments] label generated for shipment %d (tracking=%s)", updated.ID, label.TrackingCode)
	return &LabelResult{
		TrackingCode: label.TrackingCode,
		LabelRef:     labelRef,
		Shipment:     updated,
	}, nil
}

// List returns the shipments visible to the principal.
func (m *Manager) List(ctx context.Context, p usercontext.Principal) ([]models.Shipment, error) {
	const op = "shipment.List"
	if !p.HasValidRole() {
		return nil, apperr.Unauthorized(op, "role not allowed to list shipments")
	}
	shipments, err := m.store.Repositories(ctx).Shipment.List(p.VisibleOwnerID())
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	return shipments, nil
}

// Get returns one shipment. Shipments of subscriptions the principal cannot
// access are reported as not found.
func (m *Manager) Get(ctx context.Context, p usercontext.Principal, id uint) (*models.Shipment, error) {
	const op = "shipment.Get"

	r := m.store.Repositories(ctx)
	sh, err := r.Shipment.GetByID(id)
	if err != nil {
		return nil, apperr.FromLookup(op, "shipment not found", err)
	}
	sub, err := r.Subscription.GetByID(sh.SubscriptionID)
	if err != nil {
		return nil, apperr.FromLookup(op, "shipment not found", err)
	}
	if !usercontext.CanAccess(p, sub.UserID) {
		return nil, apperr.NotFound(op, "shipment not found")
	}
	return sh, nil
}

func labelExternalRef(label *gateway.Label) string {
	if label == nil {
		return ""
	}
	if label.OrderID != "" {
		return label.OrderID
	}
	return label.TrackingCode
}
