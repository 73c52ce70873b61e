// Package subscription creates and updates subscriptions, opening the
// matching recurring charge at the payment provider.
package subscription

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PropKit/app/models"
	"github.com/ManuelReschke/PropKit/app/repository"
	"github.com/ManuelReschke/PropKit/internal/pkg/apperr"
	"github.com/ManuelReschke/PropKit/internal/pkg/gateway"
	"github.com/ManuelReschke/PropKit/internal/pkg/intent"
	"github.com/ManuelReschke/PropKit/internal/pkg/usercontext"
)

const msgPropertiesNotOwned = "one or more properties not found or not owned"

type CreateInput struct {
	OwnerID      uint
	PlanID       uint
	PropertyIDs  []uint
	PaymentToken string
}

type UpdateInput struct {
	SubscriptionID uint
	Requester      usercontext.Principal
	PlanID         uint
	PropertyIDs    []uint
}

// Manager is the Subscription Manager.
type Manager struct {
	store    *repository.Store
	payments gateway.PaymentGateway
	intents  *intent.Recorder
}

func NewManager(store *repository.Store, payments gateway.PaymentGateway, intents *intent.Recorder) *Manager {
	return &Manager{store: store, payments: payments, intents: intents}
}

// Create opens a remote subscription and stores it locally as pending. The
// provider call happens inside the transaction scope: a provider failure
// rolls everything back. A local failure after a successful provider call is
// not compensated; the intent record is left orphaned for an operator.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*models.Subscription, error) {
	const op = "subscription.Create"

	if in.OwnerID == 0 {
		return nil, apperr.InvalidInput(op, "owner is required")
	}
	if in.PlanID == 0 {
		return nil, apperr.InvalidInput(op, "plan_id is required")
	}
	if err := validatePropertyIDs(op, in.PropertyIDs); err != nil {
		return nil, err
	}
	if in.PaymentToken == "" {
		return nil, apperr.InvalidInput(op, "payment_method_token is required")
	}

	h, err := m.intents.Begin(ctx, models.IntentOpCreateSubscription, in.OwnerID, 0)
	if err != nil {
		return nil, apperr.Internal(op, fmt.Errorf("record intent: %w", err))
	}

	var created *models.Subscription
	externalID := ""
	err = m.store.WithTx(ctx, func(r *repository.Repositories) error {
		plan, err := r.Plan.GetByID(in.PlanID)
		if err != nil {
			return apperr.FromLookup(op, "plan not found", err)
		}

		properties, err := resolveProperties(op, r, in.OwnerID, in.PropertyIDs)
		if err != nil {
			return err
		}

		owner, err := r.User.GetByID(in.OwnerID)
		if err != nil {
			return apperr.FromLookup(op, "owner not found", err)
		}

		total := plan.TotalFor(len(properties))
		externalID, err = m.payments.CreateSubscription(ctx, gateway.PaymentSubscriptionRequest{
			IdempotencyKey: h.Key,
			PlanID:         plan.ID,
			PaymentToken:   in.PaymentToken,
			Customer:       gateway.Customer{Name: owner.Name, Email: owner.Email},
			UserID:         owner.ID,
			PropertyCount:  len(properties),
			TotalAmount:    total,
		})
		if err != nil {
			externalID = ""
			return apperr.ExternalProvider(op, "payment provider rejected the subscription", gateway.DetailsOf(err), err)
		}

		sub := &models.Subscription{
			UserID:                owner.ID,
			PlanID:                plan.ID,
			Status:                models.SubscriptionPending,
			TotalAmount:           total,
			PagarmeSubscriptionID: &externalID,
		}
		if err := r.Subscription.Create(sub); err != nil {
			return apperr.Internal(op, err)
		}
		if err := r.Subscription.ReplaceProperties(sub.ID, propertyIDsOf(properties)); err != nil {
			return apperr.Internal(op, err)
		}
		sub.Properties = properties
		created = sub
		return nil
	})
	m.intents.Settle(ctx, h, externalID, err)
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}

	log.Infof("[Subscriptions] created subscription %d for user %d (external=%s, total=%s)",
		created.ID, created.UserID, externalID, created.TotalAmount.StringFixed(2))
	return created, nil
}

// Update changes plan and property set. Properties are validated against
// the subscription owner, so an admin editing another owner's subscription
// cannot attach foreign properties. The association set is replaced as a
// whole. No provider call is made.
func (m *Manager) Update(ctx context.Context, in UpdateInput) (*models.Subscription, error) {
	const op = "subscription.Update"

	if !in.Requester.HasValidRole() {
		return nil, apperr.Unauthorized(op, "role not allowed to update subscriptions")
	}
	if in.PlanID == 0 {
		return nil, apperr.InvalidInput(op, "plan_id is required")
	}
	if err := validatePropertyIDs(op, in.PropertyIDs); err != nil {
		return nil, err
	}

	var updated *models.Subscription
	err := m.store.WithTx(ctx, func(r *repository.Repositories) error {
		sub, err := r.Subscription.GetByID(in.SubscriptionID)
		if err != nil {
			return apperr.FromLookup(op, "subscription not found", err)
		}
		if !usercontext.CanAccess(in.Requester, sub.UserID) {
			return apperr.NotFound(op, "subscription not found")
		}

		plan, err := r.Plan.GetByID(in.PlanID)
		if err != nil {
			return apperr.FromLookup(op, "plan not found", err)
		}

		properties, err := resolveProperties(op, r, sub.UserID, in.PropertyIDs)
		if err != nil {
			return err
		}

		total := plan.TotalFor(len(properties))
		if err := r.Subscription.UpdatePlanAndAmount(sub.ID, plan.ID, total); err != nil {
			return apperr.Internal(op, err)
		}
		if err := r.Subscription.ReplaceProperties(sub.ID, propertyIDsOf(properties)); err != nil {
			return apperr.Internal(op, err)
		}

		sub, err = r.Subscription.GetByID(sub.ID)
		if err != nil {
			return apperr.Internal(op, err)
		}
		sub.Properties = properties
		updated = sub
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(op, err)
	}

	log.Infof("[Subscriptions] user %d updated subscription %d (plan=%d, properties=%d, total=%s)",
		in.Requester.UserID, updated.ID, updated.PlanID, len(updated.Properties), updated.TotalAmount.StringFixed(2))
	return updated, nil
}

// List returns the subscriptions visible to the principal with their properties.
func (m *Manager) List(ctx context.Context, p usercontext.Principal) ([]models.Subscription, error) {
	const op = "subscription.List"
	if !p.HasValidRole() {
		return nil, apperr.Unauthorized(op, "role not allowed to list subscriptions")
	}

	r := m.store.Repositories(ctx)
	subs, err := r.Subscription.List(p.VisibleOwnerID())
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if err := attachProperties(r, subs); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return subs, nil
}

// Get returns one subscription. Subscriptions the principal cannot access
// are reported as not found.
func (m *Manager) Get(ctx context.Context, p usercontext.Principal, id uint) (*models.Subscription, error) {
	const op = "subscription.Get"

	r := m.store.Repositories(ctx)
	sub, err := r.Subscription.GetByID(id)
	if err != nil {
		return nil, apperr.FromLookup(op, "subscription not found", err)
	}
	if !usercontext.CanAccess(p, sub.UserID) {
		return nil, apperr.NotFound(op, "subscription not found")
	}

	one := []models.Subscription{*sub}
	if err := attachProperties(r, one); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return &one[0], nil
}

func validatePropertyIDs(op string, ids []uint) error {
	if len(ids) == 0 {
		return apperr.InvalidInput(op, "property_ids must not be empty")
	}
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return apperr.InvalidInput(op, "property_ids contains an invalid id")
		}
		if _, dup := seen[id]; dup {
			return apperr.InvalidInput(op, fmt.Sprintf("property %d is listed more than once", id))
		}
		seen[id] = struct{}{}
	}
	return nil
}

// resolveProperties fails the whole operation unless every id resolves to a
// property of ownerID.
func resolveProperties(op string, r *repository.Repositories, ownerID uint, ids []uint) ([]models.Property, error) {
	properties, err := r.Property.FindOwnedByIDs(ownerID, ids)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if len(properties) != len(ids) {
		return nil, apperr.InvalidInput(op, msgPropertiesNotOwned)
	}
	return properties, nil
}

func propertyIDsOf(properties []models.Property) []uint {
	ids := make([]uint, 0, len(properties))
	for _, p := range properties {
		ids = append(ids, p.ID)
	}
	return ids
}

func attachProperties(r *repository.Repositories, subs []models.Subscription) error {
	if len(subs) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
	}
	bySub, err := r.Property.FindBySubscriptionIDs(ids)
	if err != nil {
		return err
	}
	for i := range subs {
		subs[i].Properties = bySub[subs[i].ID]
		if subs[i].Properties == nil {
			subs[i].Properties = []models.Property{}
		}
	}
	return nil
}
