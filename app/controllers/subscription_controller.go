package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PropKit/internal/pkg/subscription"
	"github.com/ManuelReschke/PropKit/internal/pkg/usercontext"
)

type createSubscriptionRequest struct {
	PlanID             uint   `json:"plan_id" validate:"required"`
	PropertyIDs        []uint `json:"property_ids" validate:"required,min=1,dive,required"`
	PaymentMethodToken string `json:"payment_method_token" validate:"required"`
	// OwnerID lets an admin open a subscription on behalf of an owner.
	OwnerID uint `json:"owner_id"`
}

type updateSubscriptionRequest struct {
	PlanID      uint   `json:"plan_id" validate:"required"`
	PropertyIDs []uint `json:"property_ids" validate:"required,min=1,dive,required"`
}

// SubscriptionController exposes the Subscription Manager over HTTP
type SubscriptionController struct {
	manager *subscription.Manager
}

func NewSubscriptionController(manager *subscription.Manager) *SubscriptionController {
	return &SubscriptionController{manager: manager}
}

// HandleCreate opens a subscription for the caller (or, for admins, the given owner)
func (h *SubscriptionController) HandleCreate(c *fiber.Ctx) error {
	const op = "controllers.CreateSubscription"
	p, ok := usercontext.GetPrincipal(c)
	if !ok {
		return respondUnauthorized(c)
	}

	var req createSubscriptionRequest
	if err := bindJSON(c, op, &req); err != nil {
		return respondError(c, err)
	}

	ownerID := p.UserID
	if p.IsAdmin() && req.OwnerID != 0 {
		ownerID = req.OwnerID
	}

	sub, err := h.manager.Create(c.UserContext(), subscription.CreateInput{
		OwnerID:      ownerID,
		PlanID:       req.PlanID,
		PropertyIDs:  req.PropertyIDs,
		PaymentToken: req.PaymentMethodToken,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "subscription created",
		"subscription": sub,
	})
}

func (h *SubscriptionController) HandleUpdate(c *fiber.Ctx) error {
	const op = "controllers.UpdateSubscription"
	p, ok := usercontext.GetPrincipal(c)
	if !ok {
		return respondUnauthorized(c)
	}

	id, err := paramID(c, op)
	if err != nil {
		return respondError(c, err)
	}
	var req updateSubscriptionRequest
	if err := bindJSON(c, op, &req); err != nil {
		return respondError(c, err)
	}

	sub, err := h.manager.Update(c.UserContext(), subscription.UpdateInput{
		SubscriptionID: id,
		Requester:      p,
		PlanID:         req.PlanID,
		PropertyIDs:    req.PropertyIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":      "subscription updated",
		"subscription": sub,
	})
}

func (h *SubscriptionController) HandleList(c *fiber.Ctx) error {
	p, ok := usercontext.GetPrincipal(c)
	if !ok {
		return respondUnauthorized(c)
	}
	subs, err := h.manager.List(c.UserContext(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

func (h *SubscriptionController) HandleGet(c *fiber.Ctx) error {
	const op = "controllers.GetSubscription"
	p, ok := usercontext.GetPrincipal(c)
	if !ok {
		return respondUnauthorized(c)
	}
	id, err := paramID(c, op)
	if err != nil {
		return respondError(c, err)
	}
	sub, err := h.manager.Get(c.UserContext(), p, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"subscription": sub})
}
