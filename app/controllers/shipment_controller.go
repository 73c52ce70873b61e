package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PropKit/internal/pkg/apperr"
	"github.com/ManuelReschke/PropKit/internal/pkg/lifecycle"
	"github.com/ManuelReschke/PropKit/internal/pkg/shipment"
	"github.com/ManuelReschke/PropKit/internal/pkg/usercontext"
)

type createShipmentRequest struct {
	SubscriptionID  uint   `json:"subscription_id" validate:"required"`
	PropertyID      uint   `json:"property_id" validate:"required"`
	ShippingService string `json:"shipping_service" validate:"max=100"`
}

type updateShipmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type generateLabelRequest struct {
	ShipmentID uint `json:"shipment_id" validate:"required"`
}

// ShipmentController exposes the Shipment Manager over HTTP
type ShipmentController struct {
	manager *shipment.Manager
}

func NewShipmentController(manager *shipment.Manager) *ShipmentController {
	return &ShipmentController{manager: manager}
}

func (h *ShipmentController) HandleCreate(c *fiber.Ctx) error {
	const op = "controllers.CreateShipment"
	var req createShipmentRequest
	if err := bindJSON(c, op, &req); err != nil {
		return respondError(c, err)
	}

	sh, err := h.manager.Create(c.UserContext(), shipment.CreateInput{
		SubscriptionID:  req.SubscriptionID,
		PropertyID:      req.PropertyID,
		ShippingService: req.ShippingService,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "shipment created",
		"shipment": sh,
	})
}

// HandleUpdateStatus accepts canonical and legacy status names
func (h *ShipmentController) HandleUpdateStatus(c *fiber.Ctx) error {
	const op = "controllers.UpdateShipmentStatus"
	id, err := paramID(c, op)
	if err != nil {
		return respondError(c, err)
	}
	var req updateShipmentStatusRequest
	if err := bindJSON(c, op, &req); err != nil {
		return respondError(c, err)
	}
	status, ok := lifecycle.ParseShipmentStatus(req.Status)
	if !ok {
		return respondError(c, apperr.InvalidInput(op, "status must be one of pending, in_transit, delivered, canceled"))
	}

	sh, err := h.manager.UpdateStatus(c.UserContext(), id, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "shipment status updated",
		"shipment": sh,
	})
}

func (h *ShipmentController) HandleGenerateLabel(c *fiber.Ctx) error {
	const op = "controllers.GenerateLabel"
	var req generateLabelRequest
	if err := bindJSON(c, op, &req); err != nil {
		return respondError(c, err)
	}

	res, err := h.manager.GenerateLabel(c.UserContext(), req.ShipmentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":       "label generated",
		"tracking_code": res.TrackingCode,
		"label_ref":     res.LabelRef,
		"shipment":      res.Shipment,
	})
}

func (h *ShipmentController) HandleList(c *fiber.Ctx) error {
	p, ok := usercontext.GetPrincipal(c)
	if !ok {
		return respondUnauthorized(c)
	}
	shipments, err := h.manager.List(c.UserContext(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"shipments": shipments})
}

func (h *ShipmentController) HandleGet(c *fiber.Ctx) error {
	const op = "controllers.GetShipment"
	p, ok := usercontext.GetPrincipal(c)
	if !ok {
		return respondUnauthorized(c)
	}
	id, err := paramID(c, op)
	if err != nil {
		return respondError(c, err)
	}
	sh, err := h.manager.Get(c.UserContext(), p, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"shipment": sh})
}
