package controllers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/PropKit/internal/pkg/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldError is one failed validation rule in an error response
type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// bindJSON parses the request body into dst and validates it.
func bindJSON(c *fiber.Ctx, op string, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.InvalidInput(op, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make([]fieldError, 0, len(verrs))
			for _, fe := range verrs {
				details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
			}
			return &apperr.Error{Kind: apperr.KindInvalidInput, Op: op, Message: "validation failed", Details: details, Err: err}
		}
		return apperr.InvalidInput(op, "validation failed")
	}
	return nil
}

// respondError writes err as {"error", "message", "details"} with the
// status matching its kind.
func respondError(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	switch {
	case status == fiber.StatusBadGateway:
		log.Warnf("[API] %s %s provider error: %v", c.Method(), c.Path(), err)
	case status >= fiber.StatusInternalServerError:
		log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
	}

	body := fiber.Map{
		"error":   string(apperr.KindOf(err)),
		"message": apperr.Message(err),
	}
	if details := apperr.Details(err); details != nil {
		body["details"] = details
	}
	return c.Status(status).JSON(body)
}

// respondUnauthorized is returned by handlers reached without a principal.
func respondUnauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "authentication required"})
}

func paramID(c *fiber.Ctx, op string) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput(op, "invalid id")
	}
	return uint(id), nil
}

// firstHeaderValue returns the first non-empty header among names
func firstHeaderValue(c *fiber.Ctx, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(c.Get(name)); v != "" {
			return v
		}
	}
	return ""
}
