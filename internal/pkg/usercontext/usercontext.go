package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PropKit/app/models"
)

// Principal is the authenticated caller of a request
type Principal struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the principal carries the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == models.ROLE_ADMIN
}

// HasValidRole reports whether the role is one the platform knows about
func (p Principal) HasValidRole() bool {
	return p.Role == models.ROLE_ADMIN || p.Role == models.ROLE_OWNER
}

// CanAccess is the single access rule for subscriptions and shipments:
// admins see everything, owners only their own records.
func CanAccess(p Principal, ownerID uint) bool {
	if p.IsAdmin() {
		return true
	}
	return p.Role == models.ROLE_OWNER && p.UserID != 0 && p.UserID == ownerID
}

// VisibleOwnerID returns the owner filter for list queries. Zero means no filter.
func (p Principal) VisibleOwnerID() uint {
	if p.IsAdmin() {
		return 0
	}
	return p.UserID
}

// FromUser builds the principal for an authenticated user
func FromUser(u *models.User) Principal {
	return Principal{UserID: u.ID, Username: u.Name, Role: u.Role}
}

// SetPrincipal stores the principal and the legacy locals on the request
func SetPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(KeyPrincipal, p)
	c.Locals(KeyUserID, p.UserID)
	c.Locals(KeyUsername, p.Username)
	c.Locals(KeyIsAdmin, p.IsAdmin())
}

// GetPrincipal retrieves the principal from fiber context.
// The second return value is false for anonymous requests.
func GetPrincipal(c *fiber.Ctx) (Principal, bool) {
	if p, ok := c.Locals(KeyPrincipal).(Principal); ok {
		return p, true
	}
	return Principal{}, false
}

// GetUserID returns the current user's ID, or 0 if not authenticated
func GetUserID(c *fiber.Ctx) uint {
	p, _ := GetPrincipal(c)
	return p.UserID
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	p, _ := GetPrincipal(c)
	return p.IsAdmin()
}
