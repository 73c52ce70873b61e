package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyPrincipal = "principal"
	KeyUserID    = "user_id"
	KeyUsername  = "username"
	KeyIsAdmin   = "isAdmin"
)
