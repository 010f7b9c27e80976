package auth

import "context"

// Role enumerates the marketplace actor roles.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Identity is the authenticated caller of a core operation. It is always
// passed explicitly; nothing in the domain reads ambient session state.
type Identity struct {
	UserID int64
	Role   Role
}

// APIKeyInfo holds the identity data resolved from a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	UserID  int64
	Role    Role
	Name    string
}

// Repository provides lookup of active API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
