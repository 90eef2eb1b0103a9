package model

import "github.com/google/uuid"

// Role is the kind of authenticated account making a request.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleSeller || r == RoleAdmin
}

// Principal is the resolved caller attached to every authenticated request.
type Principal struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ListParams holds pagination and status filter inputs from handlers.
type ListParams struct {
	Status string
	Page   int
	Limit  int
}

const (
	// DefaultPageLimit is the page size when a limit is not provided.
	DefaultPageLimit = 20
	// MaxPageLimit caps how many rows any listing can request.
	MaxPageLimit = 100
)

// Normalize clamps page and limit into their allowed ranges.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset returns the row offset of the current page.
func (p ListParams) Offset() int {
	return (p.Page - 1) * p.Limit
}
