package domain

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleSuperAdmin }

// Admin is a back-office account. PasswordHash never leaves the service layer.
type Admin struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is what a verified session token yields.
type Identity struct {
	UserID    int64     `json:"userId"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (i Identity) IsSuperAdmin() bool { return i.Role == RoleSuperAdmin }

// ActiveSuperAdmin reports whether the account counts toward the super_admin quorum.
func (a Admin) ActiveSuperAdmin() bool { return a.IsActive && a.Role == RoleSuperAdmin }

// DropsSuperAdmin reports whether moving from cur to next removes an active super_admin.
func DropsSuperAdmin(cur, next Admin) bool {
	return cur.ActiveSuperAdmin() && !next.ActiveSuperAdmin()
}

// ErrLastSuperAdmin is returned when a change would leave no active super_admin.
var ErrLastSuperAdmin = Conflict("at least one active super_admin is required")

func (a Admin) Identity() Identity {
	return Identity{UserID: a.ID, Email: a.Email, Role: a.Role}
}
