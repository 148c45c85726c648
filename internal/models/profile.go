package models

import "time"

// Role grants access to orders.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Profile is the role record of an authenticated identity.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	AuthProvider string    `json:"auth_provider"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the profile has the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Requester identifies who is calling the order store. The zero value is
// an anonymous caller.
type Requester struct {
	UserID string
	Role   Role
}

// Anonymous reports whether the caller has no session.
func (r Requester) Anonymous() bool {
	return r.UserID == ""
}

// IsAdmin reports whether the caller has the admin role.
func (r Requester) IsAdmin() bool {
	return r.Role == RoleAdmin
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	Profile     *Profile `json:"profile"`
}
