package auth

import "time"

// User represents an account that can authenticate against the API.
// Email is the verified identity email used for invitation matching.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// APIToken represents a bearer token issued to a user
type APIToken struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	TokenHash   string     `json:"-"` // Never expose hash
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// AuthContext holds the authenticated caller for a request
type AuthContext struct {
	User  *User
	Token *APIToken
}
