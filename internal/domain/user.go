package domain

import "time"

// Roles
const (
	RoleUser  = "user"  // Regular participant
	RoleAdmin = "admin" // Manages teams, matches and outcomes
)

// User Model
type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`                       // Primary key
	Username        string     `gorm:"not null" json:"username"`                   // Display name
	Email           string     `gorm:"uniqueIndex;size:255;not null" json:"email"` // Lower-cased, unique
	Password        string     `gorm:"not null" json:"-"`                          // bcrypt hash
	Role            string     `gorm:"size:16;default:user" json:"role"`           // Role: user or admin
	TokenGeneration int        `gorm:"not null;default:0" json:"-"`                // Session-invalidation counter
	ResetTokenHash  *string    `gorm:"uniqueIndex;size:64" json:"-"`               // SHA-256 of the pending reset token
	ResetExpiresAt  *time.Time `json:"-"`                                          // Reset token expiry
	CreatedAt       time.Time  `json:"created_at"`                                 // Creation time
	UpdatedAt       time.Time  `json:"updated_at"`                                 // Last update time
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Identity is the verified caller of a protected operation
type Identity struct {
	UserID   uint   `json:"id"`       // Verified user ID
	Username string `json:"username"` // Display name
	Role     string `json:"role"`     // Current role
}

// IsAdmin reports whether the identity holds the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
