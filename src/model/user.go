package model

import "time"

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// PhoneRedacted replaces counterparty contact data for non-admin callers.
const PhoneRedacted = "hidden"

// User is a marketplace participant. PasswordHash and APITokenHash never
// leave the process; Phone is visible to admins only.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"size:20;not null" json:"role"` // buyer | seller | admin
	Phone        string    `gorm:"size:30;uniqueIndex" json:"phone,omitempty"`
	Verified     bool      `gorm:"default:false" json:"verified"`
	APITokenHash string    `gorm:"size:64;index" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user may see unmasked contact data.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Redacted returns a copy safe to show to non-admin callers.
func (u User) Redacted() User {
	u.Phone = PhoneRedacted
	u.PasswordHash = ""
	return u
}

// UpdateUserPayload is the accepted shape for profile updates.
type UpdateUserPayload struct {
	Phone *string `json:"phone"`
}

// ChangePasswordPayload is the accepted shape for password changes.
type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
