package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the account record. Email is the login identifier.
type User struct {
	BaseModel
	Email        string    `gorm:"uniqueIndex" json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	Products     []Product `gorm:"foreignKey:SellerID" json:"products,omitempty"`
}

// FullName joins first and last name, trimming when either is empty.
func (u *User) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
}

// Profile carries the optional account details beyond the login record.
// Exactly one per user, materialized through an explicit get-or-create.
type Profile struct {
	BaseModel
	UserID         uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"user_id"`
	User           *User      `json:"user,omitempty"`
	PhoneNumber    string     `json:"phone_number"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	ProfilePicture string     `json:"profile_picture"`
	Bio            string     `json:"bio"`
	Website        string     `json:"website"`
	Location       string     `json:"location"`
	IsVerified     bool       `json:"is_verified"`
}

// DisplayName prefers the full name and falls back to the email local part.
func (p *Profile) DisplayName() string {
	if p.User == nil {
		return ""
	}
	if name := p.User.FullName(); name != "" {
		return name
	}
	email := p.User.Email
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
