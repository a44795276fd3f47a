package models

import (
	"strings"
	"time"
)

// AccountRole represents the authorization level of an account
type AccountRole string

const (
	RoleAdmin  AccountRole = "admin"
	RoleClient AccountRole = "client"
)

// Valid reports whether r is a known role
func (r AccountRole) Valid() bool {
	return r == RoleAdmin || r == RoleClient
}

// Account is the locally persisted identity of a user.
// Its JSON form is the account view returned by the API.
type Account struct {
	ID        int64       `json:"id" db:"id"`
	Email     string      `json:"email" db:"email"`
	FirstName *string     `json:"first_name" db:"first_name"`
	LastName  *string     `json:"last_name" db:"last_name"`
	Role      AccountRole `json:"role" db:"role"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates an unsaved Account. Blank names are stored as NULL.
func NewAccount(email, firstName, lastName string, role AccountRole) *Account {
	return &Account{
		Email:     email,
		FirstName: OptionalString(firstName),
		LastName:  OptionalString(lastName),
		Role:      role,
	}
}

// IsAdmin returns true if the account has the admin role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// EmailDomain returns the lower-cased part of the email after the last '@'
func (a *Account) EmailDomain() string {
	return EmailDomain(a.Email)
}

// EmailDomain returns the lower-cased domain of an email address, or "" when there is none
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// OptionalString returns nil for blank strings
func OptionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
