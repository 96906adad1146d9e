// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MaxNameLength bounds FirstName and LastName.
	MaxNameLength = 100
	// MaxBioLength bounds Bio.
	MaxBioLength = 255
)

// Account is the identity record behind every credential.
type Account struct {
	ID             uuid.UUID // Opaque unique identifier, also the token subject.
	Email          string    // Unique and compared case-sensitively as stored.
	PasswordHash   string    // Opaque digest, never the plaintext.
	Roles          Roles     // Role tags, defaults to {user}.
	EmailValidated bool      // Set once a verification code is consumed.
	FirstName      string
	LastName       string
	Bio            string
	Avatar         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAccount builds an unsaved account with default roles.
func NewAccount(email, passwordHash string, now time.Time) *Account {
	return &Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        Roles{RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AccountUpdate carries the fields to change. Nil fields are left untouched.
type AccountUpdate struct {
	Email          *string
	PasswordHash   *string
	EmailValidated *bool
	FirstName      *string
	LastName       *string
	Bio            *string
	Avatar         *string
}

// IsEmpty reports whether the update changes nothing.
func (u AccountUpdate) IsEmpty() bool {
	return u.Email == nil && u.PasswordHash == nil && u.EmailValidated == nil &&
		u.FirstName == nil && u.LastName == nil && u.Bio == nil && u.Avatar == nil
}

// Apply writes the non-nil fields onto the account.
func (u AccountUpdate) Apply(account *Account, now time.Time) {
	if u.Email != nil {
		account.Email = *u.Email
	}
	if u.PasswordHash != nil {
		account.PasswordHash = *u.PasswordHash
	}
	if u.EmailValidated != nil {
		account.EmailValidated = *u.EmailValidated
	}
	if u.FirstName != nil {
		account.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		account.LastName = *u.LastName
	}
	if u.Bio != nil {
		account.Bio = *u.Bio
	}
	if u.Avatar != nil {
		account.Avatar = *u.Avatar
	}
	account.UpdatedAt = now
}
