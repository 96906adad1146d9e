// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

import "context"

// PasswordHasher defines the interface for password hashing and verification.
// Errors are reserved for resource exhaustion; a mismatch is reported as false.
type PasswordHasher interface {
	// Hash generates a salted digest from a plaintext password.
	Hash(ctx context.Context, password string) (string, error)

	// Check compares a plaintext password with a digest in constant time.
	Check(ctx context.Context, password, hash string) (bool, error)

	// PlaceholderHash returns a digest at the configured cost that matches no password.
	// Comparing against it costs the same as comparing against a real digest.
	PlaceholderHash() string
}
