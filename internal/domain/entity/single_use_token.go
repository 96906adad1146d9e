package entity

import (
	"time"
)

// TokenKind distinguishes the flows that share single-use token semantics.
type TokenKind string

const (
	TokenKindVerification TokenKind = "verification"
	TokenKindReset        TokenKind = "reset"
)

// String returns the string representation of the TokenKind.
func (k TokenKind) String() string {
	return string(k)
}

// IsValid checks if the TokenKind is a valid value.
func (k TokenKind) IsValid() bool {
	switch k {
	case TokenKindVerification, TokenKindReset:
		return true
	default:
		return false
	}
}

// SingleUseToken is a numeric code bound to an email. At most one exists per
// (Kind, Email); it is removed when consumed or replaced on re-issue.
type SingleUseToken struct {
	Kind     TokenKind
	Email    string
	Code     string
	IssuedAt time.Time
}

// ThrottledAt reports whether a re-issue at now falls inside the window.
func (t *SingleUseToken) ThrottledAt(now time.Time, window time.Duration) bool {
	return now.Sub(t.IssuedAt) < window
}

// RetryAfter returns how long until a re-issue is allowed.
func (t *SingleUseToken) RetryAfter(now time.Time, window time.Duration) time.Duration {
	remaining := t.IssuedAt.Add(window).Sub(now)
	if remaining < 0 {
		return 0
	}

	return remaining
}
