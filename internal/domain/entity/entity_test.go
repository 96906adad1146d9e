package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewAccount_Defaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	account := NewAccount("alice@example.com", "digest", now)

	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.Equal(t, Roles{RoleUser}, account.Roles)
	assert.False(t, account.EmailValidated)
	assert.Equal(t, now, account.CreatedAt)
}

func TestAccountUpdate_Apply(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	account := NewAccount("alice@example.com", "digest", now.Add(-time.Hour))

	validated := true
	bio := "hello"
	update := AccountUpdate{EmailValidated: &validated, Bio: &bio}
	assert.False(t, update.IsEmpty())

	update.Apply(account, now)

	assert.True(t, account.EmailValidated)
	assert.Equal(t, "hello", account.Bio)
	assert.Equal(t, "digest", account.PasswordHash)
	assert.Equal(t, now, account.UpdatedAt)
	assert.True(t, AccountUpdate{}.IsEmpty())
}

func TestRolesFromStrings_FiltersUnknown(t *testing.T) {
	roles := RolesFromStrings([]string{"user", "merchant", "admin"})

	assert.Equal(t, Roles{RoleUser, RoleAdmin}, roles)
	assert.Equal(t, []string{"user", "admin"}, roles.ToStrings())
	assert.True(t, roles.Contains(RoleAdmin))
}

func TestSingleUseToken_Throttle(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	token := &SingleUseToken{Kind: TokenKindReset, Email: "a@b.c", Code: "1234567", IssuedAt: issued}
	window := 15 * time.Minute

	tests := []struct {
		name      string
		now       time.Time
		throttled bool
		retry     time.Duration
	}{
		{name: "immediately", now: issued, throttled: true, retry: window},
		{name: "inside window", now: issued.Add(14 * time.Minute), throttled: true, retry: time.Minute},
		{name: "at window edge", now: issued.Add(window), throttled: false, retry: 0},
		{name: "after window", now: issued.Add(time.Hour), throttled: false, retry: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.throttled, token.ThrottledAt(tt.now, window))
			assert.Equal(t, tt.retry, token.RetryAfter(tt.now, window))
		})
	}
}
