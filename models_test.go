package bookshelf_test

import (
	"testing"

	bookshelf "github.com/goliatone/go-bookshelf"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserStatusDerivation(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name     string
		user     *bookshelf.User
		pending  *bookshelf.Activation
		expected bookshelf.AccountStatus
	}{
		{
			name:     "nil user",
			user:     nil,
			expected: bookshelf.StatusPendingActivation,
		},
		{
			name:     "inactive user",
			user:     &bookshelf.User{ID: userID},
			expected: bookshelf.StatusPendingActivation,
		},
		{
			name: "inactive user with pending code",
			user: &bookshelf.User{ID: userID},
			pending: &bookshelf.Activation{
				UserID: &userID,
				Code:   "abcdefghij0123456789",
			},
			expected: bookshelf.StatusPendingActivation,
		},
		{
			name:     "active user",
			user:     &bookshelf.User{ID: userID, IsActive: true},
			expected: bookshelf.StatusActive,
		},
		{
			name: "active user with email change in flight",
			user: &bookshelf.User{ID: userID, IsActive: true},
			pending: &bookshelf.Activation{
				UserID:       &userID,
				Code:         "abcdefghij0123456789",
				PendingEmail: "next@example.com",
			},
			expected: bookshelf.StatusPendingEmailChange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.Status(tt.pending))
		})
	}
}

func TestUserHasEmail(t *testing.T) {
	user := &bookshelf.User{Email: "Reader@Example.com"}

	assert.True(t, user.HasEmail("reader@example.com"))
	assert.True(t, user.HasEmail("READER@EXAMPLE.COM"))
	assert.False(t, user.HasEmail("other@example.com"))

	var missing *bookshelf.User
	assert.False(t, missing.HasEmail("reader@example.com"))
}

func TestActivationIsEmailChange(t *testing.T) {
	plain := &bookshelf.Activation{Code: "abcdefghij0123456789"}
	assert.False(t, plain.IsEmailChange())

	change := &bookshelf.Activation{
		Code:         "abcdefghij0123456789",
		PendingEmail: "next@example.com",
	}
	assert.True(t, change.IsEmailChange())
}
