package bookshelf_test

import (
	"testing"

	bookshelf "github.com/goliatone/go-bookshelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  bookshelf.ErrNoEmptyString,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := bookshelf.HashPassword(tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			assert.NoError(t, bookshelf.ComparePasswordAndHash(tt.password, hash))
		})
	}
}

func TestComparePasswordAndHashMismatch(t *testing.T) {
	hash, err := bookshelf.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	err = bookshelf.ComparePasswordAndHash("incorrect horse", hash)
	assert.ErrorIs(t, err, bookshelf.ErrMismatchedHashAndPassword)
}

func TestComparePasswordAndHashGarbageHash(t *testing.T) {
	err := bookshelf.ComparePasswordAndHash("whatever", "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, bookshelf.ErrMismatchedHashAndPassword)
}
