package bookshelf_test

import (
	"testing"

	bookshelf "github.com/goliatone/go-bookshelf"
	"github.com/stretchr/testify/assert"
)

func TestNewAuthControllerRequiresDependencies(t *testing.T) {
	repo := &MockRepositoryManager{}
	tokens := &MockResetTokens{}

	assert.Panics(t, func() {
		bookshelf.NewAuthController(bookshelf.WithAuthTokens(tokens))
	})

	assert.Panics(t, func() {
		bookshelf.NewAuthController(bookshelf.WithAuthRepository(repo))
	})

	assert.NotPanics(t, func() {
		bookshelf.NewAuthController(
			bookshelf.WithAuthRepository(repo),
			bookshelf.WithAuthTokens(tokens),
		)
	})
}
