package bookshelf_test

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-bookshelf"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSignupHandlerCreatesPendingAccount(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	acts := &MockActivations{}
	mailer := &MockMailer{}

	userID := uuid.New()
	created := &bookshelf.User{
		ID:       userID,
		Username: "reader",
		Email:    "reader@example.com",
		IsActive: false,
	}

	repo.On("Users").Return(users)
	repo.On("Activations").Return(acts)
	runTx(repo).Once()

	users.On("EmailTaken", mock.Anything, "reader@example.com", uuid.Nil).
		Return(false, nil).Once()
	users.On("RegisterTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *bookshelf.User) bool {
		return u.Email == "reader@example.com" && !u.IsActive && u.PasswordHash != ""
	})).Return(created, nil).Once()

	acts.On("IssueTx", mock.Anything, mock.Anything, userID, "").
		Return(&bookshelf.Activation{ID: uuid.New(), Code: "abcdefghij0123456789"}, nil).Once()

	mailer.On("Send", mock.Anything, "reader@example.com", bookshelf.SubjectAccountActivation, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "/activate/abcdefghij0123456789")
	})).Return(nil).Once()

	var resp *bookshelf.SignupResponse

	handler := bookshelf.NewSignupHandler(repo, bookshelf.NewNotifier(mailer, "https://books.example.com"), true).
		WithLogger(testLogger{})

	err := handler.Execute(ctx, bookshelf.SignupMessage{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "password12345",
		OnResponse: func(r *bookshelf.SignupResponse) {
			resp = r
		},
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.PendingActivation)
	assert.Equal(t, userID, resp.User.ID)

	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	acts.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestSignupHandlerSkipsActivationWhenNotRequired(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	mailer := &MockMailer{}

	created := &bookshelf.User{
		ID:       uuid.New(),
		Email:    "reader@example.com",
		IsActive: true,
	}

	repo.On("Users").Return(users)
	runTx(repo).Once()

	users.On("EmailTaken", mock.Anything, "reader@example.com", uuid.Nil).
		Return(false, nil).Once()
	users.On("RegisterTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *bookshelf.User) bool {
		return u.IsActive
	})).Return(created, nil).Once()

	var resp *bookshelf.SignupResponse

	handler := bookshelf.NewSignupHandler(repo, bookshelf.NewNotifier(mailer, ""), false)
	err := handler.Execute(ctx, bookshelf.SignupMessage{
		Email:    "reader@example.com",
		Password: "password12345",
		OnResponse: func(r *bookshelf.SignupResponse) {
			resp = r
		},
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.False(t, resp.PendingActivation)

	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestSignupHandlerRejectsDuplicateEmail(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}

	repo.On("Users").Return(users)
	users.On("EmailTaken", mock.Anything, "taken@example.com", uuid.Nil).
		Return(true, nil).Once()

	handler := bookshelf.NewSignupHandler(repo, nil, true)
	err := handler.Execute(context.Background(), bookshelf.SignupMessage{
		Email:    "taken@example.com",
		Password: "password12345",
	})

	require.ErrorIs(t, err, bookshelf.ErrEmailTaken)
	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
	users.AssertExpectations(t)
}

func TestSignupHandlerMailerFailureAbortsTransaction(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	acts := &MockActivations{}
	mailer := &MockMailer{}

	userID := uuid.New()
	created := &bookshelf.User{ID: userID, Email: "reader@example.com"}

	repo.On("Users").Return(users)
	repo.On("Activations").Return(acts)

	users.On("EmailTaken", mock.Anything, mock.Anything, uuid.Nil).
		Return(false, nil).Once()
	users.On("RegisterTx", mock.Anything, mock.Anything, mock.Anything).
		Return(created, nil).Once()
	acts.On("IssueTx", mock.Anything, mock.Anything, userID, "").
		Return(&bookshelf.Activation{ID: uuid.New(), Code: "abcdefghij0123456789"}, nil).Once()

	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError).Once()

	runTx(repo).Once()

	// the mailer error propagates as the transaction result, nothing
	// commits
	handler := bookshelf.NewSignupHandler(repo, bookshelf.NewNotifier(mailer, ""), true)
	err := handler.Execute(context.Background(), bookshelf.SignupMessage{
		Email:    "reader@example.com",
		Password: "password12345",
	})

	require.Error(t, err)
	require.ErrorIs(t, err, assert.AnError)
	repo.AssertExpectations(t)
	users.AssertExpectations(t)
	acts.AssertExpectations(t)
	mailer.AssertExpectations(t)
}
