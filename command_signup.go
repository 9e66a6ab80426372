package bookshelf

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SignupMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	OnResponse func(*SignupResponse)
}

func (e SignupMessage) Type() string { return "user.signup" }

type SignupResponse struct {
	User *User
	// PendingActivation is true when the account was created inactive and
	// an activation email went out; false means the caller can sign the
	// user in immediately.
	PendingActivation bool
}

// SignupHandler creates the account. With activation required the user,
// its profile, the activation record, and the email dispatch all commit or
// abort as one transaction, there is no partially created account to
// compensate for.
type SignupHandler struct {
	repo               RepositoryManager
	notifier           *Notifier
	logger             Logger
	activationRequired bool
}

func NewSignupHandler(repo RepositoryManager, notifier *Notifier, activationRequired bool) *SignupHandler {
	return &SignupHandler{
		repo:               repo,
		notifier:           notifier,
		logger:             defLogger{},
		activationRequired: activationRequired,
	}
}

// WithLogger overrides the logger used by the handler.
func (h *SignupHandler) WithLogger(logger Logger) *SignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	resp := &SignupResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	taken, err := h.repo.Users().EmailTaken(ctx, event.Email, uuid.Nil)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email uniqueness")
	}

	if taken {
		return ErrEmailTaken
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	user := &User{
		FirstName:    event.FirstName,
		LastName:     event.LastName,
		Username:     event.Username,
		Email:        event.Email,
		PasswordHash: hash,
		IsActive:     !h.activationRequired,
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		resp.User = user

		if !h.activationRequired {
			return nil
		}

		act, err := h.repo.Activations().IssueTx(ctx, tx, user.ID, "")
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create activation record")
		}

		// dispatching inside the transaction means a mailer failure rolls
		// the whole signup back
		if err := h.notifier.SendActivation(ctx, user.Email, act.Code); err != nil {
			return err
		}

		resp.PendingActivation = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "signup transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
