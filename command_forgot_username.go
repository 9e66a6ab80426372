package bookshelf

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"

	repository "github.com/goliatone/go-repository-bun"
)

type ForgotUsernameMessage struct {
	Email      string `json:"email"`
	OnResponse func(*ForgotUsernameResponse)
}

func (e ForgotUsernameMessage) Type() string { return "user.forgot_username" }

type ForgotUsernameResponse struct {
	Email string
}

// ForgotUsernameHandler emails the stored username to an active account.
// Nothing mutates.
type ForgotUsernameHandler struct {
	repo     RepositoryManager
	notifier *Notifier
	logger   Logger
}

func NewForgotUsernameHandler(repo RepositoryManager, notifier *Notifier) *ForgotUsernameHandler {
	return &ForgotUsernameHandler{
		repo:     repo,
		notifier: notifier,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ForgotUsernameHandler) WithLogger(logger Logger) *ForgotUsernameHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ForgotUsernameHandler) Execute(ctx context.Context, event ForgotUsernameMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during username recovery")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ForgotUsernameHandler) execute(ctx context.Context, event ForgotUsernameMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.resolveActiveUser(ctx, event.Email)
	if err != nil {
		return err
	}

	if err := h.notifier.SendUsernameRecovery(ctx, user.Email, user.Username); err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&ForgotUsernameResponse{Email: user.Email})
	}

	return nil
}

// resolveActiveUser threads the looked-up subject through the validation
// steps: unknown email and inactive account are distinct, recoverable
// validation failures.
func (h *ForgotUsernameHandler) resolveActiveUser(ctx context.Context, email string) (*User, error) {
	user, err := h.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve email")
	}

	if !user.IsActive {
		return nil, ErrAccountNotActivated
	}

	return user, nil
}
