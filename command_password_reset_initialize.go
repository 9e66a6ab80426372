package bookshelf

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"

	repository "github.com/goliatone/go-repository-bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(*InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "user.password_reset" }

type InitializePasswordResetResponse struct {
	User  *User
	UID   string
	Token string
}

// InitializePasswordResetHandler mints a stateless reset token for an
// active account and dispatches the confirmation link. No ledger entry is
// written, the token carries its own validity window and dies with the
// password it was minted against.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	tokens   ResetTokenService
	notifier *Notifier
	logger   Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, tokens ResetTokenService, notifier *Notifier) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve email for password reset")
	}

	if !user.IsActive {
		return ErrAccountNotActivated
	}

	token, err := h.tokens.Make(user)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mint password reset token")
	}

	uid := EncodeUserID(user.ID)

	if err := h.notifier.SendPasswordReset(ctx, user.Email, uid, token); err != nil {
		return err
	}

	resp.User = user
	resp.UID = uid
	resp.Token = token

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
