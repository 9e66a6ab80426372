package bookshelf

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	repository "github.com/goliatone/go-repository-bun"
)

type ActivateAccountMessage struct {
	Code       string `json:"code"`
	OnResponse func(*ActivateAccountResponse)
}

func (e ActivateAccountMessage) Type() string { return "user.activate" }

type ActivateAccountResponse struct {
	User *User
}

// ActivateAccountHandler consumes an account activation code: the owning
// user's active flag flips on and the record is deleted in the same
// transaction, making the code single use. A consumed or unknown code is
// a terminal not-found, not a retryable state.
type ActivateAccountHandler struct {
	repo   RepositoryManager
	sm     AccountStateMachine
	logger Logger
}

func NewActivateAccountHandler(repo RepositoryManager) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:   repo,
		sm:     NewAccountStateMachine(),
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ActivateAccountHandler) WithLogger(logger Logger) *ActivateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account activation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	resp := &ActivateAccountResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		act, err := h.repo.Activations().GetByCodeTx(ctx, tx, event.Code)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrActivationNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve activation record")
		}

		// email-change records are consumed through their own endpoint
		if act.IsEmailChange() {
			return ErrActivationNotFound
		}

		if act.User == nil {
			return goerrors.New("activation record is not associated with a user", goerrors.CategoryInternal)
		}

		if err := h.sm.Guard(h.sm.CurrentStatus(act.User, act), StatusActive); err != nil {
			return err
		}

		if err := h.repo.Users().ActivateTx(ctx, tx, act.User.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate user")
		}

		if err := h.repo.Activations().DeleteByIDTx(ctx, tx, act.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume activation record")
		}

		act.User.IsActive = true
		resp.User = act.User
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

type ActivateEmailChangeMessage struct {
	Code       string `json:"code"`
	OnResponse func(*ActivateEmailChangeResponse)
}

func (e ActivateEmailChangeMessage) Type() string { return "user.change_email_activate" }

type ActivateEmailChangeResponse struct {
	User *User
}

// ActivateEmailChangeHandler consumes an email-change code and overwrites
// the owning user's email with the pending address; the active flag is
// never touched.
type ActivateEmailChangeHandler struct {
	repo   RepositoryManager
	sm     AccountStateMachine
	logger Logger
}

func NewActivateEmailChangeHandler(repo RepositoryManager) *ActivateEmailChangeHandler {
	return &ActivateEmailChangeHandler{
		repo:   repo,
		sm:     NewAccountStateMachine(),
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ActivateEmailChangeHandler) WithLogger(logger Logger) *ActivateEmailChangeHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ActivateEmailChangeHandler) Execute(ctx context.Context, event ActivateEmailChangeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email change activation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateEmailChangeHandler) execute(ctx context.Context, event ActivateEmailChangeMessage) error {
	resp := &ActivateEmailChangeResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		act, err := h.repo.Activations().GetByCodeTx(ctx, tx, event.Code)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrActivationNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve activation record")
		}

		if !act.IsEmailChange() {
			return ErrActivationNotFound
		}

		if act.User == nil {
			return goerrors.New("activation record is not associated with a user", goerrors.CategoryInternal)
		}

		if err := h.sm.Guard(h.sm.CurrentStatus(act.User, act), StatusActive); err != nil {
			return err
		}

		if err := h.repo.Users().ChangeEmailTx(ctx, tx, act.User.ID, act.PendingEmail); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user email")
		}

		if err := h.repo.Activations().DeleteByIDTx(ctx, tx, act.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume activation record")
		}

		act.User.Email = act.PendingEmail
		resp.User = act.User
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate email change")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
