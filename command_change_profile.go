package bookshelf

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	repository "github.com/goliatone/go-repository-bun"
)

type ChangeProfileMessage struct {
	UserID    uuid.UUID `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	OnResponse func(*ChangeProfileResponse)
}

func (e ChangeProfileMessage) Type() string { return "user.change_profile" }

type ChangeProfileResponse struct {
	User *User
	// EmailChangeRequested is true when the new address differs and a
	// confirmation email went out; the stored email stays put until the
	// code is consumed.
	EmailChangeRequested bool
}

// ChangeProfileHandler updates the editable profile fields. A changed
// email address goes through the activation ledger: the record carries the
// pending address and the user's current email survives until the code is
// consumed. Record creation and the dispatch share the transaction with
// the name updates.
type ChangeProfileHandler struct {
	repo               RepositoryManager
	notifier           *Notifier
	sm                 AccountStateMachine
	logger             Logger
	activationRequired bool
}

func NewChangeProfileHandler(repo RepositoryManager, notifier *Notifier, activationRequired bool) *ChangeProfileHandler {
	return &ChangeProfileHandler{
		repo:               repo,
		notifier:           notifier,
		sm:                 NewAccountStateMachine(),
		logger:             defLogger{},
		activationRequired: activationRequired,
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ChangeProfileHandler) WithLogger(logger Logger) *ChangeProfileHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ChangeProfileHandler) Execute(ctx context.Context, event ChangeProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during profile change")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangeProfileHandler) execute(ctx context.Context, event ChangeProfileMessage) error {
	resp := &ChangeProfileResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByID(ctx, event.UserID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
		}

		record := &User{
			ID:        user.ID,
			FirstName: event.FirstName,
			LastName:  event.LastName,
		}

		if _, err := h.repo.Users().UpdateTx(ctx, tx, record, repository.UpdateByID(user.ID.String())); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile fields")
		}

		user.FirstName = event.FirstName
		user.LastName = event.LastName
		resp.User = user

		if event.Email == "" || user.HasEmail(event.Email) {
			return nil
		}

		taken, err := h.repo.Users().EmailTakenTx(ctx, tx, event.Email, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email uniqueness")
		}

		if taken {
			return ErrEmailTaken
		}

		if !h.activationRequired {
			if err := h.repo.Users().ChangeEmailTx(ctx, tx, user.ID, event.Email); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user email")
			}
			user.Email = event.Email
			return nil
		}

		pending, err := h.repo.Activations().LatestForUserTx(ctx, tx, user.ID, false)
		if err != nil && !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve pending activation record")
		}

		if err := h.sm.Guard(h.sm.CurrentStatus(user, pending), StatusPendingEmailChange); err != nil {
			return err
		}

		// one live record per user: drop any pending action before issuing
		if err := h.repo.Activations().DeleteForUserTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear pending activation records")
		}

		act, err := h.repo.Activations().IssueTx(ctx, tx, user.ID, event.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create email change record")
		}

		if err := h.notifier.SendEmailChange(ctx, event.Email, act.Code); err != nil {
			return err
		}

		resp.EmailChangeRequested = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to change profile")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
