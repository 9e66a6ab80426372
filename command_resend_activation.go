package bookshelf

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	repository "github.com/goliatone/go-repository-bun"
)

type ResendActivationMessage struct {
	// Identifier is a username or an email address
	Identifier string `json:"identifier"`
	OnResponse func(*ResendActivationResponse)
}

func (e ResendActivationMessage) Type() string { return "user.resend_activation" }

type ResendActivationResponse struct {
	Activation *Activation
	Email      string
}

// ResendActivationHandler replaces a pending account's activation record
// with a fresh one and re-dispatches the email. One resend per cooldown
// window, measured from the previous record's creation time, never from
// the attempt itself. The lookup locks the user's record row so two
// concurrent resends cannot both pass the cooldown check.
type ResendActivationHandler struct {
	repo     RepositoryManager
	notifier *Notifier
	logger   Logger
	now      func() time.Time
	cooldown string
}

func NewResendActivationHandler(repo RepositoryManager, notifier *Notifier) *ResendActivationHandler {
	return &ResendActivationHandler{
		repo:     repo,
		notifier: notifier,
		logger:   defLogger{},
		now:      time.Now,
		cooldown: ActivationCooldownPeriod,
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ResendActivationHandler) WithLogger(logger Logger) *ResendActivationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *ResendActivationHandler) WithClock(clock func() time.Time) *ResendActivationHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *ResendActivationHandler) Execute(ctx context.Context, event ResendActivationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during activation resend")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendActivationHandler) execute(ctx context.Context, event ResendActivationMessage) error {
	resp := &ResendActivationResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Identifier)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve identifier")
		}

		if user.IsActive {
			return ErrAccountAlreadyActive
		}

		act, err := h.repo.Activations().LatestForUserTx(ctx, tx, user.ID, true)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				// a pending account without a record means signup failed
				// half way, report it instead of raising
				return ErrActivationMissing
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve activation record")
		}

		if act.CreatedAt == nil {
			return goerrors.New("activation record is missing creation date", goerrors.CategoryInternal)
		}

		within, err := IsWithinThresholdPeriodAt(h.now(), *act.CreatedAt, h.cooldown)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check cooldown period")
		}

		if within {
			return ErrActivationCooldown
		}

		if err := h.repo.Activations().DeleteByIDTx(ctx, tx, act.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate previous activation record")
		}

		fresh, err := h.repo.Activations().IssueTx(ctx, tx, user.ID, "")
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create activation record")
		}

		if err := h.notifier.SendActivation(ctx, user.Email, fresh.Code); err != nil {
			return err
		}

		resp.Activation = fresh
		resp.Email = user.Email
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resend activation")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
