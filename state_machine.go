package bookshelf

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidTransition is returned when a requested account status change
// is not allowed. Only forward edges exist in this lifecycle, there is no
// suspension or un-suspension.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode("INVALID_ACCOUNT_TRANSITION").
	WithCode(goerrors.CodeBadRequest)

// AccountStateMachine centralizes the account lifecycle transition graph:
// pending_activation moves to active once, and an active account may loop
// through pending_email_change back to active while the activation flag
// stays untouched.
type AccountStateMachine interface {
	CurrentStatus(user *User, pending *Activation) AccountStatus
	Guard(from, to AccountStatus) error
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineLogger overrides the logger used for guard failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewAccountStateMachine returns the default lifecycle implementation.
func NewAccountStateMachine(opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			StatusPendingActivation: {
				StatusActive: {},
			},
			StatusActive: {
				StatusPendingEmailChange: {},
			},
			StatusPendingEmailChange: {
				StatusActive: {},
			},
		},
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	transitions map[AccountStatus]map[AccountStatus]struct{}
	logger      Logger
}

func (sm *accountStateMachine) CurrentStatus(user *User, pending *Activation) AccountStatus {
	return user.Status(pending)
}

func (sm *accountStateMachine) Guard(from, to AccountStatus) error {
	if to == "" {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	if from == to {
		return nil
	}

	if allowed, ok := sm.transitions[from]; ok {
		if _, exists := allowed[to]; exists {
			return nil
		}
	}

	sm.logger.Debug("rejected account transition from=%s to=%s", from, to)

	return ErrInvalidTransition.WithMetadata(map[string]any{
		"from": from,
		"to":   to,
	})
}
