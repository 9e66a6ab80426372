package bookshelf

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password can't be an empty string")

// ErrMismatchedHashAndPassword is the error for a failed password check
var ErrMismatchedHashAndPassword = errors.New("mismatched password and hash")

// ErrIdentityNotFound is returned when an identifier resolves to no user.
// It is a validation error: the request carried bad input, nothing broke.
var ErrIdentityNotFound = goerrors.New("invalid email address or username", goerrors.CategoryValidation).
	WithTextCode("IDENTITY_NOT_FOUND")

// ErrInvalidCredentials is returned when the password check fails
var ErrInvalidCredentials = goerrors.New("invalid password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken is returned when the email is already registered to
// another account. Email comparison is case insensitive.
var ErrEmailTaken = goerrors.New("this email is already taken", goerrors.CategoryValidation).
	WithTextCode("EMAIL_TAKEN")

// ErrAccountNotActivated is returned when an operation requires an active
// account and the target is still pending activation.
var ErrAccountNotActivated = goerrors.New("your account has not been activated yet", goerrors.CategoryValidation).
	WithTextCode("ACCOUNT_NOT_ACTIVATED")

// ErrAccountAlreadyActive is returned when resending an activation code
// for an account that no longer needs one.
var ErrAccountAlreadyActive = goerrors.New("this account has already been activated", goerrors.CategoryValidation).
	WithTextCode("ACCOUNT_ALREADY_ACTIVE")

// ErrActivationNotFound is the terminal error for a bad or consumed code.
// A second activation attempt with the same code lands here, which is the
// intended single-use behavior.
var ErrActivationNotFound = goerrors.New("activation code not found", goerrors.CategoryNotFound).
	WithTextCode("ACTIVATION_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrActivationMissing covers the inconsistent state where a pending
// account has no activation record at all, e.g. a system failure during
// signup. Resend reports it instead of raising.
var ErrActivationMissing = goerrors.New("this account has no activation code, please sign up again", goerrors.CategoryValidation).
	WithTextCode("ACTIVATION_MISSING")

// ErrActivationCooldown is returned when a resend arrives inside the
// cooldown window measured from the previous record's creation.
var ErrActivationCooldown = goerrors.New("the activation code has already been sent, please wait 24 hours before trying again", goerrors.CategoryValidation).
	WithTextCode("ACTIVATION_COOLDOWN")

// ErrResetTokenInvalid is returned for a reset token that fails signature
// or fingerprint verification, or targets an unknown user.
var ErrResetTokenInvalid = goerrors.New("invalid password reset token", goerrors.CategoryNotFound).
	WithTextCode("RESET_TOKEN_INVALID").
	WithCode(goerrors.CodeNotFound)

// ErrResetTokenExpired is returned when the token's validity window has
// elapsed.
var ErrResetTokenExpired = goerrors.New("password reset token has expired", goerrors.CategoryValidation).
	WithTextCode("RESET_TOKEN_EXPIRED")

// IsValidationError reports whether the error is a recoverable user-input
// problem that should surface as a field level message.
func IsValidationError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == goerrors.CategoryValidation
}

// IsTransientError reports whether the error is a system failure the
// caller should retry later. Not-found and validation errors are not
// transient.
func IsTransientError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return err != nil
	}
	switch richErr.Category {
	case goerrors.CategoryValidation, goerrors.CategoryNotFound, goerrors.CategoryAuth, goerrors.CategoryConflict:
		return false
	default:
		return true
	}
}
