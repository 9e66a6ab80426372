package bookshelf

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ResetTokenService mints and verifies the stateless password reset
// credential. Tokens are signed, time bound, and fingerprinted against the
// subject's current password hash so they die the moment the password
// actually changes. Nothing is stored server side.
type ResetTokenService interface {
	Make(user *User) (string, error)
	Verify(user *User, token string) error
}

type resetClaims struct {
	jwt.RegisteredClaims
	Fingerprint string `json:"fpt"`
}

// ResetTokenOption customizes the token service.
type ResetTokenOption func(*resetTokenService)

// WithResetTokenClock injects a custom clock (useful for tests).
func WithResetTokenClock(clock func() time.Time) ResetTokenOption {
	return func(s *resetTokenService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithResetTokenIssuer overrides the issuer claim.
func WithResetTokenIssuer(issuer string) ResetTokenOption {
	return func(s *resetTokenService) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// NewResetTokenService creates a ResetTokenService with the given signing
// key and validity window.
func NewResetTokenService(signingKey []byte, ttl time.Duration, opts ...ResetTokenOption) ResetTokenService {
	s := &resetTokenService{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     "bookshelf",
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

type resetTokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	now        func() time.Time
}

func (s *resetTokenService) Make(user *User) (string, error) {
	if user == nil {
		return "", goerrors.New("cannot mint reset token without a user", goerrors.CategoryInternal)
	}

	now := s.now()
	claims := &resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Fingerprint: stateFingerprint(user),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign password reset token")
	}

	return signed, nil
}

func (s *resetTokenService) Verify(user *User, tokenString string) error {
	if user == nil {
		return ErrResetTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, &resetClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrResetTokenInvalid
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return ErrResetTokenExpired
		}
		return ErrResetTokenInvalid
	}

	claims, ok := token.Claims.(*resetClaims)
	if !ok || !token.Valid {
		return ErrResetTokenInvalid
	}

	if claims.Subject != user.ID.String() {
		return ErrResetTokenInvalid
	}

	// a changed password changes the fingerprint, invalidating every token
	// minted before the change
	if claims.Fingerprint != stateFingerprint(user) {
		return ErrResetTokenInvalid
	}

	return nil
}

func stateFingerprint(user *User) string {
	sum := sha256.Sum256([]byte(user.ID.String() + "|" + user.PasswordHash))
	return hex.EncodeToString(sum[:])
}

// EncodeUserID returns the opaque per-user identifier embedded in reset
// callback URIs.
func EncodeUserID(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeUserID is the inverse of EncodeUserID.
func DecodeUserID(uid string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return uuid.Nil, ErrResetTokenInvalid
	}

	id, err := uuid.Parse(string(raw))
	if err != nil {
		return uuid.Nil, ErrResetTokenInvalid
	}

	return id, nil
}
