package bookshelf_test

import (
	"testing"
	"time"

	bookshelf "github.com/goliatone/go-bookshelf"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetTokenUser() *bookshelf.User {
	return &bookshelf.User{
		ID:           uuid.New(),
		Username:     "reader",
		Email:        "reader@example.com",
		PasswordHash: "$2a$14$originalhash",
		IsActive:     true,
	}
}

func TestResetTokenRoundTrip(t *testing.T) {
	svc := bookshelf.NewResetTokenService([]byte("signing-key"), time.Hour)
	user := resetTokenUser()

	token, err := svc.Make(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, svc.Verify(user, token))
}

func TestResetTokenExpires(t *testing.T) {
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }

	svc := bookshelf.NewResetTokenService([]byte("signing-key"), time.Hour,
		bookshelf.WithResetTokenClock(clock),
	)
	user := resetTokenUser()

	token, err := svc.Make(user)
	require.NoError(t, err)

	current = current.Add(30 * time.Minute)
	assert.NoError(t, svc.Verify(user, token))

	current = current.Add(2 * time.Hour)
	assert.ErrorIs(t, svc.Verify(user, token), bookshelf.ErrResetTokenExpired)
}

func TestResetTokenDiesWithPasswordChange(t *testing.T) {
	svc := bookshelf.NewResetTokenService([]byte("signing-key"), time.Hour)
	user := resetTokenUser()

	token, err := svc.Make(user)
	require.NoError(t, err)

	user.PasswordHash = "$2a$14$replacementhash"
	assert.ErrorIs(t, svc.Verify(user, token), bookshelf.ErrResetTokenInvalid)
}

func TestResetTokenBoundToSubject(t *testing.T) {
	svc := bookshelf.NewResetTokenService([]byte("signing-key"), time.Hour)
	user := resetTokenUser()

	token, err := svc.Make(user)
	require.NoError(t, err)

	other := resetTokenUser()
	assert.ErrorIs(t, svc.Verify(other, token), bookshelf.ErrResetTokenInvalid)
}

func TestResetTokenRejectsForeignSignature(t *testing.T) {
	minter := bookshelf.NewResetTokenService([]byte("key-one"), time.Hour)
	verifier := bookshelf.NewResetTokenService([]byte("key-two"), time.Hour)
	user := resetTokenUser()

	token, err := minter.Make(user)
	require.NoError(t, err)

	assert.ErrorIs(t, verifier.Verify(user, token), bookshelf.ErrResetTokenInvalid)
}

func TestResetTokenRejectsForeignIssuer(t *testing.T) {
	minter := bookshelf.NewResetTokenService([]byte("signing-key"), time.Hour,
		bookshelf.WithResetTokenIssuer("someone-else"),
	)
	verifier := bookshelf.NewResetTokenService([]byte("signing-key"), time.Hour)
	user := resetTokenUser()

	token, err := minter.Make(user)
	require.NoError(t, err)

	assert.ErrorIs(t, verifier.Verify(user, token), bookshelf.ErrResetTokenInvalid)
}

func TestResetTokenGarbageInput(t *testing.T) {
	svc := bookshelf.NewResetTokenService([]byte("signing-key"), time.Hour)
	user := resetTokenUser()

	assert.ErrorIs(t, svc.Verify(user, "not.a.token"), bookshelf.ErrResetTokenInvalid)
	assert.ErrorIs(t, svc.Verify(nil, "whatever"), bookshelf.ErrResetTokenInvalid)
}

func TestEncodeDecodeUserID(t *testing.T) {
	id := uuid.New()

	uid := bookshelf.EncodeUserID(id)
	require.NotEmpty(t, uid)
	assert.NotContains(t, uid, "=")

	decoded, err := bookshelf.DecodeUserID(uid)
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}

func TestDecodeUserIDRejectsGarbage(t *testing.T) {
	_, err := bookshelf.DecodeUserID("%%%not-base64%%%")
	assert.ErrorIs(t, err, bookshelf.ErrResetTokenInvalid)

	_, err = bookshelf.DecodeUserID(bookshelf.EncodeUserID(uuid.Nil))
	assert.NoError(t, err)

	bogus := "bm90LWEtdXVpZA" // base64("not-a-uuid")
	_, err = bookshelf.DecodeUserID(bogus)
	assert.ErrorIs(t, err, bookshelf.ErrResetTokenInvalid)
}
