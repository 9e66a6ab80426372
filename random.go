package bookshelf

import (
	"crypto/rand"
	"math/big"

	goerrors "github.com/goliatone/go-errors"
)

// ActivationCodeLength is the fixed length of every activation code.
const ActivationCodeLength = 20

const codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewActivationCode returns a cryptographically random code drawn from a
// fixed alphanumeric alphabet. At expected volumes codes are effectively
// collision free; the unique column constraint treats a collision as a
// fatal creation error rather than retrying.
func NewActivationCode() (string, error) {
	buf := make([]byte, ActivationCodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))

	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate activation code")
		}
		buf[i] = codeAlphabet[n.Int64()]
	}

	return string(buf), nil
}
