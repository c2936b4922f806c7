package review

import (
	"errors"
	"strings"
)

// ErrInvalidPassphrase is the single outcome for every credential failure:
// wrong passphrase, malformed blob, or a decrypted value that fails shape
// validation. Callers must not be able to tell which check failed.
var ErrInvalidPassphrase = errors.New("incorrect password or decryption failed")

// credentialPrefixes are the recognized token families of the hosting
// provider. A decrypted value outside these families is treated as a wrong
// passphrase.
var credentialPrefixes = []string{
	"ghp_",
	"gho_",
	"ghu_",
	"ghs_",
	"ghr_",
	"github_pat_",
}

// minCredentialLength is the shortest token the provider issues.
const minCredentialLength = 40

// Credential is the bearer secret authorizing remote reads and writes.
// It lives in process memory only and is never journaled, logged, or
// written to config.
type Credential string

// Valid reports whether the credential passes shape validation.
// A credential that fails this check must never be used for a network call.
func (c Credential) Valid() bool {
	if len(c) < minCredentialLength {
		return false
	}
	for _, p := range credentialPrefixes {
		if strings.HasPrefix(string(c), p) {
			return true
		}
	}
	return false
}

// Unwrapper recovers a credential from an encrypted local blob given a
// user-supplied passphrase. Implementations are pure over their inputs and
// collapse every failure into ErrInvalidPassphrase.
type Unwrapper interface {
	Unwrap(blob []byte, passphrase string) (Credential, error)
}
