package credential

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"platelog/internal/review"
)

// AgeUnwrapper recovers a credential from an age passphrase-encrypted blob
// (scrypt recipient), the modern alternative to the legacy XOR format.
// Unlike XOR, age is authenticated: a wrong passphrase fails decryption
// outright. The outcome is still the single ErrInvalidPassphrase.
type AgeUnwrapper struct{}

var _ review.Unwrapper = (*AgeUnwrapper)(nil)

func NewAgeUnwrapper() *AgeUnwrapper { return &AgeUnwrapper{} }

// Unwrap decrypts the blob with the passphrase and validates the token
// shape. Both armored and binary age blobs are accepted.
func (u *AgeUnwrapper) Unwrap(blob []byte, passphrase string) (review.Credential, error) {
	if passphrase == "" {
		return "", review.ErrInvalidPassphrase
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return "", review.ErrInvalidPassphrase
	}

	var src io.Reader = bytes.NewReader(blob)
	if bytes.HasPrefix(bytes.TrimSpace(blob), []byte(armor.Header)) {
		src = armor.NewReader(src)
	}

	r, err := age.Decrypt(src, identity)
	if err != nil {
		return "", review.ErrInvalidPassphrase
	}

	plain, err := io.ReadAll(r)
	if err != nil {
		return "", review.ErrInvalidPassphrase
	}

	cred := review.Credential(strings.TrimSpace(string(plain)))
	if !cred.Valid() {
		return "", review.ErrInvalidPassphrase
	}
	return cred, nil
}

// WrapAge encrypts a token with an age scrypt recipient, producing an
// armored blob that Unwrap reverses. Used by tests and provisioning tooling.
// The passphrase must be non-empty; Unwrap rejects it anyway.
func WrapAge(token string, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase must not be empty")
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, token); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if err := aw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
