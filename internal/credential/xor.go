package credential

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"platelog/internal/review"
)

// XORUnwrapper recovers a credential from the legacy blob format: a JSON
// document {"data": base64-of-ciphertext} where the ciphertext is the token
// combined with the passphrase by repeating-key XOR.
//
// The cipher always "succeeds" arithmetically, so correctness is entirely
// downstream-validated against the token shape. Every failure collapses to
// review.ErrInvalidPassphrase so callers cannot tell which check tripped.
type XORUnwrapper struct{}

var _ review.Unwrapper = (*XORUnwrapper)(nil)

func NewXORUnwrapper() *XORUnwrapper { return &XORUnwrapper{} }

// blobDocument is the on-disk/remote shape of the encrypted blob.
type blobDocument struct {
	Data string `json:"data"`
}

// Unwrap decodes, deciphers and validates the blob.
func (u *XORUnwrapper) Unwrap(blob []byte, passphrase string) (review.Credential, error) {
	if passphrase == "" {
		return "", review.ErrInvalidPassphrase
	}

	var doc blobDocument
	if err := json.Unmarshal(blob, &doc); err != nil {
		return "", review.ErrInvalidPassphrase
	}

	ciphertext, err := base64.StdEncoding.DecodeString(doc.Data)
	if err != nil {
		return "", review.ErrInvalidPassphrase
	}

	plain := xorCipher(ciphertext, passphrase)
	cred := review.Credential(strings.TrimSpace(string(plain)))
	if !cred.Valid() {
		return "", review.ErrInvalidPassphrase
	}
	return cred, nil
}

// xorCipher combines data with a repeating key. XOR is symmetric, so the
// same function enciphers and deciphers.
func xorCipher(data []byte, key string) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

// WrapXOR produces a blob that Unwrap reverses. Used by tests and by the
// companion tooling that provisions the blob; the client itself only
// consumes blobs. The passphrase must be non-empty: it is the cipher key.
func WrapXOR(token string, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase must not be empty")
	}
	ciphertext := xorCipher([]byte(token), passphrase)
	return json.Marshal(blobDocument{Data: base64.StdEncoding.EncodeToString(ciphertext)})
}
