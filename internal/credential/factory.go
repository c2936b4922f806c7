package credential

import (
	"fmt"

	"platelog/internal/config"
	"platelog/internal/review"
)

// NewUnwrapperFromConfig creates an Unwrapper based on the credential
// config type.
func NewUnwrapperFromConfig(cfg config.CredentialConfig) (review.Unwrapper, error) {
	switch cfg.Type {
	case "xor", "":
		return NewXORUnwrapper(), nil
	case "age":
		return NewAgeUnwrapper(), nil
	default:
		return nil, fmt.Errorf("unknown credential blob type: %q", cfg.Type)
	}
}
