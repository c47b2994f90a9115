package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	dErrors "attrconsent/pkg/domain-errors"
)

// Generate creates a cryptographically secure random key of size bytes.
// Returns a base64url-encoded string suitable for consent crypto configuration.
func Generate(size int) (string, error) {
	if size <= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "key size must be positive")
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate secret")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Decode reads configured key material. Both base64url and standard base64,
// padded or not, are accepted.
func Decode(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "key cannot be empty")
	}
	trimmed := strings.TrimRight(encoded, "=")
	if key, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return key, nil
	}
	key, err := base64.RawStdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "key is not valid base64")
	}
	return key, nil
}
