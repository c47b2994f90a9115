package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	dErrors "attrconsent/pkg/domain-errors"
	"attrconsent/pkg/secrets"
)

// Supported content encryption algorithms.
const (
	AlgA128GCM = "A128GCM"
	AlgA256GCM = "A256GCM"
	AlgXC20P   = "XC20P"

	DefaultAlgorithm = AlgA256GCM
)

// minSigningKeyLen is the shortest HS512 key accepted.
const minSigningKeyLen = 32

// contentType marks tokens produced by this executor.
const contentType = "consent-decision"

var keySizes = map[string]int{
	AlgA128GCM: 16,
	AlgA256GCM: 32,
	AlgXC20P:   chacha20poly1305.KeySize,
}

// KeySize reports the encryption key length, in bytes, that alg uses.
func KeySize(alg string) (int, bool) {
	size, ok := keySizes[strings.ToUpper(strings.TrimSpace(alg))]
	return size, ok
}

// AttributeRelease encrypts a payload with an AEAD and signs the result as an
// HS512 JWS. The compact token carries the algorithm id, nonce and ciphertext;
// the algorithm id is also bound into the AEAD as associated data.
type AttributeRelease struct {
	alg        string
	aead       stdcipher.AEAD
	signingKey []byte
	parser     *jwt.Parser
}

type envelopeClaims struct {
	Enc   string `json:"enc"`
	Nonce string `json:"iv"`
	Data  string `json:"ct"`
	jwt.RegisteredClaims
}

// NewAttributeRelease builds the encrypt-then-sign executor. Keys are base64
// encoded. An encryption key longer than the algorithm needs is reduced with
// HKDF-SHA256; a shorter one is rejected.
func NewAttributeRelease(encryptionKey, signingKey, alg string) (*AttributeRelease, error) {
	alg = strings.ToUpper(strings.TrimSpace(alg))
	if alg == "" {
		alg = DefaultAlgorithm
	}
	size, ok := keySizes[alg]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported consent encryption algorithm: "+alg)
	}

	encKey, err := secrets.Decode(encryptionKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid consent encryption key")
	}
	encKey, err = fitKey(encKey, size, alg)
	if err != nil {
		return nil, err
	}
	sigKey, err := secrets.Decode(signingKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid consent signing key")
	}
	if len(sigKey) < minSigningKeyLen {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consent signing key must be at least 32 bytes")
	}

	aead, err := newAEAD(alg, encKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "could not initialise consent cipher")
	}
	return &AttributeRelease{
		alg:        alg,
		aead:       aead,
		signingKey: sigKey,
		parser:     jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
			// Reject non-zero trailing bits so every signature byte is checked.
			jwt.WithStrictDecoding(),
		),
	}, nil
}

func fitKey(key []byte, size int, alg string) ([]byte, error) {
	switch {
	case len(key) == size:
		return key, nil
	case len(key) < size:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consent encryption key too short for "+alg)
	}
	derived := make([]byte, size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, []byte("attrconsent/"+alg)), derived); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not derive consent encryption key")
	}
	return derived, nil
}

func newAEAD(alg string, key []byte) (stdcipher.AEAD, error) {
	if alg == AlgXC20P {
		return chacha20poly1305.NewX(key)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return stdcipher.NewGCM(block)
}

// Name reports the content encryption algorithm.
func (c *AttributeRelease) Name() string {
	return c.alg
}

// Protect encrypts plaintext and signs the ciphertext.
func (c *AttributeRelease) Protect(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfidentiality, "could not generate nonce")
	}
	sealed := c.aead.Seal(nil, nonce, plaintext, []byte(c.alg))

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, envelopeClaims{
		Enc:   c.alg,
		Nonce: base64.RawURLEncoding.EncodeToString(nonce),
		Data:  base64.RawURLEncoding.EncodeToString(sealed),
	})
	token.Header["cty"] = contentType

	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIntegrity, "could not sign consent payload")
	}
	return []byte(signed), nil
}

// Unprotect verifies the signature, then decrypts. Nothing is decrypted from a
// token whose signature fails.
func (c *AttributeRelease) Unprotect(token []byte) ([]byte, error) {
	claims := &envelopeClaims{}
	_, err := c.parser.ParseWithClaims(string(token), claims, func(*jwt.Token) (any, error) {
		return c.signingKey, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIntegrity, "consent payload signature verification failed")
	}

	if claims.Enc != c.alg {
		return nil, dErrors.New(dErrors.CodeConfidentiality, "consent payload encrypted with "+claims.Enc+", expected "+c.alg)
	}
	nonce, err := base64.RawURLEncoding.DecodeString(claims.Nonce)
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return nil, dErrors.New(dErrors.CodeConfidentiality, "consent payload nonce is invalid")
	}
	sealed, err := base64.RawURLEncoding.DecodeString(claims.Data)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeConfidentiality, "consent payload ciphertext is invalid")
	}
	plaintext, err := c.aead.Open(nil, nonce, sealed, []byte(c.alg))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConfidentiality, "consent payload could not be decrypted")
	}
	return plaintext, nil
}
