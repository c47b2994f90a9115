package cipher

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"attrconsent/internal/platform/logger"
	dErrors "attrconsent/pkg/domain-errors"
	"attrconsent/pkg/secrets"
)

var (
	errIntegrity       = &dErrors.Error{Code: dErrors.CodeIntegrity}
	errConfidentiality = &dErrors.Error{Code: dErrors.CodeConfidentiality}
)

func newKey(t *testing.T, size int) string {
	t.Helper()
	k, err := secrets.Generate(size)
	require.NoError(t, err)
	return k
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// tamperAt replaces the character at i with its base64url neighbour, which
// differs from it in the lowest encoded bit only.
func tamperAt(token []byte, i int) []byte {
	out := append([]byte(nil), token...)
	idx := bytes.IndexByte([]byte(base64URLAlphabet), out[i])
	out[i] = base64URLAlphabet[idx^1]
	return out
}

// tamper flips one character in the middle of the token's payload segment.
func tamper(token []byte) []byte {
	first := bytes.IndexByte(token, '.')
	second := first + 1 + bytes.IndexByte(token[first+1:], '.')
	return tamperAt(token, (first+second)/2)
}

type AttributeReleaseSuite struct {
	suite.Suite
	encKey string
	sigKey string
}

func TestAttributeReleaseSuite(t *testing.T) {
	suite.Run(t, new(AttributeReleaseSuite))
}

func (s *AttributeReleaseSuite) SetupTest() {
	s.encKey = newKey(s.T(), 32)
	s.sigKey = newKey(s.T(), 64)
}

func (s *AttributeReleaseSuite) TestRoundTripAllAlgorithms() {
	plaintext := []byte(`{"names":["email","name"],"fingerprint":"abc"}`)
	for _, alg := range []string{AlgA128GCM, AlgA256GCM, AlgXC20P} {
		s.Run(alg, func() {
			c, err := NewAttributeRelease(s.encKey, s.sigKey, alg)
			s.Require().NoError(err)
			s.Equal(alg, c.Name())

			token, err := c.Protect(plaintext)
			s.Require().NoError(err)
			s.NotContains(string(token), "email", "token must not expose plaintext")

			out, err := c.Unprotect(token)
			s.Require().NoError(err)
			s.Equal(plaintext, out)
		})
	}
}

func (s *AttributeReleaseSuite) TestProtectIsRandomized() {
	c, err := NewAttributeRelease(s.encKey, s.sigKey, "")
	s.Require().NoError(err)
	s.Equal(DefaultAlgorithm, c.Name())

	a, err := c.Protect([]byte("same"))
	s.Require().NoError(err)
	b, err := c.Protect([]byte("same"))
	s.Require().NoError(err)
	s.NotEqual(a, b)
}

func (s *AttributeReleaseSuite) TestTamperedTokenFailsIntegrity() {
	c, err := NewAttributeRelease(s.encKey, s.sigKey, AlgA256GCM)
	s.Require().NoError(err)
	token, err := c.Protect([]byte("payload"))
	s.Require().NoError(err)

	out, err := c.Unprotect(tamper(token))
	s.Nil(out)
	s.True(errors.Is(err, errIntegrity), "got %v", err)
}

func (s *AttributeReleaseSuite) TestAnyOneCharacterChangeFailsIntegrity() {
	c, err := NewAttributeRelease(s.encKey, s.sigKey, AlgA256GCM)
	s.Require().NoError(err)

	for range 20 {
		token, err := c.Protect([]byte("payload"))
		s.Require().NoError(err)
		lastDot := bytes.LastIndexByte(token, '.')

		for _, i := range []int{0, lastDot - 1, lastDot + 1, len(token) - 1} {
			out, err := c.Unprotect(tamperAt(token, i))
			s.Nil(out, "position %d", i)
			s.True(errors.Is(err, errIntegrity), "position %d: got %v", i, err)
		}
	}
}

func (s *AttributeReleaseSuite) TestWrongSigningKeyFailsIntegrity() {
	writer, err := NewAttributeRelease(s.encKey, s.sigKey, AlgA256GCM)
	s.Require().NoError(err)
	reader, err := NewAttributeRelease(s.encKey, newKey(s.T(), 64), AlgA256GCM)
	s.Require().NoError(err)

	token, err := writer.Protect([]byte("payload"))
	s.Require().NoError(err)
	_, err = reader.Unprotect(token)
	s.True(errors.Is(err, errIntegrity))
}

func (s *AttributeReleaseSuite) TestWrongEncryptionKeyFailsConfidentiality() {
	writer, err := NewAttributeRelease(s.encKey, s.sigKey, AlgA256GCM)
	s.Require().NoError(err)
	reader, err := NewAttributeRelease(newKey(s.T(), 32), s.sigKey, AlgA256GCM)
	s.Require().NoError(err)

	token, err := writer.Protect([]byte("payload"))
	s.Require().NoError(err)
	out, err := reader.Unprotect(token)
	s.Nil(out)
	s.True(errors.Is(err, errConfidentiality), "got %v", err)
	s.False(errors.Is(err, errIntegrity))
}

func (s *AttributeReleaseSuite) TestAlgorithmMismatchFailsConfidentiality() {
	writer, err := NewAttributeRelease(s.encKey, s.sigKey, AlgXC20P)
	s.Require().NoError(err)
	reader, err := NewAttributeRelease(s.encKey, s.sigKey, AlgA256GCM)
	s.Require().NoError(err)

	token, err := writer.Protect([]byte("payload"))
	s.Require().NoError(err)
	_, err = reader.Unprotect(token)
	s.True(errors.Is(err, errConfidentiality))
}

func (s *AttributeReleaseSuite) TestPlaintextInputFailsIntegrity() {
	c, err := NewAttributeRelease(s.encKey, s.sigKey, AlgA256GCM)
	s.Require().NoError(err)
	_, err = c.Unprotect([]byte(`{"names":["email"]}`))
	s.True(errors.Is(err, errIntegrity))
}

func (s *AttributeReleaseSuite) TestConstructorValidation() {
	s.Run("unknown algorithm", func() {
		_, err := NewAttributeRelease(s.encKey, s.sigKey, "DES")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("short encryption key", func() {
		_, err := NewAttributeRelease(newKey(s.T(), 8), s.sigKey, AlgA256GCM)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("long encryption key is derived", func() {
		c, err := NewAttributeRelease(newKey(s.T(), 64), s.sigKey, AlgA128GCM)
		s.Require().NoError(err)
		token, err := c.Protect([]byte("x"))
		s.Require().NoError(err)
		out, err := c.Unprotect(token)
		s.Require().NoError(err)
		s.Equal([]byte("x"), out)
	})
	s.Run("short signing key", func() {
		_, err := NewAttributeRelease(s.encKey, newKey(s.T(), 16), AlgA256GCM)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestNew_SelectsExecutor(t *testing.T) {
	log := logger.Discard()

	noop, err := New(Config{Enabled: false}, log)
	require.NoError(t, err)
	assert.Equal(t, NoOpName, noop.Name())

	_, err = New(Config{Enabled: true}, log)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	enabled, err := New(Config{
		Enabled:       true,
		Algorithm:     AlgXC20P,
		EncryptionKey: newKey(t, 32),
		SigningKey:    newKey(t, 64),
	}, log)
	require.NoError(t, err)
	assert.Equal(t, AlgXC20P, enabled.Name())
}

func TestNoOp_IsIdentity(t *testing.T) {
	c := NewNoOp(logger.Discard())
	in := []byte("plain")

	out, err := c.Protect(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	back, err := c.Unprotect(out)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

func TestHolder_SwapReplacesWholeSnapshot(t *testing.T) {
	first, err := NewAttributeRelease(newKey(t, 32), newKey(t, 64), AlgA256GCM)
	require.NoError(t, err)
	second, err := NewAttributeRelease(newKey(t, 32), newKey(t, 64), AlgXC20P)
	require.NoError(t, err)

	h := NewHolder(first)
	token, err := h.Protect([]byte("payload"))
	require.NoError(t, err)

	prev := h.Swap(second)
	assert.Same(t, first, prev)
	assert.Equal(t, AlgXC20P, h.Name())

	_, err = h.Unprotect(token)
	assert.Error(t, err, "old token must not read under new keys")

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			if i%10 == 0 {
				h.Swap(second)
			}
			tok, err := h.Protect([]byte("concurrent"))
			if assert.NoError(t, err) {
				out, err := h.Unprotect(tok)
				assert.NoError(t, err)
				assert.Equal(t, []byte("concurrent"), out)
			}
		})
	}
	wg.Wait()
}
