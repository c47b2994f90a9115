package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attrconsent/internal/consent/cipher"
)

func TestGenerate_KeysRoundTrip(t *testing.T) {
	for _, alg := range []string{cipher.AlgA128GCM, cipher.AlgA256GCM, cipher.AlgXC20P} {
		t.Run(alg, func(t *testing.T) {
			out, err := generate(alg)
			require.NoError(t, err)
			assert.Equal(t, alg, out.Algorithm)

			executor, err := cipher.NewAttributeRelease(out.EncryptionKey, out.SigningKey, out.Algorithm)
			require.NoError(t, err)
			token, err := executor.Protect([]byte(`{"email":["a@x"]}`))
			require.NoError(t, err)
			plain, err := executor.Unprotect(token)
			require.NoError(t, err)
			assert.Equal(t, `{"email":["a@x"]}`, string(plain))
		})
	}
}

func TestGenerate_UnknownAlgorithm(t *testing.T) {
	_, err := generate("ROT13")

	assert.ErrorContains(t, err, "unsupported algorithm")
}

func TestRun_EnvOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run(&buf, "xc20p", false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "CONSENT_CRYPTO_ALG=XC20P", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "CONSENT_CRYPTO_ENCRYPTION_KEY="))
	assert.True(t, strings.HasPrefix(lines[2], "CONSENT_CRYPTO_SIGNING_KEY="))
}

func TestRun_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run(&buf, cipher.AlgA256GCM, true))

	var out keyOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, cipher.AlgA256GCM, out.Algorithm)
	assert.NotEmpty(t, out.EncryptionKey)
	assert.NotEmpty(t, out.SigningKey)
}
