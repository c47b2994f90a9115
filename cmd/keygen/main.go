// Package main generates key material for consent payload protection.
//
// The output is a pair of environment assignments for
// CONSENT_CRYPTO_ENCRYPTION_KEY and CONSENT_CRYPTO_SIGNING_KEY. The keys are
// checked by building the executor the server would build from them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"attrconsent/internal/consent/cipher"
	"attrconsent/pkg/secrets"
)

const signingKeySize = 64

type keyOutput struct {
	Algorithm     string `json:"algorithm"`
	EncryptionKey string `json:"encryption_key"`
	SigningKey    string `json:"signing_key"`
}

func main() {
	alg := flag.String("alg", cipher.DefaultAlgorithm, "Content encryption algorithm (A128GCM, A256GCM, XC20P)")
	asJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if err := run(os.Stdout, *alg, *asJSON); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, alg string, asJSON bool) error {
	out, err := generate(alg)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err = fmt.Fprintf(w, "CONSENT_CRYPTO_ALG=%s\nCONSENT_CRYPTO_ENCRYPTION_KEY=%s\nCONSENT_CRYPTO_SIGNING_KEY=%s\n",
		out.Algorithm, out.EncryptionKey, out.SigningKey)
	return err
}

func generate(alg string) (*keyOutput, error) {
	size, ok := cipher.KeySize(alg)
	if !ok {
		return nil, fmt.Errorf("unsupported algorithm %q", alg)
	}
	encKey, err := secrets.Generate(size)
	if err != nil {
		return nil, err
	}
	sigKey, err := secrets.Generate(signingKeySize)
	if err != nil {
		return nil, err
	}
	executor, err := cipher.NewAttributeRelease(encKey, sigKey, alg)
	if err != nil {
		return nil, fmt.Errorf("generated keys rejected: %w", err)
	}
	return &keyOutput{
		Algorithm:     executor.Name(),
		EncryptionKey: encKey,
		SigningKey:    sigKey,
	}, nil
}
