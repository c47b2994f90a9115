// Package cipher protects persisted consent payloads.
//
// An Executor is chosen once from configuration: either AttributeRelease, which
// encrypts then signs, or NoOp, which passes bytes through unchanged. Callers
// only ever see the Protect/Unprotect pair. Holder keeps the active executor as
// an immutable snapshot that a configuration refresh replaces as a whole.
package cipher

import (
	"log/slog"
	"strings"
	"sync/atomic"

	dErrors "attrconsent/pkg/domain-errors"
)

// Executor transforms consent payloads on their way to and from storage.
type Executor interface {
	Protect(plaintext []byte) ([]byte, error)
	Unprotect(token []byte) ([]byte, error)
	// Name identifies the executor in logs and metrics.
	Name() string
}

// Config is the crypto section of the consent configuration.
type Config struct {
	Enabled       bool
	Algorithm     string
	EncryptionKey string
	SigningKey    string
}

// New selects the executor for cfg. Disabling crypto is an explicit choice
// and is logged as a degraded configuration.
func New(cfg Config, logger *slog.Logger) (Executor, error) {
	if !cfg.Enabled {
		return NewNoOp(logger), nil
	}
	if strings.TrimSpace(cfg.EncryptionKey) == "" || strings.TrimSpace(cfg.SigningKey) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consent crypto enabled but encryption or signing key missing")
	}
	return NewAttributeRelease(cfg.EncryptionKey, cfg.SigningKey, cfg.Algorithm)
}

// Holder is an Executor whose underlying executor can be replaced atomically.
// Each call works against a single snapshot, so a refresh never mixes the
// keys of two configurations within one Protect or Unprotect.
type Holder struct {
	current atomic.Pointer[snapshot]
}

type snapshot struct {
	executor Executor
}

// NewHolder wraps the initial executor.
func NewHolder(initial Executor) *Holder {
	h := &Holder{}
	h.Swap(initial)
	return h
}

// Swap installs next and returns the executor it replaced.
func (h *Holder) Swap(next Executor) Executor {
	prev := h.current.Swap(&snapshot{executor: next})
	if prev == nil {
		return nil
	}
	return prev.executor
}

// Current returns the active executor.
func (h *Holder) Current() Executor {
	return h.current.Load().executor
}

func (h *Holder) Protect(plaintext []byte) ([]byte, error) {
	return h.Current().Protect(plaintext)
}

func (h *Holder) Unprotect(token []byte) ([]byte, error) {
	return h.Current().Unprotect(token)
}

func (h *Holder) Name() string {
	return h.Current().Name()
}

// Verify interfaces are satisfied.
var (
	_ Executor = (*Holder)(nil)
	_ Executor = NoOp{}
	_ Executor = (*AttributeRelease)(nil)
)
