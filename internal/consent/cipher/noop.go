package cipher

import "log/slog"

// NoOp stores consent payloads as plaintext. It exists for deployments that
// explicitly turn consent crypto off and is never selected implicitly.
type NoOp struct{}

// NewNoOp returns the pass-through executor and flags the degraded setup.
func NewNoOp(logger *slog.Logger) NoOp {
	if logger != nil {
		logger.Warn("consent attributes are not signed or encrypted",
			"cipher", NoOpName,
		)
	}
	return NoOp{}
}

// NoOpName is reported by NoOp.Name.
const NoOpName = "noop"

func (NoOp) Protect(plaintext []byte) ([]byte, error) { return plaintext, nil }

func (NoOp) Unprotect(token []byte) ([]byte, error) { return token, nil }

func (NoOp) Name() string { return NoOpName }
