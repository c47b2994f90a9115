package audit

import (
	"context"
	"errors"
	"log/slog"

	"attrconsent/pkg/platform/circuit"
)

// FallbackStore appends to a primary sink and diverts events it rejects to a
// fallback sink, so a broker outage degrades delivery instead of dropping
// audit records. While the breaker is open the primary is skipped and events
// go straight to the fallback until a probe succeeds.
type FallbackStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
}

// NewFallbackStore wraps primary. State transitions of the primary are logged.
func NewFallbackStore(primary, fallback Store, logger *slog.Logger, opts ...circuit.Option) *FallbackStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = append([]circuit.Option{circuit.WithStateListener(func(name string, to circuit.State) {
		switch to {
		case circuit.StateOpen:
			logger.Warn("audit sink degraded, writing events to fallback", "sink", name)
		case circuit.StateHalfOpen:
			logger.Info("probing audit sink", "sink", name)
		default:
			logger.Info("audit sink recovered", "sink", name)
		}
	})}, opts...)
	return &FallbackStore{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("audit-primary", opts...),
	}
}

func (s *FallbackStore) Append(ctx context.Context, event Event) error {
	if !s.breaker.Allow() {
		return s.fallback.Append(ctx, event)
	}
	err := s.primary.Append(ctx, event)
	if err == nil {
		s.breaker.RecordSuccess()
		return nil
	}
	s.breaker.RecordFailure()
	if fbErr := s.fallback.Append(ctx, event); fbErr != nil {
		return errors.Join(err, fbErr)
	}
	return nil
}

// Degraded reports whether the primary sink is currently skipped.
func (s *FallbackStore) Degraded() bool {
	return s.breaker.IsOpen()
}
