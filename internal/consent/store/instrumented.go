package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"attrconsent/internal/consent/metrics"
	"attrconsent/internal/consent/models"
)

// Instrumented records the latency of every call on the wrapped repository.
type Instrumented struct {
	next    Repository
	metrics *metrics.Metrics
}

// WithMetrics wraps repo so each operation is timed into m. A nil m returns
// repo unchanged.
func WithMetrics(repo Repository, m *metrics.Metrics) Repository {
	if m == nil {
		return repo
	}
	return &Instrumented{next: repo, metrics: m}
}

func (r *Instrumented) observe(op string, start time.Time) {
	r.metrics.ObserveStoreOperationLatency(op, time.Since(start).Seconds())
}

func (r *Instrumented) FindConsentDecision(ctx context.Context, principal, service string) (*models.Decision, error) {
	defer r.observe(OpFindConsentDecision, time.Now())
	return r.next.FindConsentDecision(ctx, principal, service)
}

func (r *Instrumented) FindConsentDecisions(ctx context.Context, principal string) ([]*models.Decision, error) {
	defer r.observe(OpFindConsentDecisions, time.Now())
	return r.next.FindConsentDecisions(ctx, principal)
}

func (r *Instrumented) Save(ctx context.Context, decision *models.Decision) (*models.Decision, error) {
	defer r.observe(OpSave, time.Now())
	return r.next.Save(ctx, decision)
}

func (r *Instrumented) DeleteConsentDecision(ctx context.Context, principal, service string) (bool, error) {
	defer r.observe(OpDeleteConsentDecision, time.Now())
	return r.next.DeleteConsentDecision(ctx, principal, service)
}

func (r *Instrumented) DeleteConsentDecisions(ctx context.Context, principal string) (int, error) {
	defer r.observe(OpDeleteConsentDecisions, time.Now())
	return r.next.DeleteConsentDecisions(ctx, principal)
}

// PruneConsentDecisions delegates to the wrapped backend, failing with
// ErrPruneUnsupported when it cannot prune.
func (r *Instrumented) PruneConsentDecisions(ctx context.Context, principal, service string, keep uuid.UUID) (int, error) {
	defer r.observe(OpPruneConsentDecisions, time.Now())
	p, ok := r.next.(Pruner)
	if !ok {
		return 0, storageError(OpPruneConsentDecisions, ErrPruneUnsupported)
	}
	return p.PruneConsentDecisions(ctx, principal, service, keep)
}

var (
	_ Pruner = (*InMemoryStore)(nil)
	_ Pruner = (*JSONStore)(nil)
	_ Pruner = (*RedisStore)(nil)
	_ Pruner = (*PostgresStore)(nil)
	_ Pruner = (*Instrumented)(nil)

	_ Repository = (*InMemoryStore)(nil)
	_ Repository = (*JSONStore)(nil)
	_ Repository = (*ScriptStore)(nil)
	_ Repository = (*RedisStore)(nil)
	_ Repository = (*PostgresStore)(nil)
	_ Repository = (*Instrumented)(nil)
)
