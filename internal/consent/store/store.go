// Package store holds the consent decision repository contract and its
// backends. Every backend keys decisions by principal, keeps history rather
// than updating in place, and answers FindConsentDecision with the newest
// decision for the (principal, service) pair.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"attrconsent/internal/consent/models"
	dErrors "attrconsent/pkg/domain-errors"
)

// Repository is the storage contract shared by every backend.
//
// Error Contract:
//   - Find methods return (nil, nil) / empty slices when nothing is stored
//   - Backend failures are returned with CodeStorage
//   - Delete methods report what they removed; absence is not an error here
type Repository interface {
	FindConsentDecision(ctx context.Context, principal, service string) (*models.Decision, error)
	FindConsentDecisions(ctx context.Context, principal string) ([]*models.Decision, error)
	Save(ctx context.Context, decision *models.Decision) (*models.Decision, error)
	DeleteConsentDecision(ctx context.Context, principal, service string) (bool, error)
	DeleteConsentDecisions(ctx context.Context, principal string) (int, error)
}

// Operation names. The scripted backend sends these verbatim.
const (
	OpFindConsentDecision    = "findConsentDecision"
	OpFindConsentDecisions   = "findConsentDecisions"
	OpSave                   = "save"
	OpDeleteConsentDecision  = "deleteConsentDecision"
	OpDeleteConsentDecisions = "deleteConsentDecisions"
)

// OpPruneConsentDecisions names the prune operation in metrics. The scripted
// backend has no such operation.
const OpPruneConsentDecisions = "pruneConsentDecisions"

// Pruner is implemented by backends that can remove a pair's decisions other
// than keep in one step. Latest-only retention depends on it.
type Pruner interface {
	PruneConsentDecisions(ctx context.Context, principal, service string, keep uuid.UUID) (int, error)
}

// ErrPruneUnsupported is returned when the wrapped backend is not a Pruner.
var ErrPruneUnsupported = errors.New("consent repository cannot prune decisions")

// CanPrune reports whether repo, or the backend it wraps, supports pruning.
func CanPrune(repo Repository) bool {
	if r, ok := repo.(*Instrumented); ok {
		repo = r.next
	}
	_, ok := repo.(Pruner)
	return ok
}

// prepareForSave copies the decision and fills in ID and CreatedDate when
// the caller left them empty.
func prepareForSave(decision *models.Decision, now time.Time) (*models.Decision, error) {
	if decision == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consent decision is required")
	}
	if decision.Principal == "" || decision.Service == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "consent decision must name a principal and a service")
	}
	stored := decision.Clone()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedDate.IsZero() {
		stored.CreatedDate = now
	}
	stored.CreatedDate = stored.CreatedDate.UTC()
	return stored, nil
}

func storageError(op string, err error) error {
	return dErrors.Wrap(err, dErrors.CodeStorage, "consent repository "+op+" failed")
}

func cloneAll(decisions []*models.Decision) []*models.Decision {
	out := make([]*models.Decision, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, d.Clone())
	}
	return out
}

// sortByCreated orders decisions oldest first for backends whose reads come
// back unordered. Equal timestamps fall back to ID order.
func sortByCreated(decisions []*models.Decision) {
	slices.SortFunc(decisions, func(a, b *models.Decision) int {
		if c := a.CreatedDate.Compare(b.CreatedDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}
