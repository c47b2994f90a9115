package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"attrconsent/internal/consent/models"
)

// InMemoryStore keeps decisions for the life of the process. It is meant for
// tests and demos: nothing survives a restart.
type InMemoryStore struct {
	mu        sync.RWMutex
	decisions map[string][]*models.Decision
	now       func() time.Time
}

// NewInMemory constructs an empty in-memory consent repository.
func NewInMemory(logger *slog.Logger) *InMemoryStore {
	if logger != nil {
		logger.Warn("storing consent decisions in memory; only suitable for demos and tests")
	}
	return &InMemoryStore{
		decisions: make(map[string][]*models.Decision),
		now:       time.Now,
	}
}

func (s *InMemoryStore) FindConsentDecision(_ context.Context, principal, service string) (*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Latest(s.decisions[principal], service).Clone(), nil
}

func (s *InMemoryStore) FindConsentDecisions(_ context.Context, principal string) ([]*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.decisions[principal]), nil
}

func (s *InMemoryStore) Save(_ context.Context, decision *models.Decision) (*models.Decision, error) {
	stored, err := prepareForSave(decision, s.now())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[stored.Principal] = append(s.decisions[stored.Principal], stored)
	return stored.Clone(), nil
}

func (s *InMemoryStore) DeleteConsentDecision(_ context.Context, principal, service string) (bool, error) {
	return s.remove(principal, matchPair(service)) > 0, nil
}

func (s *InMemoryStore) PruneConsentDecisions(_ context.Context, principal, service string, keep uuid.UUID) (int, error) {
	return s.remove(principal, matchPairExcept(service, keep)), nil
}

func (s *InMemoryStore) remove(principal string, match func(*models.Decision) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept, removed := removeWhere(s.decisions[principal], match)
	if removed == 0 {
		return 0
	}
	if len(kept) == 0 {
		delete(s.decisions, principal)
	} else {
		s.decisions[principal] = kept
	}
	return removed
}

func (s *InMemoryStore) DeleteConsentDecisions(_ context.Context, principal string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.decisions[principal])
	delete(s.decisions, principal)
	return count, nil
}

// removeWhere splits out every decision match selects, preserving order.
func removeWhere(decisions []*models.Decision, match func(*models.Decision) bool) ([]*models.Decision, int) {
	kept := make([]*models.Decision, 0, len(decisions))
	for _, d := range decisions {
		if !match(d) {
			kept = append(kept, d)
		}
	}
	return kept, len(decisions) - len(kept)
}

func matchPair(service string) func(*models.Decision) bool {
	return func(d *models.Decision) bool { return d.Service == service }
}

func matchPairExcept(service string, keep uuid.UUID) func(*models.Decision) bool {
	return func(d *models.Decision) bool { return d.Service == service && d.ID != keep }
}
