package store

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"attrconsent/internal/consent/models"
)

// JSONStore keeps every decision in a single JSON document: an array of
// decision records. Each read parses the whole document and each write
// rewrites it through a temp file and rename.
//
// Writers inside one process are serialized, so a read-modify-write cycle is
// never interleaved with another. Separate processes sharing the file are
// not coordinated and the last writer wins; run a single writer per file.
type JSONStore struct {
	mu   sync.RWMutex
	path string
	now  func() time.Time
}

// NewJSON constructs a repository backed by the document at path. The file
// is created on first write.
func NewJSON(path string, logger *slog.Logger) *JSONStore {
	if logger != nil {
		logger.Warn("storing consent decisions in a JSON document; consider another repository for production",
			"location", path,
		)
	}
	return &JSONStore{path: path, now: time.Now}
}

func (s *JSONStore) FindConsentDecision(_ context.Context, principal, service string) (*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all, err := s.read()
	if err != nil {
		return nil, storageError(OpFindConsentDecision, err)
	}
	return models.Latest(byPrincipal(all, principal), service), nil
}

func (s *JSONStore) FindConsentDecisions(_ context.Context, principal string) ([]*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all, err := s.read()
	if err != nil {
		return nil, storageError(OpFindConsentDecisions, err)
	}
	return byPrincipal(all, principal), nil
}

func (s *JSONStore) Save(_ context.Context, decision *models.Decision) (*models.Decision, error) {
	stored, err := prepareForSave(decision, s.now())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return nil, storageError(OpSave, err)
	}
	if err := s.write(append(all, stored)); err != nil {
		return nil, storageError(OpSave, err)
	}
	return stored.Clone(), nil
}

func (s *JSONStore) DeleteConsentDecision(_ context.Context, principal, service string) (bool, error) {
	removed, err := s.remove(OpDeleteConsentDecision, principal, matchPair(service))
	return removed > 0, err
}

func (s *JSONStore) PruneConsentDecisions(_ context.Context, principal, service string, keep uuid.UUID) (int, error) {
	return s.remove(OpPruneConsentDecisions, principal, matchPairExcept(service, keep))
}

// remove rewrites the document without the principal's decisions that match
// selects. The file is left alone when nothing matches.
func (s *JSONStore) remove(op, principal string, match func(*models.Decision) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.read()
	if err != nil {
		return 0, storageError(op, err)
	}
	kept, removed := removeWhere(all, func(d *models.Decision) bool {
		return d.Principal == principal && match(d)
	})
	if removed == 0 {
		return 0, nil
	}
	if err := s.write(kept); err != nil {
		return 0, storageError(op, err)
	}
	return removed, nil
}

func (s *JSONStore) DeleteConsentDecisions(_ context.Context, principal string) (int, error) {
	return s.remove(OpDeleteConsentDecisions, principal, func(*models.Decision) bool { return true })
}

// read loads the whole document. A missing or empty file is an empty store.
func (s *JSONStore) read() ([]*models.Decision, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var decisions []*models.Decision
	if err := json.Unmarshal(data, &decisions); err != nil {
		return nil, err
	}
	return decisions, nil
}

// write replaces the document atomically so readers never see a partial file.
func (s *JSONStore) write(decisions []*models.Decision) error {
	if decisions == nil {
		decisions = []*models.Decision{}
	}
	data, err := json.MarshalIndent(decisions, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func byPrincipal(all []*models.Decision, principal string) []*models.Decision {
	out := make([]*models.Decision, 0)
	for _, d := range all {
		if d.Principal == principal {
			out = append(out, d)
		}
	}
	return out
}
