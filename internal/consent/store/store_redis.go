package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"attrconsent/internal/consent/models"
	"attrconsent/internal/sentinel"
)

const (
	// decisionKeyPrefix namespaces the per-principal hash. Fields are
	// decision IDs, values are decisionJSON documents.
	decisionKeyPrefix = "consent:decisions:"

	// maxWatchRetries bounds optimistic-lock retries for pair deletes.
	maxWatchRetries = 5
)

// decisionJSON is the Redis representation of a Decision.
type decisionJSON struct {
	ID               string `json:"id"`
	Principal        string `json:"principal"`
	Service          string `json:"service"`
	CreatedAt        int64  `json:"created_at"` // Unix nano
	Options          string `json:"options"`
	Reminder         int64  `json:"reminder"`
	ReminderTimeUnit string `json:"reminder_time_unit,omitempty"`
	Attributes       []byte `json:"attributes"`
}

func decisionToJSON(d *models.Decision) *decisionJSON {
	return &decisionJSON{
		ID:               d.ID.String(),
		Principal:        d.Principal,
		Service:          d.Service,
		CreatedAt:        d.CreatedDate.UnixNano(),
		Options:          string(d.Options),
		Reminder:         d.Reminder,
		ReminderTimeUnit: string(d.ReminderTimeUnit),
		Attributes:       d.Attributes,
	}
}

func decisionFromJSON(j *decisionJSON) (*models.Decision, error) {
	decisionID, err := uuid.Parse(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse decision id: %w", err)
	}
	return &models.Decision{
		ID:               decisionID,
		Principal:        j.Principal,
		Service:          j.Service,
		CreatedDate:      time.Unix(0, j.CreatedAt).UTC(),
		Options:          models.ReminderOption(j.Options),
		Reminder:         j.Reminder,
		ReminderTimeUnit: models.TimeUnit(j.ReminderTimeUnit),
		Attributes:       j.Attributes,
	}, nil
}

// RedisStore persists decisions in Redis, one hash per principal. Suitable
// for deployments where several instances share consent state.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis constructs a Redis-backed consent repository.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) principalKey(principal string) string {
	return decisionKeyPrefix + principal
}

func (s *RedisStore) FindConsentDecision(ctx context.Context, principal, service string) (*models.Decision, error) {
	decisions, err := s.load(ctx, s.client, principal)
	if err != nil {
		return nil, storageError(OpFindConsentDecision, err)
	}
	return models.Latest(decisions, service), nil
}

func (s *RedisStore) FindConsentDecisions(ctx context.Context, principal string) ([]*models.Decision, error) {
	decisions, err := s.load(ctx, s.client, principal)
	if err != nil {
		return nil, storageError(OpFindConsentDecisions, err)
	}
	return decisions, nil
}

func (s *RedisStore) Save(ctx context.Context, decision *models.Decision) (*models.Decision, error) {
	stored, err := prepareForSave(decision, s.now())
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(decisionToJSON(stored))
	if err != nil {
		return nil, storageError(OpSave, fmt.Errorf("marshal decision: %w", err))
	}
	if err := s.client.HSet(ctx, s.principalKey(stored.Principal), stored.ID.String(), data).Err(); err != nil {
		return nil, storageError(OpSave, err)
	}
	return stored.Clone(), nil
}

// DeleteConsentDecision removes every decision for the pair.
func (s *RedisStore) DeleteConsentDecision(ctx context.Context, principal, service string) (bool, error) {
	removed, err := s.remove(ctx, OpDeleteConsentDecision, principal, matchPair(service))
	return removed > 0, err
}

// PruneConsentDecisions removes the pair's decisions other than keep.
func (s *RedisStore) PruneConsentDecisions(ctx context.Context, principal, service string, keep uuid.UUID) (int, error) {
	return s.remove(ctx, OpPruneConsentDecisions, principal, matchPairExcept(service, keep))
}

// remove deletes the matching hash fields under WATCH so a concurrent save
// for the same principal is not lost.
func (s *RedisStore) remove(ctx context.Context, op, principal string, match func(*models.Decision) bool) (int, error) {
	key := s.principalKey(principal)
	var removed int

	txf := func(tx *redis.Tx) error {
		decisions, err := s.load(ctx, tx, principal)
		if err != nil {
			return err
		}
		fields := make([]string, 0)
		for _, d := range decisions {
			if match(d) {
				fields = append(fields, d.ID.String())
			}
		}
		removed = len(fields)
		if removed == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, key, fields...)
			return nil
		})
		return err
	}

	for range maxWatchRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, storageError(op, err)
		}
		return removed, nil
	}
	return 0, storageError(op, fmt.Errorf("%w: too much contention on %s", sentinel.ErrUnavailable, key))
}

func (s *RedisStore) DeleteConsentDecisions(ctx context.Context, principal string) (int, error) {
	key := s.principalKey(principal)
	var count *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.HLen(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return 0, storageError(OpDeleteConsentDecisions, err)
	}
	return int(count.Val()), nil
}

// load reads a principal's hash. Malformed entries fail the call rather than
// being skipped, so a corrupted history never looks like missing consent.
func (s *RedisStore) load(ctx context.Context, getter redis.Cmdable, principal string) ([]*models.Decision, error) {
	raw, err := getter.HGetAll(ctx, s.principalKey(principal)).Result()
	if errors.Is(err, redis.Nil) {
		return []*models.Decision{}, nil
	}
	if err != nil {
		return nil, err
	}
	decisions := make([]*models.Decision, 0, len(raw))
	for field, value := range raw {
		var j decisionJSON
		if err := json.Unmarshal([]byte(value), &j); err != nil {
			return nil, fmt.Errorf("%w: decision %s: %v", sentinel.ErrMalformed, field, err)
		}
		d, err := decisionFromJSON(&j)
		if err != nil {
			return nil, fmt.Errorf("%w: decision %s: %v", sentinel.ErrMalformed, field, err)
		}
		decisions = append(decisions, d)
	}
	sortByCreated(decisions)
	return decisions, nil
}
