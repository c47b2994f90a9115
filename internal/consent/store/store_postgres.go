package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"attrconsent/internal/consent/models"
)

const decisionColumns = `id, principal, service, created_date, options, reminder, reminder_time_unit, attributes`

// PostgresStore persists decisions in the consent_decisions table.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgres constructs a PostgreSQL-backed consent repository.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) FindConsentDecision(ctx context.Context, principal, service string) (*models.Decision, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM consent_decisions
		WHERE principal = $1 AND service = $2
		ORDER BY created_date DESC, id DESC
		LIMIT 1
	`
	d, err := scanDecision(s.db.QueryRowContext(ctx, query, principal, service))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(OpFindConsentDecision, err)
	}
	return d, nil
}

func (s *PostgresStore) FindConsentDecisions(ctx context.Context, principal string) ([]*models.Decision, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM consent_decisions
		WHERE principal = $1
		ORDER BY created_date ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, principal)
	if err != nil {
		return nil, storageError(OpFindConsentDecisions, err)
	}
	defer rows.Close()

	decisions := make([]*models.Decision, 0)
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, storageError(OpFindConsentDecisions, err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(OpFindConsentDecisions, err)
	}
	return decisions, nil
}

func (s *PostgresStore) Save(ctx context.Context, decision *models.Decision) (*models.Decision, error) {
	stored, err := prepareForSave(decision, s.now())
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO consent_decisions (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		stored.ID,
		stored.Principal,
		stored.Service,
		stored.CreatedDate,
		string(stored.Options),
		stored.Reminder,
		string(stored.ReminderTimeUnit),
		stored.Attributes,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storageError(OpSave, fmt.Errorf("decision %s already stored: %w", stored.ID, err))
		}
		return nil, storageError(OpSave, err)
	}
	return stored.Clone(), nil
}

func (s *PostgresStore) DeleteConsentDecision(ctx context.Context, principal, service string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM consent_decisions WHERE principal = $1 AND service = $2`,
		principal, service,
	)
	if err != nil {
		return false, storageError(OpDeleteConsentDecision, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError(OpDeleteConsentDecision, err)
	}
	return n > 0, nil
}

func (s *PostgresStore) PruneConsentDecisions(ctx context.Context, principal, service string, keep uuid.UUID) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM consent_decisions WHERE principal = $1 AND service = $2 AND id <> $3`,
		principal, service, keep,
	)
	if err != nil {
		return 0, storageError(OpPruneConsentDecisions, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError(OpPruneConsentDecisions, err)
	}
	return int(n), nil
}

func (s *PostgresStore) DeleteConsentDecisions(ctx context.Context, principal string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM consent_decisions WHERE principal = $1`, principal)
	if err != nil {
		return 0, storageError(OpDeleteConsentDecisions, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageError(OpDeleteConsentDecisions, err)
	}
	return int(n), nil
}

type decisionRow interface {
	Scan(dest ...any) error
}

func scanDecision(row decisionRow) (*models.Decision, error) {
	var d models.Decision
	var decisionID uuid.UUID
	var options, unit string
	if err := row.Scan(&decisionID, &d.Principal, &d.Service, &d.CreatedDate, &options, &d.Reminder, &unit, &d.Attributes); err != nil {
		return nil, err
	}
	d.ID = decisionID
	d.CreatedDate = d.CreatedDate.UTC()
	d.Options = models.ReminderOption(options)
	d.ReminderTimeUnit = models.TimeUnit(unit)
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
