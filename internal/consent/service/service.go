package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"attrconsent/internal/audit"
	"attrconsent/internal/consent/builder"
	"attrconsent/internal/consent/metrics"
	"attrconsent/internal/consent/models"
	"attrconsent/internal/tracer"
	dErrors "attrconsent/pkg/domain-errors"
)

// Store defines the persistence interface for consent decisions.
// Error Contract:
// - Find methods return (nil, nil) / empty slices when nothing is stored
// - Backend failures carry CodeStorage
// - Delete methods report what they removed; absence is not an error
type Store interface {
	FindConsentDecision(ctx context.Context, principal, service string) (*models.Decision, error)
	FindConsentDecisions(ctx context.Context, principal string) ([]*models.Decision, error)
	Save(ctx context.Context, decision *models.Decision) (*models.Decision, error)
	DeleteConsentDecision(ctx context.Context, principal, service string) (bool, error)
	DeleteConsentDecisions(ctx context.Context, principal string) (int, error)
}

// Pruner is the optional store capability RetainLatest uses to drop a pair's
// decisions other than the one just saved.
type Pruner interface {
	PruneConsentDecisions(ctx context.Context, principal, service string, keep uuid.UUID) (int, error)
}

// Retention controls what happens to a pair's earlier decisions when a new
// one is stored.
type Retention string

const (
	// RetainAll keeps every decision; the newest by CreatedDate is consulted.
	RetainAll Retention = "all"
	// RetainLatest removes the pair's other decisions once the new one is
	// saved. It needs a store that implements Pruner.
	RetainLatest Retention = "latest"
)

// ParseRetention maps a configuration value to a Retention.
func ParseRetention(s string) (Retention, bool) {
	switch r := Retention(s); r {
	case RetainAll, RetainLatest:
		return r, true
	case "":
		return RetainAll, true
	}
	return "", false
}

// Reason explains an Evaluation outcome.
type Reason string

const (
	ReasonNoDecision             Reason = "no_decision"
	ReasonAlways                 Reason = "always"
	ReasonAttributeNamesChanged  Reason = "attribute_names_changed"
	ReasonAttributeValuesChanged Reason = "attribute_values_changed"
	ReasonReminderElapsed        Reason = "reminder_elapsed"
	ReasonUnchanged              Reason = "unchanged"
)

// Evaluation is the outcome of checking a stored decision against the
// attributes about to be released. Decision is nil when none was stored.
type Evaluation struct {
	Required bool
	Reason   Reason
	Decision *models.Decision
}

type Option func(*Service)

// Service decides whether a principal must be asked for consent again and
// records their approvals. It holds no mutable state and is safe for
// concurrent use.
type Service struct {
	store     Store
	builder   *builder.Builder
	auditor   *audit.Publisher
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger
	now       func() time.Time
	retention Retention
	reminder  int64
	unit      models.TimeUnit
}

func NewService(store Store, b *builder.Builder, auditor *audit.Publisher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:     store,
		builder:   b,
		auditor:   auditor,
		logger:    logger,
		tracer:    tracer.NewNoop(),
		now:       time.Now,
		retention: RetainAll,
		reminder:  models.DefaultReminder,
		unit:      models.DefaultReminderTimeUnit,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.New(slog.DiscardHandler)
	}
	return svc
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for engine spans.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock replaces time.Now for decision timestamps and reminder checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetention selects the retention policy. Defaults to RetainAll.
func WithRetention(r Retention) Option {
	return func(s *Service) {
		if r == RetainAll || r == RetainLatest {
			s.retention = r
		}
	}
}

// WithDefaultReminder sets the reminder applied to DAYS approvals that do not
// carry their own. Non-positive or invalid values are ignored.
func WithDefaultReminder(reminder int64, unit models.TimeUnit) Option {
	return func(s *Service) {
		if reminder > 0 {
			s.reminder = reminder
		}
		if unit.IsValid() {
			s.unit = unit
		}
	}
}

// IsConsentRequired reports whether the principal must be prompted before
// attrs are released to service. Storage and unreadable-decision failures
// are returned, never folded into true.
func (s *Service) IsConsentRequired(ctx context.Context, principal, service string, attrs models.AttributeMap) (bool, error) {
	ev, err := s.Evaluate(ctx, principal, service, attrs)
	if err != nil {
		return false, err
	}
	return ev.Required, nil
}

// Evaluate compares the newest stored decision for (principal, service) with
// attrs under the decision's reminder option. It has no side effects.
func (s *Service) Evaluate(ctx context.Context, principal, service string, attrs models.AttributeMap) (ev *Evaluation, err error) {
	if err := requirePair(principal, service); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanEvaluate,
		tracer.String(tracer.AttrPrincipal, tracer.HashPrincipal(principal)),
		tracer.String(tracer.AttrService, service),
	)
	start := time.Now()
	defer func() {
		s.metrics.ObserveEvaluationLatency(time.Since(start).Seconds())
		if err != nil {
			s.metrics.IncrementEvaluationFailure(string(dErrors.CodeOrInternal(err)))
			s.logger.Log(ctx, slog.LevelError, "consent evaluation failed",
				"principal", tracer.HashPrincipal(principal),
				"service", service,
				"error", err,
			)
		} else {
			span.SetAttributes(
				tracer.Bool(tracer.AttrRequired, ev.Required),
				tracer.String(tracer.AttrReason, string(ev.Reason)),
			)
			s.metrics.IncrementEvaluation(string(ev.Reason))
		}
		span.End(err)
	}()

	decision, err := s.store.FindConsentDecision(ctx, principal, service)
	if err != nil {
		return nil, storageFailure(err, "failed to read consent decision")
	}
	if decision == nil {
		return &Evaluation{Required: true, Reason: ReasonNoDecision}, nil
	}
	span.SetAttributes(tracer.String(tracer.AttrOptions, string(decision.Options)))

	payload, err := s.builder.Extract(decision)
	if err != nil {
		return nil, err
	}

	reason, err := s.judge(decision, payload, attrs)
	if err != nil {
		return nil, err
	}
	return &Evaluation{
		Required: reason != ReasonUnchanged,
		Reason:   reason,
		Decision: decision,
	}, nil
}

// judge applies the decision's reminder option.
func (s *Service) judge(decision *models.Decision, payload *builder.Payload, attrs models.AttributeMap) (Reason, error) {
	switch decision.Options {
	case models.OptionAlways:
		return ReasonAlways, nil
	case models.OptionAttributeName:
		if !sameNames(payload.Names, attrs) {
			return ReasonAttributeNamesChanged, nil
		}
	case models.OptionAttributeValue:
		if payload.Fingerprint != builder.Fingerprint(attrs) {
			return ReasonAttributeValuesChanged, nil
		}
	case models.OptionDays:
		if !sameNames(payload.Names, attrs) {
			return ReasonAttributeNamesChanged, nil
		}
		if decision.ReminderDue(s.now()) {
			return ReasonReminderElapsed, nil
		}
	default:
		return "", dErrors.New(dErrors.CodeDecisionUnreadable, "consent decision has an unknown reminder option")
	}
	return ReasonUnchanged, nil
}

// FindConsentDecision returns the newest decision for the pair, or nil. A
// consent prompt uses it to show the principal's previous choice.
func (s *Service) FindConsentDecision(ctx context.Context, principal, service string) (*models.Decision, error) {
	if err := requirePair(principal, service); err != nil {
		return nil, err
	}
	decision, err := s.store.FindConsentDecision(ctx, principal, service)
	if err != nil {
		return nil, storageFailure(err, "failed to read consent decision")
	}
	return decision, nil
}

// StoreConsentDecision records an explicit approval. Call it only after the
// principal has approved the release. A new decision is always written; it
// supersedes earlier ones for the pair by recency.
func (s *Service) StoreConsentDecision(ctx context.Context, principal, service string, attrs models.AttributeMap, options models.ReminderOption, reminder int64, unit models.TimeUnit) (stored *models.Decision, err error) {
	if err := requirePair(principal, service); err != nil {
		return nil, err
	}
	if !options.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid reminder option: "+string(options))
	}
	if options == models.OptionDays {
		if reminder <= 0 {
			reminder = s.reminder
		}
		if unit == "" {
			unit = s.unit
		}
		if !unit.IsValid() {
			return nil, dErrors.New(dErrors.CodeBadRequest, "invalid reminder time unit: "+string(unit))
		}
	}

	ctx, span := s.tracer.Start(ctx, tracer.SpanStore,
		tracer.String(tracer.AttrPrincipal, tracer.HashPrincipal(principal)),
		tracer.String(tracer.AttrService, service),
		tracer.String(tracer.AttrOptions, string(options)),
	)
	defer func() { span.End(err) }()

	decision, err := s.builder.Build(principal, service, attrs, options, reminder, unit)
	if err != nil {
		return nil, err
	}
	now := s.now()
	decision.CreatedDate = now

	stored, err = s.store.Save(ctx, decision)
	if err != nil {
		return nil, storageFailure(err, "failed to save consent decision")
	}
	if s.retention == RetainLatest {
		s.pruneEarlier(ctx, span, stored)
	}

	s.emitAudit(ctx, span, audit.Event{
		Principal: tracer.HashPrincipal(principal),
		Service:   service,
		Action:    models.AuditActionConsentStored,
		Decision:  models.AuditDecisionGranted,
		Reason:    models.AuditReasonUserInitiated,
		Timestamp: now,
	})
	s.metrics.IncrementDecisionsStored(string(options))
	s.logger.Log(ctx, slog.LevelInfo, "consent decision stored",
		"principal", tracer.HashPrincipal(principal),
		"service", service,
		"options", options,
		"decision_id", stored.ID,
	)
	return stored, nil
}

// FindConsentDecisions lists every stored decision of a principal.
func (s *Service) FindConsentDecisions(ctx context.Context, principal string) (decisions []*models.Decision, err error) {
	if principal == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "principal is required")
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanList,
		tracer.String(tracer.AttrPrincipal, tracer.HashPrincipal(principal)),
	)
	defer func() { span.End(err) }()

	decisions, err = s.store.FindConsentDecisions(ctx, principal)
	if err != nil {
		return nil, storageFailure(err, "failed to list consent decisions")
	}
	s.metrics.ObserveDecisionsPerPrincipal(len(decisions))
	return decisions, nil
}

// AttributeNames reads the released attribute names out of a decision.
func (s *Service) AttributeNames(decision *models.Decision) ([]string, error) {
	payload, err := s.builder.Extract(decision)
	if err != nil {
		return nil, err
	}
	return payload.Names, nil
}

// DeleteConsentDecision revokes the principal's consent for one service by
// removing all of the pair's decisions. It fails with CodeNotFound when
// there was nothing to remove.
func (s *Service) DeleteConsentDecision(ctx context.Context, principal, service string) (err error) {
	if err := requirePair(principal, service); err != nil {
		return err
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanDelete,
		tracer.String(tracer.AttrPrincipal, tracer.HashPrincipal(principal)),
		tracer.String(tracer.AttrService, service),
	)
	defer func() { span.End(err) }()

	deleted, err := s.store.DeleteConsentDecision(ctx, principal, service)
	if err != nil {
		return storageFailure(err, "failed to delete consent decision")
	}
	if !deleted {
		return dErrors.New(dErrors.CodeNotFound, "no consent decision for service")
	}
	span.SetAttributes(tracer.Int64(tracer.AttrDeleted, 1))

	s.emitAudit(ctx, span, audit.Event{
		Principal: tracer.HashPrincipal(principal),
		Service:   service,
		Action:    models.AuditActionConsentDeleted,
		Decision:  models.AuditDecisionDeleted,
		Reason:    models.AuditReasonUserInitiated,
		Timestamp: s.now(),
	})
	s.metrics.AddDecisionsDeleted("service", 1)
	s.logger.Log(ctx, slog.LevelInfo, "consent decision deleted",
		"principal", tracer.HashPrincipal(principal),
		"service", service,
	)
	return nil
}

// DeleteConsentDecisions revokes every consent of a principal and returns
// how many decisions were removed. Zero is not an error.
func (s *Service) DeleteConsentDecisions(ctx context.Context, principal string) (count int, err error) {
	if principal == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "principal is required")
	}
	ctx, span := s.tracer.Start(ctx, tracer.SpanDelete,
		tracer.String(tracer.AttrPrincipal, tracer.HashPrincipal(principal)),
	)
	defer func() { span.End(err) }()

	count, err = s.store.DeleteConsentDecisions(ctx, principal)
	if err != nil {
		return 0, storageFailure(err, "failed to delete consent decisions")
	}
	span.SetAttributes(tracer.Int64(tracer.AttrDeleted, int64(count)))
	if count == 0 {
		return 0, nil
	}

	s.emitAudit(ctx, span, audit.Event{
		Principal: tracer.HashPrincipal(principal),
		Action:    models.AuditActionConsentDeletedAll,
		Decision:  models.AuditDecisionDeleted,
		Reason:    models.AuditReasonUserBulkRevocation,
		Count:     count,
		Timestamp: s.now(),
	})
	s.metrics.AddDecisionsDeleted("all", count)
	s.logger.Log(ctx, slog.LevelInfo, "consent decisions deleted",
		"principal", tracer.HashPrincipal(principal),
		"count", count,
	)
	return count, nil
}

// pruneEarlier removes the pair's decisions other than stored. A failure
// leaves older decisions in place behind the newer one and is only logged.
func (s *Service) pruneEarlier(ctx context.Context, span tracer.Span, stored *models.Decision) {
	pruner, ok := s.store.(Pruner)
	if !ok {
		s.logger.WarnContext(ctx, "consent store cannot prune; earlier decisions kept",
			"service", stored.Service,
		)
		return
	}
	removed, err := pruner.PruneConsentDecisions(ctx, stored.Principal, stored.Service, stored.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to prune earlier consent decisions",
			"principal", tracer.HashPrincipal(stored.Principal),
			"service", stored.Service,
			"error", err,
		)
		return
	}
	if removed > 0 {
		span.AddEvent(tracer.EventRetention)
	}
}

func (s *Service) emitAudit(ctx context.Context, span tracer.Span, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.Log(ctx, slog.LevelError, "failed to emit audit event",
			"action", event.Action,
			"principal", event.Principal,
			"error", err,
		)
		span.AddEvent(tracer.EventAuditFailed, tracer.String("action", event.Action))
		return
	}
	span.AddEvent(tracer.EventAuditEmitted, tracer.String("action", event.Action))
}

func requirePair(principal, service string) error {
	if principal == "" {
		return dErrors.New(dErrors.CodeBadRequest, "principal is required")
	}
	if service == "" {
		return dErrors.New(dErrors.CodeBadRequest, "service is required")
	}
	return nil
}

// storageFailure keeps a code the repository already assigned and marks
// anything else as a storage failure.
func storageFailure(err error, msg string) error {
	return dErrors.Wrap(err, dErrors.CodeStorage, msg)
}

func sameNames(stored []string, attrs models.AttributeMap) bool {
	return models.SameNames(slices.Sorted(slices.Values(stored)), attrs.Names())
}
