package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Pruner

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"attrconsent/internal/audit"
	"attrconsent/internal/consent/builder"
	"attrconsent/internal/consent/cipher"
	"attrconsent/internal/consent/models"
	"attrconsent/internal/consent/service/mocks"
	"attrconsent/internal/consent/store"
	"attrconsent/internal/platform/logger"
	"attrconsent/internal/tracer"
	dErrors "attrconsent/pkg/domain-errors"
	"attrconsent/pkg/secrets"
)

const (
	principal = "casuser"
	svcA      = "https://app.example.org"
	svcB      = "https://other.example.org"
)

// clock is a settable time source for reminder tests.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newCipher(t *testing.T) cipher.Executor {
	t.Helper()
	enc, err := secrets.Generate(32)
	require.NoError(t, err)
	sig, err := secrets.Generate(64)
	require.NoError(t, err)
	c, err := cipher.NewAttributeRelease(enc, sig, cipher.AlgA256GCM)
	require.NoError(t, err)
	return c
}

// tamper flips one character in the middle of a compact token's payload.
func tamper(token []byte) []byte {
	out := append([]byte(nil), token...)
	first := bytes.IndexByte(out, '.')
	second := first + 1 + bytes.IndexByte(out[first+1:], '.')
	i := (first + second) / 2
	if out[i] == 'A' {
		out[i] = 'B'
	} else {
		out[i] = 'A'
	}
	return out
}

// =============================================================================
// Decision policy, exercised end to end over the in-memory repository
// =============================================================================

type EngineSuite struct {
	suite.Suite
	ctx        context.Context
	clock      *clock
	repo       *store.InMemoryStore
	auditStore *audit.InMemoryStore
	service    *Service
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = &clock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	s.repo = store.NewInMemory(nil)
	s.auditStore = audit.NewInMemoryStore()
	s.service = NewService(
		s.repo,
		builder.New(newCipher(s.T())),
		audit.NewPublisher(s.auditStore),
		logger.Discard(),
		WithClock(s.clock.Now),
	)
}

func (s *EngineSuite) store(attrs models.AttributeMap, options models.ReminderOption, reminder int64, unit models.TimeUnit) *models.Decision {
	d, err := s.service.StoreConsentDecision(s.ctx, principal, svcA, attrs, options, reminder, unit)
	s.Require().NoError(err)
	return d
}

func (s *EngineSuite) required(attrs models.AttributeMap) bool {
	required, err := s.service.IsConsentRequired(s.ctx, principal, svcA, attrs)
	s.Require().NoError(err)
	return required
}

func (s *EngineSuite) TestNoDecisionRequiresConsent() {
	ev, err := s.service.Evaluate(s.ctx, principal, svcA, models.AttributeMap{"email": {"a@x.com"}})
	s.Require().NoError(err)
	s.True(ev.Required)
	s.Equal(ReasonNoDecision, ev.Reason)
	s.Nil(ev.Decision)
}

func (s *EngineSuite) TestAlwaysRequiresConsentEveryTime() {
	attrs := models.AttributeMap{"email": {"a@x.com"}}
	s.store(attrs, models.OptionAlways, 0, "")

	s.True(s.required(attrs))
	s.True(s.required(attrs))
}

func (s *EngineSuite) TestAttributeNameIgnoresValueChanges() {
	s.store(models.AttributeMap{"email": {"a@x.com"}, "name": {"A"}}, models.OptionAttributeName, 0, "")

	s.False(s.required(models.AttributeMap{"email": {"new@x.com"}, "name": {"A"}}))
	s.True(s.required(models.AttributeMap{"email": {"new@x.com"}}))
	s.True(s.required(models.AttributeMap{"email": {"a@x.com"}, "name": {"A"}, "phone": {"1"}}))
}

func (s *EngineSuite) TestAttributeValueDetectsValueChanges() {
	s.store(models.AttributeMap{"email": {"a@x.com"}}, models.OptionAttributeValue, 0, "")

	ev, err := s.service.Evaluate(s.ctx, principal, svcA, models.AttributeMap{"email": {"b@x.com"}})
	s.Require().NoError(err)
	s.True(ev.Required)
	s.Equal(ReasonAttributeValuesChanged, ev.Reason)

	s.False(s.required(models.AttributeMap{"email": {"a@x.com"}}))
}

func (s *EngineSuite) TestAttributeValueIgnoresValueOrder() {
	s.store(models.AttributeMap{"groups": {"staff", "admin"}}, models.OptionAttributeValue, 0, "")
	s.False(s.required(models.AttributeMap{"groups": {"admin", "staff"}}))
}

func (s *EngineSuite) TestDaysReminder() {
	attrs := models.AttributeMap{"email": {"a@x.com"}}
	s.store(attrs, models.OptionDays, 30, models.UnitDays)

	s.Run("ten days later is still covered", func() {
		s.clock.now = s.clock.now.AddDate(0, 0, 10)
		s.False(s.required(attrs))
	})

	s.Run("thirty one days later requires consent", func() {
		s.clock.now = s.clock.now.AddDate(0, 0, 21)
		ev, err := s.service.Evaluate(s.ctx, principal, svcA, attrs)
		s.Require().NoError(err)
		s.True(ev.Required)
		s.Equal(ReasonReminderElapsed, ev.Reason)
	})
}

func (s *EngineSuite) TestDaysReminderStillChecksNames() {
	s.store(models.AttributeMap{"email": {"a@x.com"}}, models.OptionDays, 30, models.UnitDays)

	ev, err := s.service.Evaluate(s.ctx, principal, svcA, models.AttributeMap{"email": {"a@x.com"}, "name": {"A"}})
	s.Require().NoError(err)
	s.True(ev.Required)
	s.Equal(ReasonAttributeNamesChanged, ev.Reason)

	// Value changes alone do not trigger a DAYS re-prompt.
	s.False(s.required(models.AttributeMap{"email": {"z@x.com"}}))
}

func (s *EngineSuite) TestDaysUsesDefaultReminder() {
	d := s.store(models.AttributeMap{"email": {"a@x.com"}}, models.OptionDays, 0, "")
	s.Equal(models.DefaultReminder, d.Reminder)
	s.Equal(models.DefaultReminderTimeUnit, d.ReminderTimeUnit)
}

func (s *EngineSuite) TestNewestDecisionWins() {
	attrs := models.AttributeMap{"email": {"a@x.com"}}
	s.store(attrs, models.OptionAlways, 0, "")
	s.clock.now = s.clock.now.Add(time.Minute)
	latest := s.store(attrs, models.OptionAttributeName, 0, "")

	ev, err := s.service.Evaluate(s.ctx, principal, svcA, attrs)
	s.Require().NoError(err)
	s.False(ev.Required)
	s.Equal(latest.ID, ev.Decision.ID)

	all, err := s.service.FindConsentDecisions(s.ctx, principal)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *EngineSuite) TestStoreAssignsIdentityAndAudits() {
	d := s.store(models.AttributeMap{"email": {"a@x.com"}}, models.OptionAttributeName, 0, "")
	s.NotEqual(uuid.Nil, d.ID)
	s.True(s.clock.now.Equal(d.CreatedDate))

	events, err := s.auditStore.ListByPrincipal(s.ctx, tracer.HashPrincipal(principal))
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(models.AuditActionConsentStored, events[0].Action)
	s.Equal(svcA, events[0].Service)
	s.True(s.clock.now.Equal(events[0].Timestamp))
}

func (s *EngineSuite) TestDeleteAllThenRequired() {
	attrs := models.AttributeMap{"email": {"a@x.com"}}
	s.store(attrs, models.OptionAttributeName, 0, "")
	_, err := s.service.StoreConsentDecision(s.ctx, principal, svcB, attrs, models.OptionAttributeName, 0, "")
	s.Require().NoError(err)

	count, err := s.service.DeleteConsentDecisions(s.ctx, principal)
	s.Require().NoError(err)
	s.Equal(2, count)

	for _, svc := range []string{svcA, svcB, "https://never.example.org"} {
		required, err := s.service.IsConsentRequired(s.ctx, principal, svc, attrs)
		s.Require().NoError(err)
		s.True(required, svc)
	}

	count, err = s.service.DeleteConsentDecisions(s.ctx, principal)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *EngineSuite) TestDeleteOne() {
	attrs := models.AttributeMap{"email": {"a@x.com"}}
	s.store(attrs, models.OptionAttributeName, 0, "")

	s.Require().NoError(s.service.DeleteConsentDecision(s.ctx, principal, svcA))
	s.True(s.required(attrs))

	err := s.service.DeleteConsentDecision(s.ctx, principal, svcA)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *EngineSuite) TestRetainLatestPrunesHistory() {
	s.service = NewService(s.repo, s.service.builder, nil, nil,
		WithClock(s.clock.Now),
		WithRetention(RetainLatest),
	)
	attrs := models.AttributeMap{"email": {"a@x.com"}}
	for range 3 {
		s.store(attrs, models.OptionAttributeName, 0, "")
		s.clock.now = s.clock.now.Add(time.Second)
	}

	all, err := s.service.FindConsentDecisions(s.ctx, principal)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.True(s.clock.now.Add(-time.Second).Equal(all[0].CreatedDate))
}

// saveFailingStore rejects every save and serves everything else from memory.
type saveFailingStore struct{ *store.InMemoryStore }

func (saveFailingStore) Save(context.Context, *models.Decision) (*models.Decision, error) {
	return nil, errors.New("disk full")
}

func (s *EngineSuite) TestRetainLatestKeepsPriorApprovalWhenSaveFails() {
	b := s.service.builder
	latest := NewService(s.repo, b, nil, nil, WithClock(s.clock.Now), WithRetention(RetainLatest))
	prior, err := latest.StoreConsentDecision(s.ctx, principal, svcA,
		models.AttributeMap{"email": {"a@x.com"}}, models.OptionAttributeName, 0, "")
	s.Require().NoError(err)

	broken := NewService(saveFailingStore{s.repo}, b, nil, nil, WithClock(s.clock.Now), WithRetention(RetainLatest))
	_, err = broken.StoreConsentDecision(s.ctx, principal, svcA,
		models.AttributeMap{"email": {"a@x.com"}, "name": {"A"}}, models.OptionAttributeName, 0, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStorage))

	found, err := s.service.FindConsentDecision(s.ctx, principal, svcA)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(prior.ID, found.ID)
}

func (s *EngineSuite) TestAttributeNames() {
	d := s.store(models.AttributeMap{"name": {"A"}, "email": {"a@x.com"}}, models.OptionAttributeName, 0, "")
	names, err := s.service.AttributeNames(d)
	s.Require().NoError(err)
	s.Equal([]string{"email", "name"}, names)
}

type brokenAudit struct{}

func (brokenAudit) Append(context.Context, audit.Event) error { return errors.New("sink down") }

func (s *EngineSuite) TestAuditFailureDoesNotFailOperation() {
	svc := NewService(s.repo, s.service.builder, audit.NewPublisher(brokenAudit{}), logger.Discard(),
		WithClock(s.clock.Now),
	)
	attrs := models.AttributeMap{"email": {"a@x.com"}}

	_, err := svc.StoreConsentDecision(s.ctx, principal, svcA, attrs, models.OptionAttributeName, 0, "")
	s.Require().NoError(err)
	s.Require().NoError(svc.DeleteConsentDecision(s.ctx, principal, svcA))
}

func (s *EngineSuite) TestRotatedKeysSurfaceUnreadable() {
	attrs := models.AttributeMap{"email": {"a@x.com"}}
	s.store(attrs, models.OptionAttributeName, 0, "")

	rotated := NewService(s.repo, builder.New(newCipher(s.T())), nil, nil, WithClock(s.clock.Now))
	_, err := rotated.IsConsentRequired(s.ctx, principal, svcA, attrs)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDecisionUnreadable))
}

func (s *EngineSuite) TestValidation() {
	_, err := s.service.IsConsentRequired(s.ctx, "", svcA, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.service.StoreConsentDecision(s.ctx, principal, "", nil, models.OptionAlways, 0, "")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.service.StoreConsentDecision(s.ctx, principal, svcA, nil, "SOMETIMES", 0, "")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.service.StoreConsentDecision(s.ctx, principal, svcA, nil, models.OptionDays, 3, "FORTNIGHTS")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	_, err = s.service.DeleteConsentDecisions(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

// =============================================================================
// Failure propagation, with a mocked repository
// =============================================================================

type FailureSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockStore
	builder   *builder.Builder
	service   *Service
}

func TestFailureSuite(t *testing.T) {
	suite.Run(t, new(FailureSuite))
}

func (s *FailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.builder = builder.New(newCipher(s.T()))
	s.service = NewService(s.mockStore, s.builder, nil, logger.Discard())
}

func (s *FailureSuite) TearDownTest() {
	s.ctrl.Finish()
}

// A repository failure is a StorageError, never "consent required".
func (s *FailureSuite) TestFindFailureIsStorageError() {
	s.mockStore.EXPECT().
		FindConsentDecision(gomock.Any(), principal, svcA).
		Return(nil, errors.New("connection refused"))

	required, err := s.service.IsConsentRequired(context.Background(), principal, svcA, models.AttributeMap{})
	s.Require().Error(err)
	s.False(required)
	s.True(dErrors.HasCode(err, dErrors.CodeStorage))
}

func (s *FailureSuite) TestRepositoryCodeIsPreserved() {
	backend := dErrors.Wrap(errors.New("disk full"), dErrors.CodeStorage, "consent repository save failed")
	s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil, backend)

	_, err := s.service.StoreConsentDecision(context.Background(), principal, svcA,
		models.AttributeMap{"email": {"a@x.com"}}, models.OptionAttributeName, 0, "")
	s.Require().Error(err)
	s.ErrorIs(err, models.ErrStorage)
}

func (s *FailureSuite) TestTamperedPayloadIsIntegrityError() {
	attrs := models.AttributeMap{"email": {"a@x.com"}}
	d, err := s.builder.Build(principal, svcA, attrs, models.OptionAttributeValue, 0, "")
	s.Require().NoError(err)
	d.Attributes = tamper(d.Attributes)

	s.mockStore.EXPECT().FindConsentDecision(gomock.Any(), principal, svcA).Return(d, nil)

	_, err = s.service.IsConsentRequired(context.Background(), principal, svcA, attrs)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDecisionUnreadable))
	s.ErrorIs(err, models.ErrIntegrity)
}

func (s *FailureSuite) TestUnknownStoredOptionIsUnreadable() {
	attrs := models.AttributeMap{"email": {"a@x.com"}}
	d, err := s.builder.Build(principal, svcA, attrs, models.OptionAttributeValue, 0, "")
	s.Require().NoError(err)
	d.Options = "NEVER"

	s.mockStore.EXPECT().FindConsentDecision(gomock.Any(), principal, svcA).Return(d, nil)

	_, err = s.service.IsConsentRequired(context.Background(), principal, svcA, attrs)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeDecisionUnreadable))
}

// prunableStore is a mocked store that also supports pruning.
type prunableStore struct {
	*mocks.MockStore
	*mocks.MockPruner
}

func (s *FailureSuite) TestRetentionSaveFailureSkipsPrune() {
	pruner := mocks.NewMockPruner(s.ctrl)
	svc := NewService(prunableStore{s.mockStore, pruner}, s.builder, nil, nil, WithRetention(RetainLatest))
	s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	_, err := svc.StoreConsentDecision(context.Background(), principal, svcA,
		models.AttributeMap{"email": {"a@x.com"}}, models.OptionAlways, 0, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeStorage))
}

func (s *FailureSuite) TestRetentionPrunesAllButTheSavedDecision() {
	pruner := mocks.NewMockPruner(s.ctrl)
	svc := NewService(prunableStore{s.mockStore, pruner}, s.builder, nil, nil, WithRetention(RetainLatest))
	saved := &models.Decision{ID: uuid.New(), Principal: principal, Service: svcA, Options: models.OptionAlways}
	gomock.InOrder(
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(saved, nil),
		pruner.EXPECT().PruneConsentDecisions(gomock.Any(), principal, svcA, saved.ID).Return(2, nil),
	)

	stored, err := svc.StoreConsentDecision(context.Background(), principal, svcA,
		models.AttributeMap{"email": {"a@x.com"}}, models.OptionAlways, 0, "")
	s.Require().NoError(err)
	s.Equal(saved.ID, stored.ID)
}

// The new decision is already stored and outranks the old ones on lookup.
func (s *FailureSuite) TestRetentionPruneFailureKeepsSavedDecision() {
	pruner := mocks.NewMockPruner(s.ctrl)
	svc := NewService(prunableStore{s.mockStore, pruner}, s.builder, nil, nil, WithRetention(RetainLatest))
	saved := &models.Decision{ID: uuid.New(), Principal: principal, Service: svcA, Options: models.OptionAlways}
	s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(saved, nil)
	pruner.EXPECT().PruneConsentDecisions(gomock.Any(), principal, svcA, saved.ID).Return(0, errors.New("timeout"))

	stored, err := svc.StoreConsentDecision(context.Background(), principal, svcA,
		models.AttributeMap{"email": {"a@x.com"}}, models.OptionAlways, 0, "")
	s.Require().NoError(err)
	s.Equal(saved.ID, stored.ID)
}

func (s *FailureSuite) TestDeleteFailures() {
	s.mockStore.EXPECT().
		DeleteConsentDecision(gomock.Any(), principal, svcA).
		Return(false, errors.New("timeout"))
	err := s.service.DeleteConsentDecision(context.Background(), principal, svcA)
	s.True(dErrors.HasCode(err, dErrors.CodeStorage))

	s.mockStore.EXPECT().
		DeleteConsentDecisions(gomock.Any(), principal).
		Return(0, errors.New("timeout"))
	_, err = s.service.DeleteConsentDecisions(context.Background(), principal)
	s.True(dErrors.HasCode(err, dErrors.CodeStorage))

	s.mockStore.EXPECT().
		FindConsentDecisions(gomock.Any(), principal).
		Return(nil, errors.New("timeout"))
	_, err = s.service.FindConsentDecisions(context.Background(), principal)
	s.True(dErrors.HasCode(err, dErrors.CodeStorage))
}

func TestParseRetention(t *testing.T) {
	for in, want := range map[string]Retention{"": RetainAll, "all": RetainAll, "latest": RetainLatest} {
		got, ok := ParseRetention(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := ParseRetention("forever")
	assert.False(t, ok)
}
