package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "attrconsent/pkg/domain-errors"
)

// Defaults applied when an approval does not carry its own reminder.
const (
	DefaultReminder         int64    = 14
	DefaultReminderTimeUnit TimeUnit = UnitDays
)

// Decision records that a principal approved releasing a set of attributes to
// a relying service, under a given staleness policy.
//
// A decision is never updated in place. A newer decision for the same
// (Principal, Service) supersedes older ones by CreatedDate.
//
// Attributes holds the protected payload produced by the decision builder:
// a signed and encrypted token, or the raw payload when the cipher is disabled.
// No other layer interprets it.
type Decision struct {
	ID               uuid.UUID      `json:"id"`
	Principal        string         `json:"principal"`
	Service          string         `json:"service"`
	CreatedDate      time.Time      `json:"createdDate"`
	Options          ReminderOption `json:"options"`
	Reminder         int64          `json:"reminder"`
	ReminderTimeUnit TimeUnit       `json:"reminderTimeUnit"`
	Attributes       []byte         `json:"attributes"`
}

// NewDecision creates a Decision with domain invariant checks. ID and
// CreatedDate are left for the repository to assign.
func NewDecision(principal, service string, options ReminderOption, reminder int64, unit TimeUnit, attributes []byte) (*Decision, error) {
	if principal == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "principal required")
	}
	if service == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "service required")
	}
	if !options.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid reminder option")
	}
	if len(attributes) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "protected attributes required")
	}
	if options == OptionDays {
		if reminder <= 0 {
			reminder = DefaultReminder
		}
		if unit == "" {
			unit = DefaultReminderTimeUnit
		}
		if !unit.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid reminder time unit")
		}
		if reminder > unit.MaxReminder() {
			return nil, dErrors.New(dErrors.CodeInvariantViolation,
				fmt.Sprintf("reminder must not exceed %d %s", unit.MaxReminder(), unit))
		}
	}
	return &Decision{
		Principal:        principal,
		Service:          service,
		Options:          options,
		Reminder:         reminder,
		ReminderTimeUnit: unit,
		Attributes:       attributes,
	}, nil
}

// ReminderDue reports whether a DAYS decision is past its reminder period.
// Decisions under any other option never fall due.
func (d Decision) ReminderDue(now time.Time) bool {
	if d.Options != OptionDays {
		return false
	}
	unit := d.ReminderTimeUnit
	if !unit.IsValid() {
		unit = DefaultReminderTimeUnit
	}
	return unit.AddTo(d.CreatedDate, d.Reminder).Before(now)
}

// Clone returns a deep copy so stores never share payload memory with callers.
func (d *Decision) Clone() *Decision {
	if d == nil {
		return nil
	}
	c := *d
	c.Attributes = append([]byte(nil), d.Attributes...)
	return &c
}

// Latest picks the most recent decision for service from a principal's list.
// Ties on CreatedDate resolve to the later entry in the slice.
func Latest(decisions []*Decision, service string) *Decision {
	var latest *Decision
	for _, d := range decisions {
		if d.Service != service {
			continue
		}
		if latest == nil || !d.CreatedDate.Before(latest.CreatedDate) {
			latest = d
		}
	}
	return latest
}
