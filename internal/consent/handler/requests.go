package handler

import (
	"fmt"
	"strings"

	"attrconsent/internal/consent/models"
	dErrors "attrconsent/pkg/domain-errors"
)

// StoreRequest records the principal's approval for a service.
type StoreRequest struct {
	Attributes       models.AttributeMap `json:"attributes"`
	Options          string              `json:"options"`
	Reminder         int64               `json:"reminder,omitempty"`
	ReminderTimeUnit string              `json:"reminderTimeUnit,omitempty"`
}

func (r *StoreRequest) Normalize() {
	r.Options = strings.ToUpper(strings.TrimSpace(r.Options))
	r.ReminderTimeUnit = strings.ToUpper(strings.TrimSpace(r.ReminderTimeUnit))
}

func (r *StoreRequest) Validate() error {
	if _, ok := models.ParseReminderOption(r.Options); !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "options must be one of ALWAYS, ATTRIBUTE_NAME, ATTRIBUTE_VALUE, DAYS")
	}
	if r.Reminder < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "reminder must not be negative")
	}
	if r.ReminderTimeUnit != "" {
		unit, ok := models.ParseTimeUnit(r.ReminderTimeUnit)
		if !ok {
			return dErrors.New(dErrors.CodeInvalidInput, "unsupported reminderTimeUnit")
		}
		if r.Reminder > unit.MaxReminder() {
			return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("reminder must not exceed %d %s", unit.MaxReminder(), unit))
		}
	}
	return nil
}

// EvaluateRequest carries the attributes about to be released.
type EvaluateRequest struct {
	Attributes models.AttributeMap `json:"attributes"`
}
