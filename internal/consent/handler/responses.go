package handler

import (
	"time"

	"attrconsent/internal/consent/models"
)

// ListResponse is returned when listing a principal's decisions.
type ListResponse struct {
	Consents []*Consent `json:"consents"`
}

// Consent is the metadata view of a stored decision. The protected payload is
// never returned; attribute names are included only when it could be read.
type Consent struct {
	ID               string                `json:"id"`
	Service          string                `json:"service"`
	CreatedDate      time.Time             `json:"createdDate"`
	Options          models.ReminderOption `json:"options"`
	Reminder         int64                 `json:"reminder"`
	ReminderTimeUnit models.TimeUnit       `json:"reminderTimeUnit"`
	AttributeNames   []string              `json:"attributeNames,omitempty"`
}

// EvaluateResponse tells the caller whether the principal must be prompted.
// Decision is the stored decision the evaluation was made against.
type EvaluateResponse struct {
	Required bool     `json:"required"`
	Reason   string   `json:"reason"`
	Decision *Consent `json:"decision,omitempty"`
}

// RevokeAllResponse is returned after revoking every decision of a principal.
type RevokeAllResponse struct {
	Deleted int `json:"deleted"`
}

func toConsent(d *models.Decision, names []string) *Consent {
	return &Consent{
		ID:               d.ID.String(),
		Service:          d.Service,
		CreatedDate:      d.CreatedDate,
		Options:          d.Options,
		Reminder:         d.Reminder,
		ReminderTimeUnit: d.ReminderTimeUnit,
		AttributeNames:   names,
	}
}
