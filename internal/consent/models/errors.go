package models

import dErrors "attrconsent/pkg/domain-errors"

// errors.Is targets for the consent error taxonomy. Matching is by code, so
// any domain error carrying the same code satisfies the check.
var (
	ErrNotFound           = dErrors.New(dErrors.CodeNotFound, "consent decision not found")
	ErrStorage            = dErrors.New(dErrors.CodeStorage, "consent storage failure")
	ErrConfidentiality    = dErrors.New(dErrors.CodeConfidentiality, "consent payload could not be decrypted")
	ErrIntegrity          = dErrors.New(dErrors.CodeIntegrity, "consent payload failed verification")
	ErrDecisionUnreadable = dErrors.New(dErrors.CodeDecisionUnreadable, "consent decision unreadable")
)
