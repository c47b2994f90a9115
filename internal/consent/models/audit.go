package models

// Audit event actions describe what operation occurred.
const (
	AuditActionConsentStored     = "consent_decision_stored"       // Principal approved an attribute release
	AuditActionConsentDeleted    = "consent_decision_deleted"      // One service's decisions were removed
	AuditActionConsentDeletedAll = "consent_decisions_deleted_all" // Every decision of a principal was removed
)

// Audit event decisions record the outcome of the action.
const (
	AuditDecisionGranted = "granted"
	AuditDecisionDeleted = "deleted"
)

// Audit event reasons explain why the action was taken.
const (
	AuditReasonUserInitiated      = "user_initiated"
	AuditReasonUserBulkRevocation = "user_bulk_revocation"
)
