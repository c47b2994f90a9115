// Package tracer provides a lightweight tracing abstraction for the consent
// engine.
//
// The engine depends on the Tracer interface only; OTelTracer adapts it to
// OpenTelemetry and NoopTracer is used in tests.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	// The returned context carries the span for child operations.
	//
	// Example:
	//   ctx, span := t.Start(ctx, tracer.SpanEvaluate,
	//       tracer.String(tracer.AttrPrincipal, tracer.HashPrincipal(principal)),
	//   )
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashPrincipal returns a short SHA-256 digest of a principal for logs,
// spans and audit events, so they correlate without exposing the identifier.
func HashPrincipal(principal string) string {
	if principal == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(principal))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the consent engine.
const (
	SpanEvaluate = "consent.evaluate"
	SpanStore    = "consent.store"
	SpanDelete   = "consent.delete"
	SpanList     = "consent.list"
)

// Attribute keys used by the consent engine.
const (
	AttrPrincipal = "consent.principal"
	AttrService   = "consent.service"
	AttrOptions   = "consent.options"
	AttrRequired  = "consent.required"
	AttrReason    = "consent.reason"
	AttrDeleted   = "consent.deleted"
	AttrCipher    = "consent.cipher"
)

// Event names used by the consent engine.
const (
	EventAuditEmitted = "audit.emitted"
	EventAuditFailed  = "audit.failed"
	EventRetention    = "retention.pruned"
)
