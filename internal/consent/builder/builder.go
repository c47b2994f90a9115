// Package builder turns an approved attribute release into a protected
// consent decision and reads such decisions back for comparison.
package builder

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"slices"

	"attrconsent/internal/consent/cipher"
	"attrconsent/internal/consent/models"
	dErrors "attrconsent/pkg/domain-errors"
)

// Payload is what a decision's protected attributes field decodes to.
type Payload struct {
	Names       []string `json:"names"`
	Fingerprint string   `json:"fingerprint"`
}

// Builder is the only component that knows the layout of Decision.Attributes.
type Builder struct {
	cipher cipher.Executor
}

// New creates a Builder protecting payloads with c.
func New(c cipher.Executor) *Builder {
	return &Builder{cipher: c}
}

// Build fingerprints attrs, protects the payload and returns an unsaved
// decision. Reminder settings only matter for models.OptionDays.
func (b *Builder) Build(principal, service string, attrs models.AttributeMap, options models.ReminderOption, reminder int64, unit models.TimeUnit) (*models.Decision, error) {
	raw, err := json.Marshal(Payload{
		Names:       attrs.Names(),
		Fingerprint: Fingerprint(attrs),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not encode consent payload")
	}
	protected, err := b.cipher.Protect(raw)
	if err != nil {
		return nil, err
	}
	return models.NewDecision(principal, service, options, reminder, unit, protected)
}

// Extract unprotects a stored decision. Any failure, cryptographic or
// structural, is reported as CodeDecisionUnreadable with the cause kept in
// the chain.
func (b *Builder) Extract(decision *models.Decision) (*Payload, error) {
	if decision == nil {
		return nil, dErrors.New(dErrors.CodeDecisionUnreadable, "no decision to extract")
	}
	raw, err := b.cipher.Unprotect(decision.Attributes)
	if err != nil {
		return nil, dErrors.WrapAs(err, dErrors.CodeDecisionUnreadable, "consent decision could not be unprotected")
	}
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, dErrors.WrapAs(err, dErrors.CodeDecisionUnreadable, "consent decision payload is malformed")
	}
	if payload.Fingerprint == "" {
		return nil, dErrors.New(dErrors.CodeDecisionUnreadable, "consent decision payload has no fingerprint")
	}
	return &payload, nil
}

// Fingerprint is a SHA-256 digest over attribute names and values. Names and
// each name's values are sorted and deduplicated first, and every element is
// length-prefixed, so map iteration order and value order never matter and
// no two different sets share an encoding.
func Fingerprint(attrs models.AttributeMap) string {
	h := sha256.New()
	var buf [binary.MaxVarintLen64]byte
	write := func(s string) {
		n := binary.PutUvarint(buf[:], uint64(len(s)))
		h.Write(buf[:n])
		h.Write([]byte(s))
	}
	names := attrs.Names()
	n := binary.PutUvarint(buf[:], uint64(len(names)))
	h.Write(buf[:n])
	for _, name := range names {
		write(name)
		values := slices.Compact(slices.Sorted(slices.Values(attrs[name])))
		n := binary.PutUvarint(buf[:], uint64(len(values)))
		h.Write(buf[:n])
		for _, v := range values {
			write(v)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
