package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Principal carries the hashed principal, never the raw identifier.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Principal string    `json:"principal"`
	Service   string    `json:"service,omitempty"`
	Action    string    `json:"action"`
	Decision  string    `json:"decision"`
	Reason    string    `json:"reason"`
	Count     int       `json:"count,omitempty"`
}
