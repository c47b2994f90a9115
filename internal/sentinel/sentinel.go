package sentinel

import "errors"

// Sentinel backend errors. Repository backends return these (optionally wrapped)
// so the store layer can translate them into domain errors exactly once.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrMalformed   = errors.New("malformed backend response")
)
