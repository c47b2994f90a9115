package audit

import (
	"context"
	"errors"
)

// ErrNotListable is returned by Publisher.List when the sink is write-only.
var ErrNotListable = errors.New("audit sink does not support listing")

// Store is an audit sink. Append must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by sinks that can read events back.
type Lister interface {
	ListByPrincipal(ctx context.Context, principal string) ([]Event, error)
}
