package port

import (
	"context"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// LocationResolver produces the machine's geographic coordinate when
// the user has not pinned one explicitly.
type LocationResolver interface {
	// Resolve returns the current coordinate. Implementations answer
	// within the ctx deadline and wrap failures in
	// entity.ErrLocationUnavailable.
	Resolve(ctx context.Context) (entity.ResolvedCoordinate, error)
}
