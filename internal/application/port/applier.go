package port

import (
	"context"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// ThemeApplier pushes a theme variant to the desktop. Selected once
// at startup; the controller never dispatches on concrete type.
type ThemeApplier interface {
	// Name returns a short identifier for logs and status output.
	Name() string

	// Available reports whether this backend can run on the current
	// desktop (binary present, session bus reachable, ...).
	Available() bool

	// Apply sets the theme. Implementations are idempotent: applying
	// the already-active variant succeeds and is harmless. Bounded by
	// ctx; no assumption about latency is made by callers.
	Apply(ctx context.Context, variant entity.Variant) error
}
