package repository

import (
	"context"

	"github.com/pygillier/nightswitch/internal/domain/entity"
)

// StateRepository persists the single application state record.
type StateRepository interface {
	// SaveState writes the state record, replacing any previous one.
	SaveState(ctx context.Context, state *entity.AppState) error

	// LoadState reads the state record.
	// Returns (nil, nil) when no state has been saved yet.
	LoadState(ctx context.Context) (*entity.AppState, error)
}
