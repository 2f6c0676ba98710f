package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pygillier/nightswitch/internal/domain/entity"
	"github.com/pygillier/nightswitch/internal/domain/repository"
	"github.com/pygillier/nightswitch/internal/logging"
)

type stateRepo struct {
	db *sql.DB
}

// NewStateRepository creates the sqlite-backed app state repository.
func NewStateRepository(db *sql.DB) repository.StateRepository {
	return &stateRepo{db: db}
}

const upsertStateSQL = `
INSERT INTO app_state (id, state_json, version, updated_at)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	state_json = excluded.state_json,
	version    = excluded.version,
	updated_at = excluded.updated_at`

// SaveState writes the single state record, replacing any previous one.
func (r *stateRepo) SaveState(ctx context.Context, state *entity.AppState) error {
	if state == nil {
		return fmt.Errorf("%w: app state cannot be nil", entity.ErrPersistence)
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: marshal state: %w", entity.ErrPersistence, err)
	}

	logging.FromContext(ctx).Debug().
		Str("mode", state.Mode.String()).
		Str("theme", state.CurrentTheme.String()).
		Msg("saving app state")

	if _, err := r.db.ExecContext(ctx, upsertStateSQL, string(stateJSON), state.Version, state.UpdatedAt); err != nil {
		return fmt.Errorf("%w: save state: %w", entity.ErrPersistence, err)
	}
	return nil
}

// LoadState reads the state record, (nil, nil) when none exists yet.
func (r *stateRepo) LoadState(ctx context.Context) (*entity.AppState, error) {
	var stateJSON string
	err := r.db.QueryRowContext(ctx, `SELECT state_json FROM app_state WHERE id = 1`).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load state: %w", entity.ErrPersistence, err)
	}

	var state entity.AppState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("%w: unmarshal state: %w", entity.ErrPersistence, err)
	}
	return &state, nil
}
