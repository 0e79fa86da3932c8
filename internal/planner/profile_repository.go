package planner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bitepath/internal/grocery"
)

// ProfileRepository stores per-user preferences.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(d *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: d}
}

// PreferredUnitSystem returns the user's display system, imperial when none is stored.
func (r *ProfileRepository) PreferredUnitSystem(ctx context.Context, userID string) (grocery.UnitSystem, error) {
	var system sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT preferred_unit_system FROM profiles WHERE user_id = ?`, userID).Scan(&system)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !system.Valid) {
		return grocery.Imperial, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get profile for user %s: %w", userID, err)
	}

	s, err := grocery.ParseUnitSystem(system.String)
	if err != nil {
		return grocery.Imperial, nil
	}
	return s, nil
}

// SetPreferredUnitSystem stores the user's display system.
func (r *ProfileRepository) SetPreferredUnitSystem(ctx context.Context, userID string, system grocery.UnitSystem) error {
	if _, err := grocery.ParseUnitSystem(string(system)); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, preferred_unit_system, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET preferred_unit_system = excluded.preferred_unit_system,
			updated_at = excluded.updated_at`,
		userID, string(system), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save profile for user %s: %w", userID, err)
	}
	return nil
}
