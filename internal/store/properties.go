package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/integrator/internal/model"
	"github.com/roach88/integrator/internal/schemaver"
)

// GetProperties returns the system_properties singleton.
// Returns model.NotFoundError if it has not been created.
func (s *Store) GetProperties(ctx context.Context) (schemaver.Properties, error) {
	var p schemaver.Properties
	err := s.db.QueryRowContext(ctx, `
		SELECT id, schema_version FROM system_properties WHERE id = ?
	`, schemaver.MarkerID).Scan(&p.MarkerID, &p.SchemaVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return schemaver.Properties{}, &model.NotFoundError{
			Kind: schemaver.Kind,
			Key:  strconv.Itoa(schemaver.MarkerID),
		}
	}
	if err != nil {
		return schemaver.Properties{}, fmt.Errorf("get system properties: %w", err)
	}
	return p, nil
}

// InsertProperties creates the singleton. An existing row is left untouched.
func (s *Store) InsertProperties(ctx context.Context, p schemaver.Properties) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_properties (id, schema_version)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, p.MarkerID, p.SchemaVersion)
	if err != nil {
		return fmt.Errorf("insert system properties: %w", err)
	}
	return nil
}
