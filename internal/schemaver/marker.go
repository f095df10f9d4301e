// Package schemaver guards the single system_properties record that tags
// the stored data layout with a schema version.
package schemaver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/integrator/internal/model"
)

const (
	// MarkerID is the fixed identity of the singleton record.
	MarkerID = 1
	// CodeSchemaVersion is the layout version this build reads and writes.
	CodeSchemaVersion = 1
	// Kind names the record in errors.
	Kind = "system_properties"
)

// Properties is the singleton record.
type Properties struct {
	MarkerID      int `json:"id" yaml:"id"`
	SchemaVersion int `json:"schema_version" yaml:"schema_version"`
}

// ID implements model.Identifiable.
func (p Properties) ID() int { return p.MarkerID }

// Backend persists the singleton.
type Backend interface {
	// GetProperties returns a NotFoundError when the row is absent.
	GetProperties(ctx context.Context) (Properties, error)
	// InsertProperties creates the row if absent and leaves an existing row untouched.
	InsertProperties(ctx context.Context, p Properties) error
}

// IncompatibleError reports a stored schema version this build cannot use.
type IncompatibleError struct {
	Stored int
	Code   int
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("stored schema version %d is incompatible with code schema version %d", e.Stored, e.Code)
}

// Marker exposes the singleton.
type Marker struct {
	backend Backend
}

// New creates a Marker.
func New(backend Backend) *Marker {
	return &Marker{backend: backend}
}

// Current returns the stored record.
func (m *Marker) Current(ctx context.Context) (Properties, error) {
	return m.backend.GetProperties(ctx)
}

// EnsureExists creates the singleton if absent. Calling it again is a no-op.
func (m *Marker) EnsureExists(ctx context.Context) error {
	err := m.backend.InsertProperties(ctx, Properties{MarkerID: MarkerID, SchemaVersion: CodeSchemaVersion})
	if err != nil {
		return fmt.Errorf("ensure schema marker: %w", err)
	}
	return nil
}

// Remove always fails: the marker is part of the store's integrity.
func (m *Marker) Remove(context.Context) error {
	return &model.ImmutabilityError{Kind: Kind, Op: "remove"}
}

// Check ensures the marker exists and matches CodeSchemaVersion.
// Run it once at startup before serving any data.
func (m *Marker) Check(ctx context.Context) (Properties, error) {
	if err := m.EnsureExists(ctx); err != nil {
		return Properties{}, err
	}
	p, err := m.Current(ctx)
	if err != nil {
		return Properties{}, fmt.Errorf("read schema marker: %w", err)
	}
	if p.SchemaVersion != CodeSchemaVersion {
		return p, &IncompatibleError{Stored: p.SchemaVersion, Code: CodeSchemaVersion}
	}
	slog.Debug("schema version verified", "version", p.SchemaVersion)
	return p, nil
}
