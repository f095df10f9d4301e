package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/integrator/internal/model"
	"github.com/roach88/integrator/internal/schemaver"
)

func TestProperties_MissingBeforeEnsure(t *testing.T) {
	_, err := createTestStore(t).GetProperties(context.Background())
	assert.True(t, model.IsNotFound(err))
}

func TestProperties_EnsureExistsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	m := schemaver.New(s)

	require.NoError(t, m.EnsureExists(ctx))
	require.NoError(t, m.EnsureExists(ctx))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM system_properties").Scan(&count))
	assert.Equal(t, 1, count)

	p, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, schemaver.Properties{MarkerID: schemaver.MarkerID, SchemaVersion: schemaver.CodeSchemaVersion}, p)
}

func TestProperties_InsertLeavesExistingRow(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.InsertProperties(ctx, schemaver.Properties{MarkerID: 1, SchemaVersion: 7}))
	require.NoError(t, s.InsertProperties(ctx, schemaver.Properties{MarkerID: 1, SchemaVersion: 1}))

	p, err := s.GetProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, p.SchemaVersion)
}

func TestProperties_RejectsSecondID(t *testing.T) {
	err := createTestStore(t).InsertProperties(context.Background(), schemaver.Properties{MarkerID: 2, SchemaVersion: 1})
	assert.Error(t, err)
}

func TestProperties_CheckDetectsIncompatibleVersion(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.InsertProperties(ctx, schemaver.Properties{MarkerID: 1, SchemaVersion: 2}))

	_, err := schemaver.New(s).Check(ctx)
	require.Error(t, err)

	var ie *schemaver.IncompatibleError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 2, ie.Stored)
	assert.Equal(t, schemaver.CodeSchemaVersion, ie.Code)
}
