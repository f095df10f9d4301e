package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/integrator/internal/issue"
	"github.com/roach88/integrator/internal/model"
)

func TestGroups_AddGetList(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	groups := issue.NewGroups(s)

	g1, err := groups.Add(ctx, "  Diabetes   Type 2 ", issue.ICD9, "250.00")
	require.NoError(t, err)
	g2, err := groups.Add(ctx, "Hypertension", issue.ICD10, "I10")
	require.NoError(t, err)

	assert.Equal(t, int64(1), g1.GroupID)
	assert.Equal(t, int64(2), g2.GroupID)
	assert.Equal(t, "diabetes type 2", g1.Name)

	got, err := groups.Get(ctx, g1.GroupID)
	require.NoError(t, err)
	assert.Equal(t, g1, got)

	all, err := groups.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []issue.Group{g1, g2}, all)
}

func TestGroups_CodingSystemStoredByName(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	g, err := issue.NewGroups(s).Add(ctx, "core", issue.SNOMEDCore, "38341003")
	require.NoError(t, err)

	var system string
	require.NoError(t, s.db.QueryRow("SELECT coding_system FROM issue_groups WHERE id = ?", g.GroupID).Scan(&system))
	assert.Equal(t, issue.SNOMEDCore.String(), system)
}

func TestGroups_ForIssue(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	groups := issue.NewGroups(s)

	a, err := groups.Add(ctx, "a", issue.ICD9, "250.00")
	require.NoError(t, err)
	_, err = groups.Add(ctx, "b", issue.ICD10, "250.00")
	require.NoError(t, err)
	c, err := groups.Add(ctx, "c", issue.ICD9, "250.00")
	require.NoError(t, err)

	got, err := groups.ForIssue(ctx, issue.NoteIssue{System: issue.ICD9, Code: "250.00"})
	require.NoError(t, err)
	assert.Equal(t, []issue.Group{a, c}, got)

	none, err := groups.ForIssue(ctx, issue.NoteIssue{System: issue.Drug, Code: "x"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGroups_GetNotFound(t *testing.T) {
	_, err := issue.NewGroups(createTestStore(t)).Get(context.Background(), 12)
	assert.True(t, model.IsNotFound(err))
}
