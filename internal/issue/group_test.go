package issue

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/integrator/internal/model"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Diabetes", "diabetes"},
		{"  Type   2\tDiabetes ", "type 2 diabetes"},
		{"Café", "café"},
	}
	for _, tt := range tests {
		got, err := NormalizeName(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizeName_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "bad\x00name", strings.Repeat("a", MaxGroupNameLen+1)} {
		_, err := NormalizeName(in)
		assert.True(t, model.IsValidation(err), "input %q: %v", in, err)
	}

	_, err := NormalizeName(strings.Repeat("a", MaxGroupNameLen))
	assert.NoError(t, err)
}

func TestNewGroup(t *testing.T) {
	g, err := NewGroup(" Heart Failure ", ICD10, "I50")
	require.NoError(t, err)
	assert.Equal(t, "heart failure", g.Name)
	assert.Equal(t, NoteIssue{System: ICD10, Code: "I50"}, g.Issue())
	assert.Zero(t, g.ID())

	_, err = NewGroup("x", CodingSystem(0), "I50")
	assert.True(t, model.IsValidation(err))
	_, err = NewGroup("x", ICD10, "")
	assert.True(t, model.IsValidation(err))
	_, err = NewGroup("x", ICD10, strings.Repeat("9", MaxCodeLen+1))
	assert.True(t, model.IsValidation(err))
}

type memGroups struct {
	groups []Group
}

func (m *memGroups) PutGroup(_ context.Context, g Group) (Group, error) {
	g.GroupID = int64(len(m.groups) + 1)
	m.groups = append(m.groups, g)
	return g, nil
}

func (m *memGroups) GetGroup(_ context.Context, id int64) (Group, error) {
	for _, g := range m.groups {
		if g.GroupID == id {
			return g, nil
		}
	}
	return Group{}, &model.NotFoundError{Kind: "issue_group"}
}

func (m *memGroups) ListGroups(context.Context) ([]Group, error) { return m.groups, nil }

func (m *memGroups) GroupsForIssue(_ context.Context, n NoteIssue) ([]Group, error) {
	var out []Group
	for _, g := range m.groups {
		if g.Issue() == n {
			out = append(out, g)
		}
	}
	return out, nil
}

func TestGroups_AddValidatesBeforeStoring(t *testing.T) {
	backend := &memGroups{}
	svc := NewGroups(backend)
	ctx := context.Background()

	_, err := svc.Add(ctx, "", ICD9, "250")
	require.Error(t, err)
	assert.Empty(t, backend.groups)

	g, err := svc.Add(ctx, "Diabetes", ICD9, "250")
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.ID())

	found, err := svc.ForIssue(ctx, NoteIssue{System: ICD9, Code: "250"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "diabetes", found[0].Name)
}
