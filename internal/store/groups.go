package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/integrator/internal/issue"
	"github.com/roach88/integrator/internal/model"
)

const groupKind = "issue_group"

// PutGroup inserts g and returns it with its assigned id.
// The coding system is stored by wire name so rows stay readable.
func (s *Store) PutGroup(ctx context.Context, g issue.Group) (issue.Group, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO issue_groups (name, coding_system, code)
		VALUES (?, ?, ?)
	`, g.Name, g.System.String(), g.Code)
	if err != nil {
		return issue.Group{}, fmt.Errorf("insert issue group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return issue.Group{}, fmt.Errorf("issue group id: %w", err)
	}
	g.GroupID = id
	return g, nil
}

// GetGroup returns one group by id.
// Returns model.NotFoundError if no row exists.
func (s *Store) GetGroup(ctx context.Context, id int64) (issue.Group, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, coding_system, code FROM issue_groups WHERE id = ?
	`, id)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return issue.Group{}, &model.NotFoundError{Kind: groupKind, Key: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return issue.Group{}, fmt.Errorf("get issue group: %w", err)
	}
	return g, nil
}

// ListGroups returns all groups ordered by id.
func (s *Store) ListGroups(ctx context.Context) ([]issue.Group, error) {
	return s.queryGroups(ctx, `
		SELECT id, name, coding_system, code FROM issue_groups ORDER BY id ASC
	`)
}

// GroupsForIssue returns the groups tagged with n, ordered by id.
func (s *Store) GroupsForIssue(ctx context.Context, n issue.NoteIssue) ([]issue.Group, error) {
	return s.queryGroups(ctx, `
		SELECT id, name, coding_system, code FROM issue_groups
		WHERE coding_system = ? AND code = ?
		ORDER BY id ASC
	`, n.System.String(), n.Code)
}

func (s *Store) queryGroups(ctx context.Context, query string, args ...any) ([]issue.Group, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issue groups: %w", err)
	}
	defer rows.Close()

	groups := []issue.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issue groups: %w", err)
	}
	return groups, nil
}

func scanGroup(row rowScanner) (issue.Group, error) {
	var (
		g      issue.Group
		system string
	)
	if err := row.Scan(&g.GroupID, &g.Name, &system, &g.Code); err != nil {
		return issue.Group{}, err
	}
	cs, err := issue.ParseCodingSystem(system)
	if err != nil {
		return issue.Group{}, err
	}
	g.System = cs
	return g, nil
}
