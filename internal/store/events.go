package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/integrator/internal/audit"
	"github.com/roach88/integrator/internal/model"
)

// AppendEvent inserts e and returns it with the id SQLite assigned.
// The single pooled connection serializes concurrent appends, so ids are
// unique and strictly increasing.
func (s *Store) AppendEvent(ctx context.Context, e audit.Entry) (audit.Entry, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO event_log (date, source, action, parameters)
		VALUES (?, ?, ?, ?)
	`, e.Date.UnixNano(), nullString(e.Source), e.Action, nullString(e.Parameters))
	if err != nil {
		return audit.Entry{}, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return audit.Entry{}, fmt.Errorf("event id: %w", err)
	}
	e.EventID = id
	e.Date = e.Date.UTC()
	return e, nil
}

// GetEvent returns one event by id.
// Returns model.NotFoundError if no row exists.
func (s *Store) GetEvent(ctx context.Context, id int64) (audit.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, source, action, parameters
		FROM event_log
		WHERE id = ?
	`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return audit.Entry{}, &model.NotFoundError{Kind: audit.Kind, Key: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return audit.Entry{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListEvents returns events matching f ordered by id ascending.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListEvents(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Source != "" {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if f.Prefix != "" {
		p := string(f.Prefix) + "."
		where = append(where, "substr(action, 1, ?) = ?")
		args = append(args, len(p), p)
	}
	if !f.Since.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if !f.Until.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.Until.UnixNano())
	}

	query := "SELECT id, date, source, action, parameters FROM event_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []audit.Entry{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row rowScanner) (audit.Entry, error) {
	var (
		e                  audit.Entry
		date               int64
		source, parameters sql.NullString
	)
	if err := row.Scan(&e.EventID, &date, &source, &e.Action, &parameters); err != nil {
		return audit.Entry{}, err
	}
	e.Date = time.Unix(0, date).UTC()
	e.Source = source.String
	e.Parameters = parameters.String
	return e, nil
}
