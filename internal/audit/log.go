package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/roach88/integrator/internal/model"
)

// MaxFieldLen is the column width of source, action and parameters.
const MaxFieldLen = 255

// Kind names event log records in errors.
const Kind = "event_log"

// Entry is one audited event. Once appended it is permanent: the Log
// refuses updates and removals, and the store rejects them as well.
type Entry struct {
	EventID    int64     `json:"id" yaml:"id"`
	Date       time.Time `json:"date" yaml:"date"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"`
	Action     string    `json:"action" yaml:"action"`
	Parameters string    `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ID implements model.Identifiable. Zero until the entry is appended.
func (e Entry) ID() int64 { return e.EventID }

// NewEntry builds an unsaved entry stamped with date.
func NewEntry(date time.Time, source, action, parameters string) (Entry, error) {
	if action == "" {
		return Entry{}, model.NewValidationError("action", "is required")
	}
	fields := []struct{ name, value string }{
		{"source", source},
		{"action", action},
		{"parameters", parameters},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > MaxFieldLen {
			return Entry{}, model.NewValidationError(f.name, "longer than %d characters", MaxFieldLen)
		}
	}
	return Entry{Date: date, Source: source, Action: action, Parameters: parameters}, nil
}

// Filter narrows List results. Zero fields do not filter.
type Filter struct {
	Source string
	Prefix ActionPrefix
	Since  time.Time
	Until  time.Time
	Limit  int
}

// Backend persists entries. AppendEvent must assign ids atomically with
// respect to concurrent appends.
type Backend interface {
	AppendEvent(ctx context.Context, e Entry) (Entry, error)
	GetEvent(ctx context.Context, id int64) (Entry, error)
	ListEvents(ctx context.Context, f Filter) ([]Entry, error)
}

// Log is the append-only audit ledger.
type Log struct {
	backend Backend
	now     func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// NewLog creates a Log over backend.
func NewLog(backend Backend, opts ...Option) *Log {
	l := &Log{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records an event and returns it with its assigned id.
func (l *Log) Append(ctx context.Context, source, action, parameters string) (Entry, error) {
	e, err := NewEntry(l.now().UTC(), source, action, parameters)
	if err != nil {
		return Entry{}, err
	}
	stored, err := l.backend.AppendEvent(ctx, e)
	if err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	slog.Debug("audit entry appended",
		"id", stored.EventID,
		"action", stored.Action,
		"source", stored.Source,
	)
	return stored, nil
}

// Record appends an event and discards the entry.
func (l *Log) Record(ctx context.Context, source, action, parameters string) error {
	_, err := l.Append(ctx, source, action, parameters)
	return err
}

// Update always fails: audit entries never change.
func (l *Log) Update(context.Context, Entry) error {
	return &model.ImmutabilityError{Kind: Kind, Op: "update"}
}

// Remove always fails: audit entries are never deleted.
func (l *Log) Remove(context.Context, Entry) error {
	return &model.ImmutabilityError{Kind: Kind, Op: "remove"}
}

// Get returns one entry by id.
func (l *Log) Get(ctx context.Context, id int64) (Entry, error) {
	return l.backend.GetEvent(ctx, id)
}

// List returns entries matching f, oldest first.
func (l *Log) List(ctx context.Context, f Filter) ([]Entry, error) {
	return l.backend.ListEvents(ctx, f)
}
