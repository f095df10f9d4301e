package issue

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/integrator/internal/model"
)

const (
	// MaxGroupNameLen is the column width of an issue group name.
	MaxGroupNameLen = 32
	// MaxCodeLen is the column width of an issue code.
	MaxCodeLen = 64
)

// Group is a named bucket of issues that share one coded diagnosis,
// used for cross-facility reporting.
type Group struct {
	GroupID int64        `json:"id" yaml:"id"`
	Name    string       `json:"name" yaml:"name"`
	System  CodingSystem `json:"coding_system" yaml:"coding_system"`
	Code    string       `json:"code" yaml:"code"`
}

// ID implements model.Identifiable. Zero until the group is stored.
func (g Group) ID() int64 { return g.GroupID }

// Issue returns the coded issue the group represents.
func (g Group) Issue() NoteIssue { return NoteIssue{System: g.System, Code: g.Code} }

// NewGroup validates and normalizes the fields of a new group.
func NewGroup(name string, system CodingSystem, code string) (Group, error) {
	normalized, err := NormalizeName(name)
	if err != nil {
		return Group{}, err
	}
	if !system.Valid() {
		return Group{}, model.NewValidationError("coding_system", "unsupported value %d", int(system))
	}
	if code == "" {
		return Group{}, model.NewValidationError("code", "must not be empty")
	}
	if utf8.RuneCountInString(code) > MaxCodeLen {
		return Group{}, model.NewValidationError("code", "longer than %d characters", MaxCodeLen)
	}
	return Group{Name: normalized, System: system, Code: code}, nil
}

// NormalizeName canonicalizes a display name: NFC, trimmed, lower-cased,
// inner whitespace runs collapsed to one space.
func NormalizeName(name string) (string, error) {
	s := norm.NFC.String(name)
	for _, r := range s {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return "", model.NewValidationError("name", "contains control character %U", r)
		}
	}
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	if s == "" {
		return "", model.NewValidationError("name", "must not be empty")
	}
	if utf8.RuneCountInString(s) > MaxGroupNameLen {
		return "", model.NewValidationError("name", "longer than %d characters", MaxGroupNameLen)
	}
	return s, nil
}

// GroupBackend persists issue groups.
type GroupBackend interface {
	PutGroup(ctx context.Context, g Group) (Group, error)
	GetGroup(ctx context.Context, id int64) (Group, error)
	ListGroups(ctx context.Context) ([]Group, error)
	GroupsForIssue(ctx context.Context, n NoteIssue) ([]Group, error)
}

// Groups manages issue groups on top of a backend.
type Groups struct {
	backend GroupBackend
}

// NewGroups creates a group service.
func NewGroups(backend GroupBackend) *Groups {
	return &Groups{backend: backend}
}

// Add validates and stores a new group, returning it with its assigned id.
func (s *Groups) Add(ctx context.Context, name string, system CodingSystem, code string) (Group, error) {
	g, err := NewGroup(name, system, code)
	if err != nil {
		return Group{}, err
	}
	stored, err := s.backend.PutGroup(ctx, g)
	if err != nil {
		return Group{}, fmt.Errorf("add issue group: %w", err)
	}
	return stored, nil
}

// Get returns one group by id.
func (s *Groups) Get(ctx context.Context, id int64) (Group, error) {
	return s.backend.GetGroup(ctx, id)
}

// List returns every group ordered by id.
func (s *Groups) List(ctx context.Context) ([]Group, error) {
	return s.backend.ListGroups(ctx)
}

// ForIssue returns the groups tagged with n.
func (s *Groups) ForIssue(ctx context.Context, n NoteIssue) ([]Group, error) {
	return s.backend.GroupsForIssue(ctx, n)
}
