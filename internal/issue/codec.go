package issue

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-multierror"

	"github.com/roach88/integrator/internal/model"
)

// Separator joins a coding system name and its code on the wire.
const Separator = "."

// NoteIssue tags a clinical note with a code from a coding system.
// Two issues are equal only when both the system and the code match.
type NoteIssue struct {
	System CodingSystem `json:"coding_system" yaml:"coding_system"`
	Code   string       `json:"code" yaml:"code"`
}

// String returns the wire form "{SYSTEM}.{code}".
func (n NoteIssue) String() string {
	return Encode(n.System, n.Code)
}

// Compare orders issues by wire form.
func (n NoteIssue) Compare(other NoteIssue) int {
	return strings.Compare(n.String(), other.String())
}

// Encode renders a (system, code) pair as "{SYSTEM}.{code}".
func Encode(system CodingSystem, code string) string {
	return system.String() + Separator + code
}

// Decode parses "{SYSTEM}.{code}". The input is split on the first '.',
// so codes such as "250.00" keep their own dots.
func Decode(s string) (NoteIssue, error) {
	name, code, ok := strings.Cut(s, Separator)
	if !ok || code == "" {
		return NoteIssue{}, &model.FormatError{Input: s, Reason: "expected SYSTEM.CODE"}
	}
	system, err := ParseCodingSystem(name)
	if err != nil {
		return NoteIssue{}, &model.FormatError{Input: s, Reason: fmt.Sprintf("unknown coding system %q", name)}
	}
	return NoteIssue{System: system, Code: code}, nil
}

// EncodeAll encodes every issue. Duplicates collapse.
func EncodeAll(issues mapset.Set[NoteIssue]) mapset.Set[string] {
	out := mapset.NewSetWithSize[string](issues.Cardinality())
	issues.Each(func(n NoteIssue) bool {
		out.Add(n.String())
		return false
	})
	return out
}

// DecodeAll decodes every string it can. Malformed entries are logged and
// skipped; the batch never fails as a whole.
func DecodeAll(values []string) mapset.Set[NoteIssue] {
	out := mapset.NewSetWithSize[NoteIssue](len(values))
	for _, v := range values {
		n, err := Decode(v)
		if err != nil {
			slog.Warn("skipping undecodable note issue",
				"value", v,
				"error", err,
			)
			continue
		}
		out.Add(n)
	}
	return out
}

// ValidateAll is the strict counterpart of DecodeAll: it returns every
// decode failure in the batch, or nil when all entries are well formed.
func ValidateAll(values []string) error {
	var errs *multierror.Error
	for i, v := range values {
		if _, err := Decode(v); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("entry %d: %w", i, err))
		}
	}
	return errs.ErrorOrNil()
}

// Sorted returns the set's members ordered by wire form.
func Sorted(issues mapset.Set[NoteIssue]) []NoteIssue {
	out := issues.ToSlice()
	slices.SortFunc(out, NoteIssue.Compare)
	return out
}
