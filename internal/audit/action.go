package audit

import (
	"strings"

	"github.com/roach88/integrator/internal/model"
)

// ActionPrefix is the broad category of an audited action.
type ActionPrefix string

const (
	PrefixData        ActionPrefix = "DATA"
	PrefixLogic       ActionPrefix = "LOGIC"
	PrefixPerformance ActionPrefix = "PERFORMANCE"
)

// Valid reports whether p is a known prefix.
func (p ActionPrefix) Valid() bool {
	switch p {
	case PrefixData, PrefixLogic, PrefixPerformance:
		return true
	}
	return false
}

// DataAction values are combined with PrefixData.
type DataAction string

const (
	Read         DataAction = "READ"
	Write        DataAction = "WRITE"
	Delete       DataAction = "DELETE"
	SearchResult DataAction = "SEARCH_RESULT"
)

// Pre-built DATA actions.
var (
	DataRead         = Action(PrefixData, string(Read))
	DataWrite        = Action(PrefixData, string(Write))
	DataDelete       = Action(PrefixData, string(Delete))
	DataSearchResult = Action(PrefixData, string(SearchResult))
)

// Action joins a prefix and value as "PREFIX.VALUE".
func Action(prefix ActionPrefix, value string) string {
	return string(prefix) + "." + value
}

// ParseAction splits an action on its first '.' and checks the prefix.
func ParseAction(s string) (ActionPrefix, string, error) {
	p, value, ok := strings.Cut(s, ".")
	if !ok || value == "" {
		return "", "", &model.FormatError{Input: s, Reason: "expected PREFIX.VALUE"}
	}
	prefix := ActionPrefix(p)
	if !prefix.Valid() {
		return "", "", &model.FormatError{Input: s, Reason: "unknown action prefix " + p}
	}
	return prefix, value, nil
}
