package issue

import (
	"fmt"

	"github.com/roach88/integrator/internal/model"
)

// CodingSystem is a supported medical classification scheme.
type CodingSystem int

const (
	ICD9 CodingSystem = iota + 1
	ICD10
	SNOMED
	SNOMEDCore
	Drug
	Prevention
	CustomIssue
	System
)

// names are the wire names. They are part of the stored format and must
// never be renamed.
var names = map[CodingSystem]string{
	ICD9:        "ICD9",
	ICD10:       "ICD10",
	SNOMED:      "SNOMED",
	SNOMEDCore:  "SNOMED_CORE",
	Drug:        "DRUG",
	Prevention:  "PREVENTION",
	CustomIssue: "CUSTOM_ISSUE",
	System:      "SYSTEM",
}

var byName = func() map[string]CodingSystem {
	m := make(map[string]CodingSystem, len(names))
	for cs, n := range names {
		m[n] = cs
	}
	return m
}()

// CodingSystems returns every supported system in declaration order.
func CodingSystems() []CodingSystem {
	return []CodingSystem{ICD9, ICD10, SNOMED, SNOMEDCore, Drug, Prevention, CustomIssue, System}
}

// String returns the wire name.
func (cs CodingSystem) String() string {
	if n, ok := names[cs]; ok {
		return n
	}
	return fmt.Sprintf("CodingSystem(%d)", int(cs))
}

// Valid reports whether cs is one of the supported systems.
func (cs CodingSystem) Valid() bool {
	_, ok := names[cs]
	return ok
}

// ParseCodingSystem resolves a wire name. Matching is exact (case-sensitive).
func ParseCodingSystem(name string) (CodingSystem, error) {
	cs, ok := byName[name]
	if !ok {
		return 0, &model.FormatError{Input: name, Reason: "unknown coding system"}
	}
	return cs, nil
}

// MarshalText implements encoding.TextMarshaler.
func (cs CodingSystem) MarshalText() ([]byte, error) {
	if !cs.Valid() {
		return nil, fmt.Errorf("marshal coding system: invalid value %d", int(cs))
	}
	return []byte(cs.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (cs *CodingSystem) UnmarshalText(b []byte) error {
	v, err := ParseCodingSystem(string(b))
	if err != nil {
		return err
	}
	*cs = v
	return nil
}
