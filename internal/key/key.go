package key

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/integrator/internal/model"
)

// MaxStringItemLen is the column width of a string item id.
const MaxStringItemLen = 16

// ItemID constrains the item half of a composite key.
type ItemID interface {
	~int | ~string
}

// Key identifies an item within a remote facility's namespace.
//
// Keys are values: once built they never change, and they are safe to use
// as map keys (identity is both fields). The zero Key is "unset": it can be
// passed around, but Equal reports false for it, Compare panics, and stores
// refuse to persist it.
type Key[T ItemID] struct {
	facilityID int
	itemID     T
	set        bool
}

// IntKey is a facility key whose item id is an integer (documents, images).
type IntKey = Key[int]

// StringKey is a facility key whose item id is a string (lab results).
type StringKey = Key[string]

// New builds a key. It never fails; see Valid for the persistence rules.
func New[T ItemID](facilityID int, itemID T) Key[T] {
	return Key[T]{facilityID: facilityID, itemID: itemID, set: true}
}

// FacilityID returns the remote facility identifier.
func (k Key[T]) FacilityID() int { return k.facilityID }

// ItemID returns the facility-local item identifier.
func (k Key[T]) ItemID() T { return k.itemID }

// IsSet reports whether the key was built with New.
func (k Key[T]) IsSet() bool { return k.set }

// String returns the canonical form "{facility}:{item}".
// An unset key renders as "null:null".
func (k Key[T]) String() string {
	if !k.set {
		return "null:null"
	}
	return fmt.Sprintf("%d:%v", k.facilityID, k.itemID)
}

// Equal compares both fields. An unset key is never equal to anything,
// including another unset key.
func (k Key[T]) Equal(other Key[T]) bool {
	if !k.set || !other.set {
		return false
	}
	return k.facilityID == other.facilityID && k.itemID == other.itemID
}

// Hash returns a 64-bit hash of the canonical form.
func (k Key[T]) Hash() uint64 {
	return xxhash.Sum64String(k.String())
}

// Compare orders keys lexicographically by canonical form, so "1:10"
// sorts before "1:9". Panics if either key is unset.
func (k Key[T]) Compare(other Key[T]) int {
	if !k.set || !other.set {
		panic("key: compare on unset composite key")
	}
	return strings.Compare(k.String(), other.String())
}

// Valid reports whether the key may be persisted.
func (k Key[T]) Valid() error {
	if !k.set {
		return model.NewValidationError("key", "composite key is unset")
	}
	if s, ok := any(k.itemID).(string); ok {
		if s == "" {
			return model.NewValidationError("key.item_id", "must not be empty")
		}
		if utf8.RuneCountInString(s) > MaxStringItemLen {
			return model.NewValidationError("key.item_id", "longer than %d characters", MaxStringItemLen)
		}
	}
	return nil
}

// ParseInt parses the canonical form of an IntKey.
func ParseInt(s string) (IntKey, error) {
	facility, item, err := split(s)
	if err != nil {
		return IntKey{}, err
	}
	itemID, err := strconv.Atoi(item)
	if err != nil {
		return IntKey{}, &model.FormatError{Input: s, Reason: "item id is not an integer"}
	}
	return New(facility, itemID), nil
}

// ParseString parses the canonical form of a StringKey.
// Everything after the first ':' is the item id.
func ParseString(s string) (StringKey, error) {
	facility, item, err := split(s)
	if err != nil {
		return StringKey{}, err
	}
	return New(facility, item), nil
}

func split(s string) (int, string, error) {
	facility, item, ok := strings.Cut(s, ":")
	if !ok {
		return 0, "", &model.FormatError{Input: s, Reason: "expected FACILITY:ITEM"}
	}
	facilityID, err := strconv.Atoi(facility)
	if err != nil {
		return 0, "", &model.FormatError{Input: s, Reason: "facility id is not an integer"}
	}
	return facilityID, item, nil
}

// Sort orders keys in place by Compare.
func Sort[T ItemID](keys []Key[T]) {
	slices.SortFunc(keys, func(a, b Key[T]) int { return a.Compare(b) })
}
