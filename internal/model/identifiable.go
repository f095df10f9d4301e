package model

// Identifiable is implemented by every persisted record.
// K is the record's identity type: a composite key for cached artifacts,
// an int64 for auto-numbered rows.
type Identifiable[K comparable] interface {
	ID() K
}
