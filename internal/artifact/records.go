package artifact

import (
	"time"
	"unicode/utf8"

	"github.com/roach88/integrator/internal/key"
	"github.com/roach88/integrator/internal/model"
)

const (
	// MaxLabTypeLen is the column width of a lab result type label.
	MaxLabTypeLen = 64
	// MaxImageBytes is the largest normalized image the store accepts.
	MaxImageBytes = 16 << 20
)

// Record kinds, used in errors and audit parameters.
const (
	KindDocument  = "cached_document"
	KindImage     = "cached_image"
	KindLabResult = "cached_lab_result"
)

// CachedDocument is a local copy of a remote document's contents.
type CachedDocument struct {
	Key      key.IntKey
	Contents []byte
}

// ID implements model.Identifiable.
func (d CachedDocument) ID() key.IntKey { return d.Key }

// Validate checks the record before it is stored.
func (d CachedDocument) Validate() error {
	return d.Key.Valid()
}

// CachedImage is a normalized photograph. Image always holds the output of
// imaging.Normalize, never the original upload.
type CachedImage struct {
	Key       key.IntKey
	Image     []byte
	UpdatedAt time.Time
}

// ID implements model.Identifiable.
func (i CachedImage) ID() key.IntKey { return i.Key }

// Validate checks the record before it is stored.
func (i CachedImage) Validate() error {
	if err := i.Key.Valid(); err != nil {
		return err
	}
	if len(i.Image) > MaxImageBytes {
		return model.NewValidationError("image", "%d bytes exceeds limit of %d", len(i.Image), MaxImageBytes)
	}
	return nil
}

// CachedLabResult is a lab result payload (HL7, XML or JSON) for one patient.
type CachedLabResult struct {
	Key            key.StringKey
	LocalPatientID int
	Type           string
	Data           string
}

// ID implements model.Identifiable.
func (l CachedLabResult) ID() key.StringKey { return l.Key }

// Validate checks the record before it is stored.
func (l CachedLabResult) Validate() error {
	if err := l.Key.Valid(); err != nil {
		return err
	}
	if utf8.RuneCountInString(l.Type) > MaxLabTypeLen {
		return model.NewValidationError("type", "longer than %d characters", MaxLabTypeLen)
	}
	return nil
}
