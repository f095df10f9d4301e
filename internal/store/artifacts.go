package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/roach88/integrator/internal/artifact"
	"github.com/roach88/integrator/internal/key"
	"github.com/roach88/integrator/internal/model"
)

// GetDocument returns the cached document for k.
// Returns model.NotFoundError if no row exists.
func (s *Store) GetDocument(ctx context.Context, k key.IntKey) (artifact.CachedDocument, error) {
	var contents []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT file_contents FROM cached_documents
		WHERE facility_id = ? AND item_id = ?
	`, k.FacilityID(), k.ItemID()).Scan(&contents)
	if errors.Is(err, sql.ErrNoRows) {
		return artifact.CachedDocument{}, &model.NotFoundError{Kind: artifact.KindDocument, Key: k.String()}
	}
	if err != nil {
		return artifact.CachedDocument{}, fmt.Errorf("get document: %w", err)
	}
	return artifact.CachedDocument{Key: k, Contents: contents}, nil
}

// PutDocument inserts or fully replaces the document row for d.Key.
func (s *Store) PutDocument(ctx context.Context, d artifact.CachedDocument) error {
	if err := d.Key.Valid(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cached_documents (facility_id, item_id, file_contents)
		VALUES (?, ?, ?)
		ON CONFLICT(facility_id, item_id) DO UPDATE SET
			file_contents = excluded.file_contents
	`, d.Key.FacilityID(), d.Key.ItemID(), d.Contents)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

// GetImage returns the cached image for k.
// Returns model.NotFoundError if no row exists.
func (s *Store) GetImage(ctx context.Context, k key.IntKey) (artifact.CachedImage, error) {
	var (
		img       []byte
		updatedAt sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT image, updated_at FROM cached_images
		WHERE facility_id = ? AND item_id = ?
	`, k.FacilityID(), k.ItemID()).Scan(&img, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return artifact.CachedImage{}, &model.NotFoundError{Kind: artifact.KindImage, Key: k.String()}
	}
	if err != nil {
		return artifact.CachedImage{}, fmt.Errorf("get image: %w", err)
	}
	out := artifact.CachedImage{Key: k, Image: img}
	if updatedAt.Valid {
		out.UpdatedAt = time.Unix(0, updatedAt.Int64).UTC()
	}
	return out, nil
}

// PutImage inserts or fully replaces the image row for img.Key.
func (s *Store) PutImage(ctx context.Context, img artifact.CachedImage) error {
	if err := img.Key.Valid(); err != nil {
		return err
	}
	var updatedAt sql.NullInt64
	if !img.UpdatedAt.IsZero() {
		updatedAt = sql.NullInt64{Int64: img.UpdatedAt.UnixNano(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cached_images (facility_id, item_id, image, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(facility_id, item_id) DO UPDATE SET
			image = excluded.image,
			updated_at = excluded.updated_at
	`, img.Key.FacilityID(), img.Key.ItemID(), img.Image, updatedAt)
	if err != nil {
		return fmt.Errorf("put image: %w", err)
	}
	return nil
}

// GetLabResult returns the cached lab result for k.
// Returns model.NotFoundError if no row exists.
func (s *Store) GetLabResult(ctx context.Context, k key.StringKey) (artifact.CachedLabResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT facility_id, item_id, local_patient_id, type, data
		FROM cached_lab_results
		WHERE facility_id = ? AND item_id = ?
	`, k.FacilityID(), k.ItemID())
	l, err := scanLabResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return artifact.CachedLabResult{}, &model.NotFoundError{Kind: artifact.KindLabResult, Key: k.String()}
	}
	if err != nil {
		return artifact.CachedLabResult{}, fmt.Errorf("get lab result: %w", err)
	}
	return l, nil
}

// PutLabResult inserts or fully replaces the lab result row for l.Key.
func (s *Store) PutLabResult(ctx context.Context, l artifact.CachedLabResult) error {
	if err := l.Key.Valid(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cached_lab_results (facility_id, item_id, local_patient_id, type, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(facility_id, item_id) DO UPDATE SET
			local_patient_id = excluded.local_patient_id,
			type = excluded.type,
			data = excluded.data
	`, l.Key.FacilityID(), l.Key.ItemID(), l.LocalPatientID, nullString(l.Type), nullString(l.Data))
	if err != nil {
		return fmt.Errorf("put lab result: %w", err)
	}
	return nil
}

// LabResultsByPatient returns every lab result for a local patient id via
// the patient index, ordered by canonical key.
// Returns an empty slice (not nil) when the patient has none.
func (s *Store) LabResultsByPatient(ctx context.Context, localPatientID int) ([]artifact.CachedLabResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT facility_id, item_id, local_patient_id, type, data
		FROM cached_lab_results
		WHERE local_patient_id = ?
	`, localPatientID)
	if err != nil {
		return nil, fmt.Errorf("query lab results: %w", err)
	}
	defer rows.Close()

	results := []artifact.CachedLabResult{}
	for rows.Next() {
		l, err := scanLabResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lab result: %w", err)
		}
		results = append(results, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lab results: %w", err)
	}

	sortLabResults(results)
	return results, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLabResult(row rowScanner) (artifact.CachedLabResult, error) {
	var (
		facilityID, patientID int
		itemID                string
		typ, data             sql.NullString
	)
	if err := row.Scan(&facilityID, &itemID, &patientID, &typ, &data); err != nil {
		return artifact.CachedLabResult{}, err
	}
	return artifact.CachedLabResult{
		Key:            key.New(facilityID, itemID),
		LocalPatientID: patientID,
		Type:           typ.String,
		Data:           data.String,
	}, nil
}

func sortLabResults(results []artifact.CachedLabResult) {
	slices.SortFunc(results, func(a, b artifact.CachedLabResult) int {
		return a.Key.Compare(b.Key)
	})
}
