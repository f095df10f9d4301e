package artifact

import (
	"context"
	"fmt"

	"github.com/roach88/integrator/internal/key"
)

// LabResultBackend persists cached lab results and indexes them by patient.
type LabResultBackend interface {
	GetLabResult(ctx context.Context, k key.StringKey) (CachedLabResult, error)
	PutLabResult(ctx context.Context, l CachedLabResult) error
	LabResultsByPatient(ctx context.Context, localPatientID int) ([]CachedLabResult, error)
}

func (l CachedLabResult) clone() CachedLabResult { return l }

// LabResults caches remote lab results.
type LabResults struct {
	backend LabResultBackend
	memo    *memo[key.StringKey, CachedLabResult]
	audit   auditing
}

// NewLabResults creates the lab result service.
func NewLabResults(backend LabResultBackend, opts Options) *LabResults {
	opts = opts.withDefaults()
	return &LabResults{
		backend: backend,
		memo:    newMemo[key.StringKey, CachedLabResult](opts),
		audit:   auditing{auditor: opts.Auditor, source: opts.Source},
	}
}

// Get returns the lab result cached for k.
func (s *LabResults) Get(ctx context.Context, k key.StringKey) (CachedLabResult, error) {
	if err := k.Valid(); err != nil {
		return CachedLabResult{}, err
	}
	l, err := s.memo.read(ctx, k, s.backend.GetLabResult)
	if err != nil {
		return CachedLabResult{}, err
	}
	s.audit.read(ctx, KindLabResult, k)
	return l, nil
}

// Put stores l, replacing whatever was cached under its key.
func (s *LabResults) Put(ctx context.Context, l CachedLabResult) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if err := s.memo.write(ctx, l.Key, l, s.backend.PutLabResult); err != nil {
		return fmt.Errorf("put lab result %s: %w", l.Key, err)
	}
	return s.audit.write(ctx, KindLabResult, l.Key)
}

// FindByPatientID returns every cached lab result for a facility-local
// patient, ordered by key. It always queries the backend.
func (s *LabResults) FindByPatientID(ctx context.Context, localPatientID int) ([]CachedLabResult, error) {
	results, err := s.backend.LabResultsByPatient(ctx, localPatientID)
	if err != nil {
		return nil, fmt.Errorf("find lab results for patient %d: %w", localPatientID, err)
	}
	s.audit.search(ctx, KindLabResult, fmt.Sprintf("patient=%d count=%d", localPatientID, len(results)))
	return results, nil
}
