package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/integrator/internal/artifact"
	"github.com/roach88/integrator/internal/imaging"
	"github.com/roach88/integrator/internal/key"
	"github.com/roach88/integrator/internal/model"
	"github.com/roach88/integrator/internal/testutil"
)

func TestDocument_PutGet(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	k := key.New(3, 41)

	require.NoError(t, s.PutDocument(ctx, artifact.CachedDocument{Key: k, Contents: []byte("%PDF-1.4")}))

	got, err := s.GetDocument(ctx, k)
	require.NoError(t, err)
	assert.True(t, k.Equal(got.Key))
	assert.Equal(t, []byte("%PDF-1.4"), got.Contents)
}

func TestDocument_PutReplaces(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	k := key.New(3, 41)

	require.NoError(t, s.PutDocument(ctx, artifact.CachedDocument{Key: k, Contents: []byte("v1")}))
	require.NoError(t, s.PutDocument(ctx, artifact.CachedDocument{Key: k, Contents: []byte("v2")}))

	got, err := s.GetDocument(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got.Contents)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM cached_documents").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDocument_SameItemDifferentFacility(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.PutDocument(ctx, artifact.CachedDocument{Key: key.New(1, 7), Contents: []byte("a")}))
	require.NoError(t, s.PutDocument(ctx, artifact.CachedDocument{Key: key.New(2, 7), Contents: []byte("b")}))

	a, err := s.GetDocument(ctx, key.New(1, 7))
	require.NoError(t, err)
	b, err := s.GetDocument(ctx, key.New(2, 7))
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), a.Contents)
	assert.Equal(t, []byte("b"), b.Contents)
}

func TestDocument_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetDocument(context.Background(), key.New(9, 9))
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))

	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, artifact.KindDocument, nf.Kind)
	assert.Equal(t, "9:9", nf.Key)
}

func TestDocument_PutRejectsUnsetKey(t *testing.T) {
	s := createTestStore(t)

	err := s.PutDocument(context.Background(), artifact.CachedDocument{Contents: []byte("x")})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestImage_PutGetPreservesTimestamp(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	k := key.New(1, 2)
	ts := time.Date(2024, 3, 9, 10, 11, 12, 13, time.UTC)

	require.NoError(t, s.PutImage(ctx, artifact.CachedImage{Key: k, Image: []byte{0xff, 0xd8}, UpdatedAt: ts}))

	got, err := s.GetImage(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, got.Image)
	assert.True(t, ts.Equal(got.UpdatedAt), "got %v", got.UpdatedAt)
	assert.Equal(t, time.UTC, got.UpdatedAt.Location())
}

func TestImage_ZeroTimestampStoredAsNull(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	k := key.New(1, 2)

	require.NoError(t, s.PutImage(ctx, artifact.CachedImage{Key: k, Image: []byte{1}}))

	got, err := s.GetImage(ctx, k)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.IsZero())
}

func TestImage_NotFound(t *testing.T) {
	_, err := createTestStore(t).GetImage(context.Background(), key.New(1, 1))
	assert.True(t, model.IsNotFound(err))
}

func TestImage_ServiceNormalizesBeforeStoring(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	clock := testutil.NewDeterministicClock()
	svc := artifact.NewImages(s, artifact.Options{Now: clock.Now})
	k := key.New(4, 5)

	stored, err := svc.Put(ctx, k, pngBytes(t, 800, 400))
	require.NoError(t, err)

	got, err := s.GetImage(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, stored.Image, got.Image)
	assert.True(t, testutil.Epoch.Equal(got.UpdatedAt))

	info, err := imaging.Inspect(got.Image)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", info.Format)
	assert.Equal(t, 200, info.Width)
	assert.Equal(t, 100, info.Height)
}

func TestLabResult_PutGet(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	k := key.New(2, "LAB-0001")
	in := artifact.CachedLabResult{Key: k, LocalPatientID: 77, Type: "HL7", Data: "MSH|^~\\&|"}

	require.NoError(t, s.PutLabResult(ctx, in))

	got, err := s.GetLabResult(ctx, k)
	require.NoError(t, err)
	assert.True(t, k.Equal(got.Key))
	assert.Equal(t, 77, got.LocalPatientID)
	assert.Equal(t, "HL7", got.Type)
	assert.Equal(t, "MSH|^~\\&|", got.Data)
}

func TestLabResult_NotFound(t *testing.T) {
	_, err := createTestStore(t).GetLabResult(context.Background(), key.New(2, "nope"))
	require.Error(t, err)

	var nf *model.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, artifact.KindLabResult, nf.Kind)
	assert.Equal(t, "2:nope", nf.Key)
}

func TestLabResult_ByPatient(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, l := range []artifact.CachedLabResult{
		{Key: key.New(2, "b"), LocalPatientID: 10, Type: "XML"},
		{Key: key.New(1, "z"), LocalPatientID: 10, Type: "HL7"},
		{Key: key.New(1, "a"), LocalPatientID: 10, Type: "JSON"},
		{Key: key.New(1, "c"), LocalPatientID: 11, Type: "HL7"},
	} {
		require.NoError(t, s.PutLabResult(ctx, l))
	}

	got, err := s.LabResultsByPatient(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	var keys []string
	for _, l := range got {
		keys = append(keys, l.Key.String())
	}
	assert.Equal(t, []string{"1:a", "1:z", "2:b"}, keys)
}

func TestLabResult_ByPatientEmpty(t *testing.T) {
	got, err := createTestStore(t).LabResultsByPatient(context.Background(), 404)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLabResult_SchemaRejectsLongItemID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Exec(ctx, `
		INSERT INTO cached_lab_results (facility_id, item_id, local_patient_id)
		VALUES (1, '01234567890123456', 1)
	`)
	assert.Error(t, err)
}

func TestLabResult_ServiceOverStore(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	log := &recordingAuditor{}
	svc := artifact.NewLabResults(s, artifact.Options{TTL: time.Minute, Auditor: log, Source: "test"})

	require.NoError(t, svc.Put(ctx, artifact.CachedLabResult{Key: key.New(1, "x"), LocalPatientID: 5}))

	got, err := svc.FindByPatientID(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1:x", got[0].Key.String())
	assert.Len(t, log.actions, 2)
}

type recordingAuditor struct {
	actions []string
}

func (r *recordingAuditor) Record(_ context.Context, _, action, _ string) error {
	r.actions = append(r.actions, action)
	return nil
}
