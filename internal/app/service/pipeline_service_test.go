package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/app/repository"
	"github.com/ikkim/fleetverify-backend/internal/db"
	"github.com/ikkim/fleetverify-backend/internal/scoring"
	"github.com/ikkim/fleetverify-backend/pkg/facematch"
	"github.com/ikkim/fleetverify-backend/pkg/ocr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memoryStore map[string][]byte

func (m memoryStore) Fetch(_ context.Context, key string) ([]byte, error) {
	data, ok := m[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

type fakeExtractor struct {
	results map[string]*ocr.Result
	err     error
}

func (f fakeExtractor) Extract(_ context.Context, _ []byte, documentType string) (*ocr.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[documentType]; ok {
		return r, nil
	}
	return nil, ocr.ErrExtractionFailed
}

type failingFaces struct{}

func (failingFaces) Name() string { return "failing" }
func (failingFaces) Compare(context.Context, []byte, []byte) (float64, error) {
	return 0, errors.New("provider unavailable")
}

func date(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func strPtr(s string) *string { return &s }

func seedVerifiableDriver(t *testing.T, testDB *gorm.DB) *model.Driver {
	d := &model.Driver{
		FirstName:     "Chidi",
		LastName:      "Okafor",
		Email:         "pipeline@example.com",
		Phone:         "08035550000",
		LicenseNumber: strPtr("ABC12345DE"),
		DateOfBirth:   date("1990-04-12"),
	}
	require.NoError(t, testDB.Create(d).Error)

	for _, dt := range model.RequiredKycDocuments {
		require.NoError(t, testDB.Create(&model.DriverDocument{
			DriverID:     d.ID,
			DocumentType: dt,
			FileKey:      "drivers/1/" + string(dt),
			Status:       model.DocumentPending,
		}).Error)
	}
	return d
}

func newPipeline(testDB *gorm.DB, extractor TextExtractor, faces facematch.Provider) (PipelineService, VerificationService) {
	driverRepo := repository.NewDriverRepository(testDB)
	verification := NewVerificationService(testDB, driverRepo, repository.NewAttemptRepository(testDB), nil)
	store := memoryStore{
		"drivers/1/driver_license_scan": []byte("licence"),
		"drivers/1/national_id":         []byte("nin"),
		"drivers/1/passport_photo":      []byte("selfie"),
	}
	return NewPipelineService(
		driverRepo,
		repository.NewDocumentRepository(testDB),
		repository.NewFacialVerificationRepository(testDB),
		store,
		extractor,
		faces,
		verification,
		scoring.DefaultWeights(),
	), verification
}

func TestPipelineService_VerifyDriver(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	driver := seedVerifiableDriver(t, testDB)
	extractor := fakeExtractor{results: map[string]*ocr.Result{
		"driver_license_scan": {
			Provider:   "tesseract",
			Confidence: f64(0.9),
			Fields: map[string]string{
				ocr.FieldFullName:      "OKAFOR CHIDI",
				ocr.FieldLicenseNumber: "ABC-12345-DE",
				ocr.FieldDateOfBirth:   "1990-04-12",
			},
		},
		"national_id": {
			Provider:   "tesseract",
			Confidence: f64(0.95),
			Fields:     map[string]string{ocr.FieldDateOfBirth: "1990-04-12"},
		},
		"passport_photo": {Provider: "tesseract", Confidence: f64(0.9)},
	}}

	pipeline, verification := newPipeline(testDB, extractor, facematch.Static{Score: 0.95})
	res := pipeline.VerifyDriver(context.Background(), driver.ID, SystemActor(), RequestContext{})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 3, res.DocumentCount)
	assert.Equal(t, 0.95, res.FaceMatchScore)
	assert.Equal(t, model.VerificationVerified, res.Status)
	assert.InDelta(t, 1.0, res.Breakdown[scoring.FactorValidationConsistency].RawScore, 1e-9)

	latest, err := verification.GetLatestAttempt(driver.ID)
	require.NoError(t, err)
	inputs, err := DecodeAttemptInputs(latest)
	require.NoError(t, err)
	assert.Len(t, inputs.OCRResults, 3)
	assert.Equal(t, 0.95, inputs.FaceMatchScore)

	var doc model.DriverDocument
	require.NoError(t, testDB.Where("driver_id = ? AND document_type = ?", driver.ID, model.DocumentDriverLicenseScan).First(&doc).Error)
	assert.Equal(t, "tesseract", doc.OCRProvider)
	require.NotNil(t, doc.OCRConfidence)
	assert.Equal(t, 0.9, *doc.OCRConfidence)

	faces, err := repository.NewFacialVerificationRepository(testDB).FindByDriverID(driver.ID)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.True(t, faces[0].Passed)
}

func TestPipelineService_DegradesOnProviderFailures(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	driver := seedVerifiableDriver(t, testDB)
	pipeline, _ := newPipeline(testDB, fakeExtractor{err: ocr.ErrNoProvider}, failingFaces{})

	res := pipeline.VerifyDriver(context.Background(), driver.ID, SystemActor(), RequestContext{})
	require.True(t, res.Success, res.Message)

	// neutral OCR and face, no cross-checkable fields
	assert.InDelta(t, 0.5, res.Breakdown[scoring.FactorOCRAccuracy].RawScore, 1e-9)
	assert.InDelta(t, 0.5, res.Breakdown[scoring.FactorFaceMatch].RawScore, 1e-9)
	assert.Zero(t, res.Breakdown[scoring.FactorValidationConsistency].RawScore)
	assert.Equal(t, 40.0, res.Score)
	assert.Equal(t, model.VerificationFailed, res.Status)

	faces, err := repository.NewFacialVerificationRepository(testDB).FindByDriverID(driver.ID)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.False(t, faces[0].Passed)
	assert.Equal(t, "provider unavailable", faces[0].Error)
}

func TestPipelineService_RequiresDocuments(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	driver := createDriver(t, testDB, "nodocs@example.com", "08035550001")
	pipeline, _ := newPipeline(testDB, fakeExtractor{}, facematch.Static{Score: 1})

	res := pipeline.VerifyDriver(context.Background(), driver.ID, SystemActor(), RequestContext{})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, ErrNoDocuments)

	res = pipeline.VerifyDriver(context.Background(), 404, SystemActor(), RequestContext{})
	assert.ErrorIs(t, res.Err, ErrDriverNotFound)
}

func TestFieldValidator_Validate(t *testing.T) {
	driver := &model.Driver{
		FirstName:     "Amaka",
		LastName:      "Nwosu",
		LicenseNumber: strPtr("LAG-778899"),
		DateOfBirth:   date("1988-11-02"),
	}
	docs := map[string]scoring.OCRDocument{
		"driver_license_scan": {Fields: map[string]string{
			ocr.FieldFullName:      "NWOSU AMAKA",
			ocr.FieldLicenseNumber: "LAG778899",
			ocr.FieldDateOfBirth:   "1988-11-03",
		}},
		"national_id": {Fields: map[string]string{
			ocr.FieldFullName: "AMAKA NWOSUU",
		}},
		"passport_photo": {},
	}

	got := NewFieldValidator().Validate(driver, docs)
	require.Len(t, got.Scores, 4)
	assert.Equal(t, 1.0, got.Fields["full_name:driver_license_scan"])
	assert.Equal(t, 1.0, got.Fields["license_number:driver_license_scan"])
	assert.Equal(t, 0.0, got.Fields["date_of_birth:driver_license_scan"])
	assert.Greater(t, got.Fields["full_name:national_id"], 0.9)

	// scores follow sorted field keys
	assert.Equal(t, got.Fields["date_of_birth:driver_license_scan"], got.Scores[0])
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, NameSimilarity("Chidi Okafor", "OKAFOR, CHIDI"))
	assert.Equal(t, 0.0, NameSimilarity("", "Chidi"))
	assert.Less(t, NameSimilarity("Chidi Okafor", "Bola Adeyemi"), 0.5)
}

func TestLatestActiveDocuments(t *testing.T) {
	docs := []model.DriverDocument{
		{ID: 1, DocumentType: model.DocumentNationalID, FileKey: "nin-1", Status: model.DocumentSuperseded},
		{ID: 2, DocumentType: model.DocumentNationalID, FileKey: "nin-2", Status: model.DocumentPending},
		{ID: 3, DocumentType: model.DocumentPassportPhoto, FileKey: "photo-2", Status: model.DocumentRejected},
		{ID: 4, DocumentType: model.DocumentDriverLicenseScan, FileKey: "lic-1", Status: model.DocumentVerified},
		{ID: 5, DocumentType: model.DocumentDriverLicenseScan, FileKey: "lic-0", Status: model.DocumentPending},
	}

	got := latestActiveDocuments(docs)
	keys := make([]string, 0, len(got))
	for _, d := range got {
		keys = append(keys, d.FileKey)
	}
	assert.ElementsMatch(t, []string{"nin-2", "lic-0"}, keys)
}
