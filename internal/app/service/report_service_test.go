package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/app/repository"
	"github.com/ikkim/fleetverify-backend/internal/db"
	"github.com/ikkim/fleetverify-backend/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func newReportService(testDB *gorm.DB) ReportService {
	return NewReportService(
		repository.NewDriverRepository(testDB),
		repository.NewDocumentRepository(testDB),
		repository.NewAttemptRepository(testDB),
		repository.NewFacialVerificationRepository(testDB),
	)
}

func TestReportService_GenerateReport(t *testing.T) {
	fx := setupVerificationService(t)
	defer db.CleanupTestDB(fx.db)

	driver := createDriver(t, fx.db, "report@example.com", "08037770000")
	require.NoError(t, fx.db.Create(&model.DriverDocument{DriverID: driver.ID, DocumentType: model.DocumentNationalID, FileKey: "k"}).Error)
	require.NoError(t, fx.db.Create(&model.FacialVerification{DriverID: driver.ID, Provider: "static", MatchScore: 0.4}).Error)

	ctx := context.Background()
	ocr := map[string]scoring.OCRDocument{"national_id": {Confidence: f64(0.6)}}
	validation := scoring.ValidationResults{Scores: []float64{0.9}}
	in := SaveResultsInput{
		DriverID:          driver.ID,
		Result:            scoring.Calculate(ocr, 0.4, validation, scoring.Weights{}),
		OCRResults:        ocr,
		FaceMatchScore:    0.4,
		ValidationResults: validation,
		Actor:             SystemActor(),
	}
	require.True(t, fx.svc.SaveResults(ctx, in).Success)
	require.True(t, fx.svc.RejectVerification(ctx, driver.ID, RejectRequest{RejectionReason: "face mismatch"}, AdminActor(1, "Ops"), RequestContext{}).Success)

	report, err := newReportService(fx.db).GenerateReport(driver.ID)
	require.NoError(t, err)

	assert.Equal(t, driver.ID, report.Driver.ID)
	assert.Len(t, report.Documents, 1)
	assert.Len(t, report.FaceMatches, 1)
	require.Len(t, report.Attempts, 2)
	assert.Equal(t, model.VerificationTypeComplete, report.Attempts[0].VerificationType)
	assert.Equal(t, model.VerificationTypeManualRejection, report.Attempts[1].VerificationType)

	// breakdown comes from the scored attempt, not the manual rejection
	require.NotNil(t, report.LatestBreakdown)
	assert.InDelta(t, 0.6, report.LatestBreakdown[scoring.FactorOCRAccuracy].RawScore, 1e-9)

	assert.Contains(t, report.Recommendations, factorGuidance[scoring.FactorOCRAccuracy])
	assert.Contains(t, report.Recommendations, factorGuidance[scoring.FactorFaceMatch])
	assert.NotContains(t, report.Recommendations, factorGuidance[scoring.FactorValidationConsistency])

	_, err = newReportService(fx.db).GenerateReport(12345)
	assert.ErrorIs(t, err, ErrDriverNotFound)
}

func TestRecommendations(t *testing.T) {
	weak := scoring.Breakdown{
		scoring.FactorOCRAccuracy:           {RawScore: 0.95},
		scoring.FactorFaceMatch:             {RawScore: 0.5},
		scoring.FactorValidationConsistency: {RawScore: 0.69},
	}

	tests := []struct {
		name     string
		status   model.VerificationStatus
		retries  int
		expected int
		contains string
	}{
		{name: "verified has headline only", status: model.VerificationVerified, expected: 1, contains: "verified"},
		{name: "review lists weak factors", status: model.VerificationRequiresManualReview, expected: 3, contains: "borderline"},
		{name: "failed under retry limit", status: model.VerificationFailed, retries: 2, expected: 3, contains: "failed"},
		{name: "failed at retry limit adds support", status: model.VerificationFailed, retries: 3, expected: 4, contains: "contact support"},
		{name: "not started", status: model.VerificationNotStarted, expected: 3, contains: "not started"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommendations(tt.status, weak, tt.retries)
			assert.Len(t, got, tt.expected)

			found := false
			for _, r := range got {
				if bytes.Contains([]byte(r), []byte(tt.contains)) {
					found = true
				}
			}
			assert.True(t, found, "expected a recommendation containing %q in %v", tt.contains, got)
		})
	}

	assert.Len(t, Recommendations(model.VerificationPending, nil, 0), 1)
}

func TestReportService_ExportReviewQueue(t *testing.T) {
	fx := setupVerificationService(t)
	defer db.CleanupTestDB(fx.db)

	a := createDriver(t, fx.db, "x-a@example.com", "08037770010")
	createDriver(t, fx.db, "x-b@example.com", "08037770011")

	ocr := map[string]scoring.OCRDocument{"national_id": {Confidence: f64(0.75)}}
	validation := scoring.ValidationResults{Scores: []float64{0.75}}
	require.True(t, fx.svc.SaveResults(context.Background(), SaveResultsInput{
		DriverID:          a.ID,
		Result:            scoring.Calculate(ocr, 0.75, validation, scoring.Weights{}),
		OCRResults:        ocr,
		FaceMatchScore:    0.75,
		ValidationResults: validation,
		Actor:             SystemActor(),
	}).Success)

	var buf bytes.Buffer
	require.NoError(t, newReportService(fx.db).ExportReviewQueue(&buf, ""))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Driver ID", rows[0][0])
	assert.Equal(t, "Chidi Okafor", rows[1][1])
	assert.Equal(t, "requires_manual_review", rows[1][4])
	assert.Equal(t, "75", rows[1][5])
}
