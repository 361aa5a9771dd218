package service

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/app/repository"
	"github.com/ikkim/fleetverify-backend/internal/scoring"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	// factors below this raw score get a specific hint
	weakFactorThreshold = 0.7

	exportSheet    = "Review Queue"
	exportPageSize = 100
)

var factorGuidance = map[scoring.Factor]string{
	scoring.FactorOCRAccuracy:           "Document text could not be read reliably. Ask the driver to re-upload clear, well-lit scans without glare or cropping.",
	scoring.FactorFaceMatch:             "The passport photo does not convincingly match the licence photo. Request a new passport photo or compare them by hand.",
	scoring.FactorValidationConsistency: "Details on the documents disagree with the submitted profile. Check name, licence number and date of birth for typos.",
}

type VerificationReport struct {
	Driver          model.Driver                `json:"driver"`
	Documents       []model.DriverDocument      `json:"documents"`
	Attempts        []model.VerificationAttempt `json:"attempts"`
	FaceMatches     []model.FacialVerification  `json:"face_matches"`
	LatestBreakdown scoring.Breakdown           `json:"latest_breakdown,omitempty"`
	Recommendations []string                    `json:"recommendations"`
	GeneratedAt     time.Time                   `json:"generated_at"`
}

type ReportService interface {
	GenerateReport(driverID uint) (*VerificationReport, error)
	ExportReviewQueue(w io.Writer, status model.VerificationStatus) error
}

type reportService struct {
	driverRepo   repository.DriverRepository
	documentRepo repository.DocumentRepository
	attemptRepo  repository.AttemptRepository
	faceRepo     repository.FacialVerificationRepository
}

func NewReportService(
	driverRepo repository.DriverRepository,
	documentRepo repository.DocumentRepository,
	attemptRepo repository.AttemptRepository,
	faceRepo repository.FacialVerificationRepository,
) ReportService {
	return &reportService{
		driverRepo:   driverRepo,
		documentRepo: documentRepo,
		attemptRepo:  attemptRepo,
		faceRepo:     faceRepo,
	}
}

// GenerateReport replays the attempt log for one driver.
func (s *reportService) GenerateReport(driverID uint) (*VerificationReport, error) {
	driver, err := s.driverRepo.FindByID(driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}

	documents, err := s.documentRepo.FindByDriverID(driverID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.attemptRepo.FindByDriverID(driverID)
	if err != nil {
		return nil, err
	}
	faces, err := s.faceRepo.FindByDriverID(driverID)
	if err != nil {
		return nil, err
	}

	breakdown := latestBreakdown(attempts)

	report := &VerificationReport{
		Driver:          *driver,
		Documents:       documents,
		Attempts:        attempts,
		FaceMatches:     faces,
		LatestBreakdown: breakdown,
		Recommendations: Recommendations(driver.VerificationStatus, breakdown, driver.KycRetryCount),
		GeneratedAt:     time.Now().UTC(),
	}

	logger.Info("Verification report generated", map[string]interface{}{
		"driver_id":     driverID,
		"attempt_count": len(attempts),
		"status":        driver.VerificationStatus,
	})
	return report, nil
}

// latestBreakdown is the breakdown of the newest scored attempt. Manual and
// retry attempts carry none and are skipped.
func latestBreakdown(attempts []model.VerificationAttempt) scoring.Breakdown {
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].VerificationType != model.VerificationTypeComplete {
			continue
		}
		inputs, err := DecodeAttemptInputs(&attempts[i])
		if err != nil {
			logger.Warn("Skipping undecodable attempt snapshot", map[string]interface{}{
				"attempt_id": attempts[i].ID,
				"error":      err.Error(),
			})
			continue
		}
		if len(inputs.Breakdown) > 0 {
			return inputs.Breakdown
		}
	}
	return nil
}

// Recommendations turns a status and breakdown into reviewer/driver guidance.
func Recommendations(status model.VerificationStatus, breakdown scoring.Breakdown, kycRetryCount int) []string {
	var out []string

	switch status {
	case model.VerificationVerified:
		out = append(out, "Driver is verified. No further action is required.")
	case model.VerificationRequiresManualReview:
		out = append(out, "Score is borderline. A reviewer should compare the documents against the profile and approve or reject.")
	case model.VerificationPending:
		out = append(out, "Verification is pending. Wait for outstanding documents or re-run verification once they are uploaded.")
	case model.VerificationFailed:
		out = append(out, "Verification failed. Review the weak factors below before allowing a retry.")
	default:
		out = append(out, "Verification has not started. The driver needs to upload the required documents.")
	}

	if status != model.VerificationVerified {
		for _, f := range scoring.Factors {
			fs, ok := breakdown[f]
			if ok && fs.RawScore < weakFactorThreshold {
				out = append(out, factorGuidance[f])
			}
		}
	}

	if status == model.VerificationFailed && kycRetryCount >= 3 {
		out = append(out, "The driver has used all KYC retries. Ask them to contact support before resubmitting.")
	}
	return out
}

// ExportReviewQueue writes every driver in status as an xlsx sheet.
func (s *reportService) ExportReviewQueue(w io.Writer, status model.VerificationStatus) error {
	if status == "" {
		status = model.VerificationRequiresManualReview
	}

	var drivers []model.Driver
	for page := 1; ; page++ {
		batch, total, err := s.driverRepo.List(repository.DriverListOptions{Status: status, Page: page, PageSize: exportPageSize})
		if err != nil {
			return err
		}
		drivers = append(drivers, batch...)
		if len(batch) == 0 || int64(len(drivers)) >= total {
			break
		}
	}

	ids := make([]uint, 0, len(drivers))
	for _, d := range drivers {
		ids = append(ids, d.ID)
	}
	latest, err := s.attemptRepo.FindLatestByDriverIDs(ids)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := []interface{}{"Driver ID", "Name", "Email", "Phone", "Status", "Score", "OCR Accuracy", "Face Match", "Validation", "Last Attempt"}
	if err := f.SetSheetRow(exportSheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, d := range drivers {
		row := []interface{}{d.ID, d.FullName(), d.Email, d.Phone, string(d.VerificationStatus), d.CurrentScore(), "", "", "", ""}
		if a, ok := latest[d.ID]; ok {
			if inputs, err := DecodeAttemptInputs(&a); err == nil && len(inputs.Breakdown) > 0 {
				row[6] = inputs.Breakdown[scoring.FactorOCRAccuracy].RawScore
				row[7] = inputs.Breakdown[scoring.FactorFaceMatch].RawScore
				row[8] = inputs.Breakdown[scoring.FactorValidationConsistency].RawScore
			}
			row[9] = a.CreatedAt.UTC().Format(time.RFC3339)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	logger.Info("Review queue exported", map[string]interface{}{
		"status": status,
		"rows":   len(drivers),
	})
	return f.Write(w)
}
