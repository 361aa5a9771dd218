package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/app/repository"
	"github.com/ikkim/fleetverify-backend/internal/scoring"
	"github.com/ikkim/fleetverify-backend/pkg/events"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDriverNotFound          = errors.New("driver not found")
	ErrRetryNotAllowed         = errors.New("retry is only allowed after a failed verification")
	ErrRejectionReasonRequired = errors.New("rejection reason is required")
	ErrInvalidOverrideScore    = errors.New("override score must be between 0 and 100")
	ErrAttemptNotFound         = errors.New("verification attempt not found")
)

const (
	// BulkApproveScore is the score recorded for every driver in a bulk approval.
	BulkApproveScore = 85.0

	defaultBulkApproveNotes = "Bulk approved"
)

// WorkflowResult is returned by every state-changing verification operation.
type WorkflowResult struct {
	Success  bool                     `json:"success"`
	Message  string                   `json:"message"`
	LogID    uint                     `json:"log_id,omitempty"`
	DriverID uint                     `json:"driver_id"`
	Status   model.VerificationStatus `json:"status,omitempty"`
	Score    float64                  `json:"score"`
	Err      error                    `json:"-"`
}

type BulkResult struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []*WorkflowResult `json:"results"`
}

// SaveResultsInput is one scored pipeline run ready to be persisted.
type SaveResultsInput struct {
	DriverID          uint
	Result            scoring.Result
	OCRResults        map[string]scoring.OCRDocument
	FaceMatchScore    float64
	ValidationResults scoring.ValidationResults
	Notes             string
	Actor             Actor
	Request           RequestContext
}

type ApproveRequest struct {
	Notes         string   `json:"notes"`
	OverrideScore *float64 `json:"override_score"`
}

type RejectRequest struct {
	RejectionReason string `json:"rejection_reason"`
}

type VerificationService interface {
	SaveResults(ctx context.Context, in SaveResultsInput) *WorkflowResult
	ApproveVerification(ctx context.Context, driverID uint, req ApproveRequest, actor Actor, rc RequestContext) *WorkflowResult
	RejectVerification(ctx context.Context, driverID uint, req RejectRequest, actor Actor, rc RequestContext) *WorkflowResult
	BulkApproveVerifications(ctx context.Context, driverIDs []uint, notes string, actor Actor, rc RequestContext) *BulkResult
	RetryVerification(ctx context.Context, driverID uint, actor Actor, rc RequestContext) *WorkflowResult
	GetAttempts(driverID uint) ([]model.VerificationAttempt, error)
	GetLatestAttempt(driverID uint) (*model.VerificationAttempt, error)
	ListReviewQueue(status model.VerificationStatus, page, pageSize int) ([]model.Driver, int64, error)
}

type verificationService struct {
	db          *gorm.DB
	driverRepo  repository.DriverRepository
	attemptRepo repository.AttemptRepository
	publisher   events.Publisher
	now         func() time.Time
}

func NewVerificationService(
	db *gorm.DB,
	driverRepo repository.DriverRepository,
	attemptRepo repository.AttemptRepository,
	publisher events.Publisher,
) VerificationService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &verificationService{
		db:          db,
		driverRepo:  driverRepo,
		attemptRepo: attemptRepo,
		publisher:   publisher,
		now:         time.Now,
	}
}

// transition is what one workflow operation writes for a locked driver.
type transition struct {
	attempt     *model.VerificationAttempt
	updates     map[string]interface{}
	action      string
	description string
	eventType   string
	failMessage string
}

func (s *verificationService) SaveResults(ctx context.Context, in SaveResultsInput) *WorkflowResult {
	score := in.Result.Score
	status := scoring.Classify(score)

	logger.Info("Saving verification results", map[string]interface{}{
		"driver_id": in.DriverID,
		"score":     score,
		"status":    status,
	})

	// the snapshot stores the values the engine actually scored with
	ocrResults, faceMatch, validation := scoring.Normalize(in.OCRResults, in.FaceMatchScore, in.ValidationResults)
	return s.apply(ctx, in.DriverID, in.Actor, in.Request, func(driver *model.Driver, now time.Time) (*transition, error) {
		ocrJSON, err := toJSON(ocrResults)
		if err != nil {
			return nil, fmt.Errorf("encode ocr results: %w", err)
		}
		validationJSON, err := toJSON(validation)
		if err != nil {
			return nil, fmt.Errorf("encode validation results: %w", err)
		}
		breakdownJSON, err := toJSON(in.Result.Breakdown)
		if err != nil {
			return nil, fmt.Errorf("encode score breakdown: %w", err)
		}
		return &transition{
			attempt: &model.VerificationAttempt{
				VerificationType:   model.VerificationTypeComplete,
				Status:             model.AttemptCompleted,
				OCRResults:         ocrJSON,
				FaceMatchScore:     &faceMatch,
				ValidationResults:  validationJSON,
				OverallScore:       score,
				VerificationStatus: status,
				Breakdown:          breakdownJSON,
				Notes:              in.Notes,
			},
			updates: map[string]interface{}{
				"verification_status":        status,
				"overall_verification_score": score,
				"verification_completed_at":  now,
			},
			action:      model.ActivityVerificationCompleted,
			description: fmt.Sprintf("Verification completed with score %.2f (%s)", score, status),
			eventType:   events.TypeVerificationCompleted,
			failMessage: "Failed to save verification results",
		}, nil
	})
}

func (s *verificationService) ApproveVerification(ctx context.Context, driverID uint, req ApproveRequest, actor Actor, rc RequestContext) *WorkflowResult {
	if req.OverrideScore != nil {
		v := *req.OverrideScore
		if math.IsNaN(v) || v < 0 || v > 100 {
			return failure(driverID, ErrInvalidOverrideScore, ErrInvalidOverrideScore.Error())
		}
	}

	logger.Info("Approving verification", map[string]interface{}{
		"driver_id":      driverID,
		"actor":          actor.Name,
		"override_score": req.OverrideScore,
	})

	return s.apply(ctx, driverID, actor, rc, func(driver *model.Driver, now time.Time) (*transition, error) {
		score := driver.CurrentScore()
		if req.OverrideScore != nil {
			score = *req.OverrideScore
		}
		return &transition{
			attempt: &model.VerificationAttempt{
				VerificationType:   model.VerificationTypeManualApproval,
				Status:             model.AttemptCompleted,
				OverallScore:       score,
				VerificationStatus: model.VerificationVerified,
				Notes:              req.Notes,
			},
			updates: map[string]interface{}{
				"verification_status":        model.VerificationVerified,
				"overall_verification_score": score,
				"verification_completed_at":  now,
			},
			action:      model.ActivityVerificationApproved,
			description: fmt.Sprintf("Verification manually approved with score %.2f", score),
			eventType:   events.TypeVerificationApproved,
			failMessage: "Failed to approve verification",
		}, nil
	})
}

func (s *verificationService) RejectVerification(ctx context.Context, driverID uint, req RejectRequest, actor Actor, rc RequestContext) *WorkflowResult {
	reason := strings.TrimSpace(req.RejectionReason)
	if reason == "" {
		return failure(driverID, ErrRejectionReasonRequired, ErrRejectionReasonRequired.Error())
	}

	logger.Info("Rejecting verification", map[string]interface{}{
		"driver_id": driverID,
		"actor":     actor.Name,
	})

	return s.apply(ctx, driverID, actor, rc, func(driver *model.Driver, now time.Time) (*transition, error) {
		return &transition{
			attempt: &model.VerificationAttempt{
				VerificationType:   model.VerificationTypeManualRejection,
				Status:             model.AttemptCompleted,
				OverallScore:       0,
				VerificationStatus: model.VerificationFailed,
				Notes:              reason,
			},
			updates: map[string]interface{}{
				"verification_status":        model.VerificationFailed,
				"overall_verification_score": 0.0,
				"verification_completed_at":  now,
			},
			action:      model.ActivityVerificationRejected,
			description: "Verification manually rejected: " + reason,
			eventType:   events.TypeVerificationRejected,
			failMessage: "Failed to reject verification",
		}, nil
	})
}

// BulkApproveVerifications approves each driver in its own transaction; one failure does not stop the rest.
func (s *verificationService) BulkApproveVerifications(ctx context.Context, driverIDs []uint, notes string, actor Actor, rc RequestContext) *BulkResult {
	if strings.TrimSpace(notes) == "" {
		notes = defaultBulkApproveNotes
	}

	result := &BulkResult{Total: len(driverIDs), Results: make([]*WorkflowResult, 0, len(driverIDs))}
	for _, id := range driverIDs {
		score := BulkApproveScore
		r := s.ApproveVerification(ctx, id, ApproveRequest{Notes: notes, OverrideScore: &score}, actor, rc)
		if r.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, r)
	}

	logger.Info("Bulk approval finished", map[string]interface{}{
		"total":     result.Total,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
		"actor":     actor.Name,
	})
	return result
}

func (s *verificationService) RetryVerification(ctx context.Context, driverID uint, actor Actor, rc RequestContext) *WorkflowResult {
	logger.Info("Retrying verification", map[string]interface{}{
		"driver_id": driverID,
		"actor":     actor.Name,
	})

	return s.apply(ctx, driverID, actor, rc, func(driver *model.Driver, now time.Time) (*transition, error) {
		if !driver.VerificationStatus.IsRetryable() {
			return nil, ErrRetryNotAllowed
		}
		return &transition{
			attempt: &model.VerificationAttempt{
				VerificationType:   model.VerificationTypeRetry,
				Status:             model.AttemptPending,
				OverallScore:       0,
				VerificationStatus: model.VerificationPending,
				Notes:              "Verification retry requested",
			},
			updates: map[string]interface{}{
				"verification_status":        model.VerificationPending,
				"overall_verification_score": nil,
			},
			action:      model.ActivityVerificationRetried,
			description: "Verification reset to pending for retry",
			eventType:   events.TypeVerificationRetried,
			failMessage: "Failed to retry verification",
		}, nil
	})
}

// apply locks the driver, appends the attempt, updates the projection and
// writes the activity log in one transaction.
func (s *verificationService) apply(
	ctx context.Context,
	driverID uint,
	actor Actor,
	rc RequestContext,
	build func(driver *model.Driver, now time.Time) (*transition, error),
) (result *WorkflowResult) {
	now := s.now().UTC()

	tx := s.db.Begin()
	if tx.Error != nil {
		logger.Error("Failed to begin verification transaction", tx.Error, map[string]interface{}{
			"driver_id": driverID,
		})
		return failure(driverID, tx.Error, "Failed to save verification results")
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err := fmt.Errorf("panic: %v", r)
			logger.Error("Panic during verification workflow, rolling back", err, map[string]interface{}{
				"driver_id": driverID,
			})
			result = failure(driverID, err, "Failed to save verification results")
		}
	}()

	var driver model.Driver
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&driver, driverID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Driver not found for verification workflow", map[string]interface{}{
				"driver_id": driverID,
			})
			return failure(driverID, ErrDriverNotFound, ErrDriverNotFound.Error())
		}
		logger.Error("Failed to lock driver", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return failure(driverID, err, "Failed to load driver")
	}

	t, err := build(&driver, now)
	if err != nil {
		tx.Rollback()
		logger.Warn("Verification workflow rejected", map[string]interface{}{
			"driver_id": driverID,
			"status":    driver.VerificationStatus,
			"error":     err.Error(),
		})
		return failure(driverID, err, err.Error())
	}

	attempt := t.attempt
	attempt.DriverID = driverID
	attempt.PerformedBy = actor.ID
	attempt.PerformedByName = actor.Name
	attempt.IPAddress = rc.IP
	attempt.UserAgent = rc.UserAgent
	attempt.PerformedAt = now

	if err := tx.Create(attempt).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to insert verification attempt", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return failure(driverID, err, t.failMessage)
	}

	if err := tx.Model(&model.Driver{}).Where("id = ?", driverID).Updates(t.updates).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to update driver verification projection", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return failure(driverID, err, t.failMessage)
	}

	activity, err := newActivity(t.action, driverID, actor, rc, t.description, map[string]interface{}{
		"attempt_id":        attempt.ID,
		"verification_type": attempt.VerificationType,
		"status":            attempt.VerificationStatus,
		"score":             attempt.OverallScore,
		"previous_status":   driver.VerificationStatus,
	})
	if err == nil {
		err = tx.Create(activity).Error
	}
	if err != nil {
		tx.Rollback()
		logger.Error("Failed to write verification activity log", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return failure(driverID, err, t.failMessage)
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit verification transaction", err, map[string]interface{}{
			"driver_id": driverID,
		})
		return failure(driverID, err, t.failMessage)
	}

	logger.Info("Verification workflow committed", map[string]interface{}{
		"driver_id":  driverID,
		"attempt_id": attempt.ID,
		"type":       attempt.VerificationType,
		"status":     attempt.VerificationStatus,
		"score":      attempt.OverallScore,
	})

	s.publish(ctx, t.eventType, attempt, actor)

	return &WorkflowResult{
		Success:  true,
		Message:  t.description,
		LogID:    attempt.ID,
		DriverID: driverID,
		Status:   attempt.VerificationStatus,
		Score:    attempt.OverallScore,
	}
}

// publish runs after commit; a delivery failure never undoes the workflow.
func (s *verificationService) publish(ctx context.Context, eventType string, attempt *model.VerificationAttempt, actor Actor) {
	var score *float64
	if attempt.VerificationType != model.VerificationTypeRetry {
		v := attempt.OverallScore
		score = &v
	}
	event := events.VerificationEvent{
		Type:       eventType,
		DriverID:   attempt.DriverID,
		AttemptID:  attempt.ID,
		Status:     string(attempt.VerificationStatus),
		Score:      score,
		ActorID:    actor.ID,
		OccurredAt: attempt.PerformedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish verification event", map[string]interface{}{
			"driver_id":  attempt.DriverID,
			"attempt_id": attempt.ID,
			"error":      err.Error(),
		})
	}
}

func failure(driverID uint, err error, message string) *WorkflowResult {
	return &WorkflowResult{
		Success:  false,
		Message:  message,
		DriverID: driverID,
		Err:      err,
	}
}

func (s *verificationService) GetAttempts(driverID uint) ([]model.VerificationAttempt, error) {
	if _, err := s.driverRepo.FindByID(driverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}
	return s.attemptRepo.FindByDriverID(driverID)
}

func (s *verificationService) GetLatestAttempt(driverID uint) (*model.VerificationAttempt, error) {
	attempt, err := s.attemptRepo.FindLatestByDriverID(driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return attempt, nil
}

func (s *verificationService) ListReviewQueue(status model.VerificationStatus, page, pageSize int) ([]model.Driver, int64, error) {
	if status == "" {
		status = model.VerificationRequiresManualReview
	}
	return s.driverRepo.List(repository.DriverListOptions{
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
}

// AttemptInputs is the decoded scoring snapshot of a verification_complete attempt.
type AttemptInputs struct {
	OCRResults        map[string]scoring.OCRDocument
	FaceMatchScore    float64
	ValidationResults scoring.ValidationResults
	Breakdown         scoring.Breakdown
}

// DecodeAttemptInputs reads back the snapshots stored with an attempt.
// Manual and retry attempts carry no snapshot and decode to zero values.
func DecodeAttemptInputs(a *model.VerificationAttempt) (*AttemptInputs, error) {
	in := &AttemptInputs{}
	if len(a.OCRResults) > 0 {
		if err := json.Unmarshal(a.OCRResults, &in.OCRResults); err != nil {
			return nil, fmt.Errorf("decode ocr results: %w", err)
		}
	}
	if len(a.ValidationResults) > 0 {
		if err := json.Unmarshal(a.ValidationResults, &in.ValidationResults); err != nil {
			return nil, fmt.Errorf("decode validation results: %w", err)
		}
	}
	if len(a.Breakdown) > 0 {
		if err := json.Unmarshal(a.Breakdown, &in.Breakdown); err != nil {
			return nil, fmt.Errorf("decode breakdown: %w", err)
		}
	}
	if a.FaceMatchScore != nil {
		in.FaceMatchScore = *a.FaceMatchScore
	}
	return in, nil
}
