package controller

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/app/service"
	apperrors "github.com/ikkim/fleetverify-backend/internal/errors"
	"github.com/ikkim/fleetverify-backend/internal/middleware"
)

const (
	maxBulkApprove  = 100
	defaultPageSize = 20
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type VerificationController struct {
	pipeline     service.PipelineService
	verification service.VerificationService
	report       service.ReportService
}

func NewVerificationController(
	pipeline service.PipelineService,
	verification service.VerificationService,
	report service.ReportService,
) *VerificationController {
	return &VerificationController{
		pipeline:     pipeline,
		verification: verification,
		report:       report,
	}
}

type BulkApproveRequest struct {
	DriverIDs []uint `json:"driver_ids" binding:"required,min=1"`
	Notes     string `json:"notes"`
}

// respondWorkflow writes a WorkflowResult, mapping its error to a status code.
func respondWorkflow(c *gin.Context, successStatus int, r *service.WorkflowResult, payload gin.H) {
	if r.Success {
		body := gin.H{"result": r}
		for k, v := range payload {
			body[k] = v
		}
		c.JSON(successStatus, body)
		return
	}

	switch {
	case errors.Is(r.Err, service.ErrDriverNotFound):
		apperrors.NotFound(c, apperrors.DriverNotFound, r.Message)
	case errors.Is(r.Err, service.ErrRetryNotAllowed):
		apperrors.Conflict(c, apperrors.VerificationRetryNotAllowed, r.Message)
	case errors.Is(r.Err, service.ErrRejectionReasonRequired):
		apperrors.BadRequest(c, apperrors.VerificationReasonRequired, r.Message)
	case errors.Is(r.Err, service.ErrInvalidOverrideScore):
		apperrors.BadRequest(c, apperrors.VerificationInvalidScore, r.Message)
	case errors.Is(r.Err, service.ErrNoDocuments):
		apperrors.RespondWithError(c, http.StatusUnprocessableEntity, apperrors.DriverDocumentMissing, r.Message)
	default:
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.VerificationSaveFailed, r.Message)
	}
}

func (ctrl *VerificationController) driverID(c *gin.Context) (uint, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid driver ID format", map[string]interface{}{
			"driver_id": c.Param("id"),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid driver ID")
		return 0, false
	}
	return id, true
}

// Verify runs the full OCR, face match and validation pipeline for a driver
// POST /api/v1/admin/drivers/:id/verify
func (ctrl *VerificationController) Verify(c *gin.Context) {
	id, ok := ctrl.driverID(c)
	if !ok {
		return
	}

	r := ctrl.pipeline.VerifyDriver(c.Request.Context(), id, adminActor(c), requestContext(c))
	respondWorkflow(c, http.StatusOK, r.WorkflowResult, gin.H{
		"breakdown":        r.Breakdown,
		"face_match_score": r.FaceMatchScore,
		"document_count":   r.DocumentCount,
	})
}

// Approve manually approves a driver's verification
// POST /api/v1/admin/drivers/:id/verification/approve
func (ctrl *VerificationController) Approve(c *gin.Context) {
	id, ok := ctrl.driverID(c)
	if !ok {
		return
	}

	var req service.ApproveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
			return
		}
	}

	r := ctrl.verification.ApproveVerification(c.Request.Context(), id, req, adminActor(c), requestContext(c))
	respondWorkflow(c, http.StatusOK, r, nil)
}

// Reject manually rejects a driver's verification
// POST /api/v1/admin/drivers/:id/verification/reject
func (ctrl *VerificationController) Reject(c *gin.Context) {
	id, ok := ctrl.driverID(c)
	if !ok {
		return
	}

	var req service.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}

	r := ctrl.verification.RejectVerification(c.Request.Context(), id, req, adminActor(c), requestContext(c))
	respondWorkflow(c, http.StatusOK, r, nil)
}

// Retry resets a failed verification to pending
// POST /api/v1/admin/drivers/:id/verification/retry
func (ctrl *VerificationController) Retry(c *gin.Context) {
	id, ok := ctrl.driverID(c)
	if !ok {
		return
	}

	r := ctrl.verification.RetryVerification(c.Request.Context(), id, adminActor(c), requestContext(c))
	respondWorkflow(c, http.StatusOK, r, nil)
}

// BulkApprove approves many drivers, each independently
// POST /api/v1/admin/verifications/bulk-approve
func (ctrl *VerificationController) BulkApprove(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid bulk approve request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "driver_ids must be a non-empty list")
		return
	}
	if len(req.DriverIDs) > maxBulkApprove {
		apperrors.BadRequest(c, apperrors.VerificationBulkLimitReached,
			fmt.Sprintf("At most %d drivers can be approved at once", maxBulkApprove))
		return
	}

	result := ctrl.verification.BulkApproveVerifications(c.Request.Context(), req.DriverIDs, req.Notes, adminActor(c), requestContext(c))
	c.JSON(http.StatusOK, result)
}

// Report returns the verification report with recommendations
// GET /api/v1/admin/drivers/:id/verification/report
func (ctrl *VerificationController) Report(c *gin.Context) {
	id, ok := ctrl.driverID(c)
	if !ok {
		return
	}

	report, err := ctrl.report.GenerateReport(id)
	if err != nil {
		if errors.Is(err, service.ErrDriverNotFound) {
			apperrors.NotFound(c, apperrors.DriverNotFound, "Driver not found")
			return
		}
		middleware.GetLoggerFromContext(c).Error("Failed to generate verification report", err, map[string]interface{}{
			"driver_id": id,
		})
		apperrors.InternalError(c, "Failed to generate verification report")
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// Attempts lists the attempt log oldest first
// GET /api/v1/admin/drivers/:id/verification/attempts
func (ctrl *VerificationController) Attempts(c *gin.Context) {
	id, ok := ctrl.driverID(c)
	if !ok {
		return
	}

	attempts, err := ctrl.verification.GetAttempts(id)
	if err != nil {
		if errors.Is(err, service.ErrDriverNotFound) {
			apperrors.NotFound(c, apperrors.DriverNotFound, "Driver not found")
			return
		}
		apperrors.InternalError(c, "Failed to fetch verification attempts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempts": attempts,
		"count":    len(attempts),
	})
}

func queueStatus(c *gin.Context) (model.VerificationStatus, bool) {
	status := model.VerificationStatus(c.Query("status"))
	if status != "" && !status.IsValid() {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Unknown verification status")
		return "", false
	}
	return status, true
}

// Queue lists drivers awaiting review
// GET /api/v1/admin/verifications/queue
func (ctrl *VerificationController) Queue(c *gin.Context) {
	status, ok := queueStatus(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))

	drivers, total, err := ctrl.verification.ListReviewQueue(status, page, pageSize)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to list review queue", err, nil)
		apperrors.InternalError(c, "Failed to list review queue")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"drivers":   drivers,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Export downloads the review queue as xlsx
// GET /api/v1/admin/verifications/export
func (ctrl *VerificationController) Export(c *gin.Context) {
	status, ok := queueStatus(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := ctrl.report.ExportReviewQueue(&buf, status); err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to export review queue", err, nil)
		apperrors.InternalError(c, "Failed to export review queue")
		return
	}

	filename := fmt.Sprintf("review-queue-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
