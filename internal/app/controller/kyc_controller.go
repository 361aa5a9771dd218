package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/fleetverify-backend/internal/app/service"
	apperrors "github.com/ikkim/fleetverify-backend/internal/errors"
	"github.com/ikkim/fleetverify-backend/internal/middleware"
)

type KycController struct {
	kyc service.KycService
}

func NewKycController(kyc service.KycService) *KycController {
	return &KycController{kyc: kyc}
}

type KycRejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// stepParams parses :driver_id and :step.
func stepParams(c *gin.Context) (uint, int, bool) {
	driverID, err := parseUintParam(c, "driver_id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid driver ID")
		return 0, 0, false
	}
	step, err := parseUintParam(c, "step")
	if err != nil {
		apperrors.BadRequest(c, apperrors.KycInvalidStep, "Invalid KYC step")
		return 0, 0, false
	}
	return driverID, int(step), true
}

// respondDenied maps a gate denial: no redirect means the rate limit tripped.
func respondDenied(c *gin.Context, d service.StepDecision) {
	if d.Redirect == "" {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":    apperrors.KycRateLimited,
			"message":  d.Reason,
			"decision": d,
		})
		return
	}
	c.JSON(http.StatusForbidden, gin.H{
		"error":    apperrors.KycStepDenied,
		"message":  d.Reason,
		"decision": d,
	})
}

// CheckStep reports whether the driver may open a step
// GET /api/v1/kyc/:driver_id/steps/:step/check
func (ctrl *KycController) CheckStep(c *gin.Context) {
	driverID, step, ok := stepParams(c)
	if !ok {
		return
	}

	decision, err := ctrl.kyc.CheckStep(c.Request.Context(), driverID, step, requestContext(c))
	if err != nil {
		if errors.Is(err, service.ErrDriverNotFound) {
			apperrors.NotFound(c, apperrors.DriverNotFound, "Driver not found")
			return
		}
		middleware.GetLoggerFromContext(c).Error("Failed to check KYC step", err, map[string]interface{}{
			"driver_id": driverID,
			"step":      step,
		})
		apperrors.InternalError(c, "")
		return
	}

	if !decision.Allowed {
		respondDenied(c, decision)
		return
	}
	c.JSON(http.StatusOK, gin.H{"decision": decision})
}

// SubmitStep validates and saves one onboarding step
// POST /api/v1/kyc/:driver_id/steps/:step
func (ctrl *KycController) SubmitStep(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	driverID, step, ok := stepParams(c)
	if !ok {
		return
	}

	var data service.StepData
	if err := c.ShouldBindJSON(&data); err != nil {
		log.Warn("Invalid KYC step payload", map[string]interface{}{
			"driver_id": driverID,
			"error":     err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Step data must be a JSON object of strings")
		return
	}

	r := ctrl.kyc.SubmitStep(c.Request.Context(), driverID, step, data, requestContext(c))
	switch {
	case r.Success:
		c.JSON(http.StatusOK, r)
	case errors.Is(r.Err, service.ErrDriverNotFound):
		apperrors.NotFound(c, apperrors.DriverNotFound, r.Message)
	case r.Err != nil:
		apperrors.InternalError(c, r.Message)
	case !r.Decision.Allowed:
		respondDenied(c, r.Decision)
	default:
		apperrors.RespondWithValidationErrors(c, apperrors.KycValidationFailed, r.Errors)
	}
}

func (ctrl *KycController) respondReview(c *gin.Context, r *service.StepResult) {
	switch {
	case r.Success:
		c.JSON(http.StatusOK, gin.H{"result": r})
	case errors.Is(r.Err, service.ErrDriverNotFound):
		apperrors.NotFound(c, apperrors.DriverNotFound, r.Message)
	case errors.Is(r.Err, service.ErrKycNotPendingReview):
		apperrors.Conflict(c, apperrors.KycNotPendingReview, r.Message)
	case errors.Is(r.Err, service.ErrKycRejectionReasonRequired):
		apperrors.BadRequest(c, apperrors.KycReasonRequired, r.Message)
	default:
		apperrors.InternalError(c, r.Message)
	}
}

// Approve completes a KYC submission
// POST /api/v1/admin/drivers/:id/kyc/approve
func (ctrl *KycController) Approve(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid driver ID")
		return
	}
	ctrl.respondReview(c, ctrl.kyc.ApproveKyc(c.Request.Context(), id, adminActor(c), requestContext(c)))
}

// Reject sends a KYC submission back to the driver
// POST /api/v1/admin/drivers/:id/kyc/reject
func (ctrl *KycController) Reject(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid driver ID")
		return
	}

	var req KycRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.KycReasonRequired, "A rejection reason is required")
		return
	}
	ctrl.respondReview(c, ctrl.kyc.RejectKyc(c.Request.Context(), id, req.Reason, adminActor(c), requestContext(c)))
}

// Status returns the driver's KYC progress and retry eligibility
// GET /api/v1/admin/drivers/:id/kyc
func (ctrl *KycController) Status(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid driver ID")
		return
	}

	view, err := ctrl.kyc.GetStatus(id)
	if err != nil {
		if errors.Is(err, service.ErrDriverNotFound) {
			apperrors.NotFound(c, apperrors.DriverNotFound, "Driver not found")
			return
		}
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"kyc": view})
}
