package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/fleetverify-backend/internal/app/model"
	apperrors "github.com/ikkim/fleetverify-backend/internal/errors"
	"github.com/ikkim/fleetverify-backend/internal/middleware"
	"github.com/ikkim/fleetverify-backend/internal/storage"
)

// DocumentPresigner issues upload URLs for driver documents.
type DocumentPresigner interface {
	PresignDocumentUpload(ctx context.Context, driverID uint, documentType, filename, contentType string, size int64) (*storage.PresignedURLResponse, error)
}

type DocumentController struct {
	presigner DocumentPresigner
}

func NewDocumentController(presigner DocumentPresigner) *DocumentController {
	return &DocumentController{presigner: presigner}
}

type UploadURLRequest struct {
	DocumentType model.DocumentType `json:"document_type" binding:"required"`
	Filename     string             `json:"filename" binding:"required"`
	ContentType  string             `json:"content_type" binding:"required"`
	Size         int64              `json:"size" binding:"required,gt=0"`
}

// UploadURL returns a presigned PUT URL; the returned key goes into KYC step 3.
// POST /api/v1/admin/drivers/:id/documents/upload-url
func (ctrl *DocumentController) UploadURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	driverID, err := parseUintParam(c, "id")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid driver ID")
		return
	}

	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid upload URL request", map[string]interface{}{
			"driver_id": driverID,
			"error":     err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request data")
		return
	}
	if !req.DocumentType.IsValid() {
		apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Unknown document type")
		return
	}

	resp, err := ctrl.presigner.PresignDocumentUpload(c.Request.Context(), driverID, string(req.DocumentType), req.Filename, req.ContentType, req.Size)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFileTooLarge):
			apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "Document exceeds the 10MB limit")
		case errors.Is(err, storage.ErrContentTypeDenied):
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only JPEG, PNG, WEBP and PDF documents are allowed")
		default:
			log.Error("Failed to generate presigned URL", err, map[string]interface{}{
				"driver_id":     driverID,
				"document_type": req.DocumentType,
			})
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to generate upload URL")
		}
		return
	}

	log.Info("Presigned document upload URL generated", map[string]interface{}{
		"driver_id":     driverID,
		"document_type": req.DocumentType,
		"key":           resp.Key,
	})
	c.JSON(http.StatusOK, resp)
}
