package service

import (
	"context"
	"errors"
	"sort"

	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/ikkim/fleetverify-backend/internal/app/repository"
	"github.com/ikkim/fleetverify-backend/internal/scoring"
	"github.com/ikkim/fleetverify-backend/internal/storage"
	"github.com/ikkim/fleetverify-backend/pkg/facematch"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"github.com/ikkim/fleetverify-backend/pkg/ocr"
	"gorm.io/gorm"
)

var ErrNoDocuments = errors.New("driver has no documents to verify")

// FaceMatchPassThreshold marks a facial verification as passed.
const FaceMatchPassThreshold = 0.8

// TextExtractor is satisfied by *ocr.Service.
type TextExtractor interface {
	Extract(ctx context.Context, image []byte, documentType string) (*ocr.Result, error)
}

type PipelineResult struct {
	*WorkflowResult
	Breakdown      scoring.Breakdown `json:"breakdown,omitempty"`
	FaceMatchScore float64           `json:"face_match_score"`
	DocumentCount  int               `json:"document_count"`
}

// PipelineService runs OCR, face matching and field validation, scores the
// outcome and hands it to the verification workflow.
type PipelineService interface {
	VerifyDriver(ctx context.Context, driverID uint, actor Actor, rc RequestContext) *PipelineResult
}

type pipelineService struct {
	driverRepo   repository.DriverRepository
	documentRepo repository.DocumentRepository
	faceRepo     repository.FacialVerificationRepository
	store        storage.DocumentStore
	extractor    TextExtractor
	faces        facematch.Provider
	validator    *FieldValidator
	verification VerificationService
	weights      scoring.Weights
}

func NewPipelineService(
	driverRepo repository.DriverRepository,
	documentRepo repository.DocumentRepository,
	faceRepo repository.FacialVerificationRepository,
	store storage.DocumentStore,
	extractor TextExtractor,
	faces facematch.Provider,
	verification VerificationService,
	weights scoring.Weights,
) PipelineService {
	return &pipelineService{
		driverRepo:   driverRepo,
		documentRepo: documentRepo,
		faceRepo:     faceRepo,
		store:        store,
		extractor:    extractor,
		faces:        faces,
		validator:    NewFieldValidator(),
		verification: verification,
		weights:      weights,
	}
}

func (s *pipelineService) VerifyDriver(ctx context.Context, driverID uint, actor Actor, rc RequestContext) *PipelineResult {
	logger.Info("Starting verification pipeline", map[string]interface{}{
		"driver_id": driverID,
	})

	driver, err := s.driverRepo.FindByIDWithDocuments(driverID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &PipelineResult{WorkflowResult: failure(driverID, ErrDriverNotFound, ErrDriverNotFound.Error())}
		}
		return &PipelineResult{WorkflowResult: failure(driverID, err, "Failed to load driver")}
	}

	docs := latestActiveDocuments(driver.Documents)
	if len(docs) == 0 {
		logger.Warn("Verification pipeline has no documents", map[string]interface{}{
			"driver_id": driverID,
		})
		return &PipelineResult{WorkflowResult: failure(driverID, ErrNoDocuments, ErrNoDocuments.Error())}
	}

	ocrDocs := make(map[string]scoring.OCRDocument, len(docs))
	images := make(map[model.DocumentType][]byte, len(docs))
	for _, doc := range docs {
		data, err := s.store.Fetch(ctx, doc.FileKey)
		if err != nil {
			logger.Warn("Document fetch failed, scoring with neutral confidence", map[string]interface{}{
				"driver_id":     driverID,
				"document_id":   doc.ID,
				"document_type": doc.DocumentType,
				"error":         err.Error(),
			})
			ocrDocs[string(doc.DocumentType)] = scoring.OCRDocument{}
			continue
		}
		images[doc.DocumentType] = data
		ocrDocs[string(doc.DocumentType)] = s.extract(ctx, doc, data)
	}

	face := s.matchFace(ctx, driverID, docs, images)
	validation := s.validator.Validate(driver, ocrDocs)
	result := scoring.Calculate(ocrDocs, face, validation, s.weights)

	logger.Info("Verification pipeline scored driver", map[string]interface{}{
		"driver_id":   driverID,
		"score":       result.Score,
		"face_match":  face,
		"field_count": len(validation.Scores),
	})

	wr := s.verification.SaveResults(ctx, SaveResultsInput{
		DriverID:          driverID,
		Result:            result,
		OCRResults:        ocrDocs,
		FaceMatchScore:    face,
		ValidationResults: validation,
		Actor:             actor,
		Request:           rc,
	})
	return &PipelineResult{
		WorkflowResult: wr,
		Breakdown:      result.Breakdown,
		FaceMatchScore: face,
		DocumentCount:  len(docs),
	}
}

// extract runs OCR and stores the outcome on the document row. Failures score as neutral.
func (s *pipelineService) extract(ctx context.Context, doc model.DriverDocument, data []byte) scoring.OCRDocument {
	res, err := s.extractor.Extract(ctx, data, string(doc.DocumentType))
	if err != nil {
		logger.Warn("OCR failed, scoring with neutral confidence", map[string]interface{}{
			"document_id":   doc.ID,
			"document_type": doc.DocumentType,
			"error":         err.Error(),
		})
		return scoring.OCRDocument{}
	}

	doc.OCRText = res.Text
	fields, err := toJSON(res.Fields)
	if err != nil {
		logger.Warn("Failed to encode OCR fields", map[string]interface{}{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
	doc.OCRFields = fields
	doc.OCRConfidence = res.Confidence
	doc.OCRProvider = res.Provider
	if err := s.documentRepo.Update(&doc); err != nil {
		logger.Warn("Failed to store OCR result on document", map[string]interface{}{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}

	return scoring.OCRDocument{
		Confidence: res.Confidence,
		Text:       res.Text,
		Fields:     res.Fields,
		Provider:   res.Provider,
	}
}

// matchFace compares the passport photo with the licence scan. A missing photo
// scores 0; a provider error scores neutral.
func (s *pipelineService) matchFace(ctx context.Context, driverID uint, docs []model.DriverDocument, images map[model.DocumentType][]byte) float64 {
	selfie, okSelfie := images[model.DocumentPassportPhoto]
	reference, okRef := images[model.DocumentDriverLicenseScan]
	if !okSelfie || !okRef || s.faces == nil {
		logger.Warn("Face match skipped, photo missing", map[string]interface{}{
			"driver_id":     driverID,
			"has_selfie":    okSelfie,
			"has_reference": okRef,
		})
		return 0
	}

	record := &model.FacialVerification{
		DriverID: driverID,
		Provider: s.faces.Name(),
	}
	for i := range docs {
		id := docs[i].ID
		switch docs[i].DocumentType {
		case model.DocumentPassportPhoto:
			record.SelfieDocumentID = &id
		case model.DocumentDriverLicenseScan:
			record.ReferenceDocumentID = &id
		}
	}

	score, err := s.faces.Compare(ctx, selfie, reference)
	if err != nil {
		logger.Warn("Face match failed, scoring with neutral confidence", map[string]interface{}{
			"driver_id": driverID,
			"provider":  s.faces.Name(),
			"error":     err.Error(),
		})
		score = scoring.NeutralConfidence
		record.Error = err.Error()
	}
	record.MatchScore = score
	record.Passed = err == nil && score >= FaceMatchPassThreshold

	if err := s.faceRepo.Create(record); err != nil {
		logger.Warn("Failed to record facial verification", map[string]interface{}{
			"driver_id": driverID,
			"error":     err.Error(),
		})
	}
	return score
}

// latestActiveDocuments keeps the newest active document per type, ordered by type.
func latestActiveDocuments(all []model.DriverDocument) []model.DriverDocument {
	byType := make(map[model.DocumentType]model.DriverDocument)
	for _, d := range all {
		if !d.Status.IsActive() {
			continue
		}
		if cur, ok := byType[d.DocumentType]; !ok || d.ID > cur.ID {
			byType[d.DocumentType] = d
		}
	}

	out := make([]model.DriverDocument, 0, len(byType))
	for _, d := range byType {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentType < out[j].DocumentType })
	return out
}
