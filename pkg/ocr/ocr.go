// Package ocr wraps pluggable text-extraction providers and turns their raw
// output into per-document-type field maps with a confidence value.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ikkim/fleetverify-backend/pkg/logger"
)

var (
	ErrNoProvider       = errors.New("no OCR provider available")
	ErrExtractionFailed = errors.New("text extraction failed")
)

// RawResult is what a provider returns before normalisation.
type RawResult struct {
	Success bool
	Text    string
	Error   string
	// Provider specific confidence inputs (page or word confidences in [0,1]).
	Confidences []float64
}

type Provider interface {
	Name() string
	// Available is probed once when the Service selects its active provider.
	Available(ctx context.Context) bool
	ExtractText(ctx context.Context, image []byte, documentType string) (*RawResult, error)
	// ConfidenceScore reduces a raw result to a single value in [0,1].
	ConfidenceScore(raw *RawResult) float64
}

type Result struct {
	Provider   string            `json:"provider"`
	Text       string            `json:"text"`
	Fields     map[string]string `json:"fields"`
	Confidence *float64          `json:"confidence,omitempty"`
}

type Service struct {
	providers map[string]Provider
	preferred string
	fallback  string

	once   sync.Once
	active Provider
}

func NewService(preferred, fallback string, providers ...Provider) *Service {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p != nil {
			byName[p.Name()] = p
		}
	}
	return &Service{providers: byName, preferred: preferred, fallback: fallback}
}

// Init picks the preferred provider, or the fallback if the preferred one reports itself unavailable.
func (s *Service) Init(ctx context.Context) Provider {
	s.once.Do(func() {
		if p, ok := s.providers[s.preferred]; ok && p.Available(ctx) {
			s.active = p
		} else if p, ok := s.providers[s.fallback]; ok {
			logger.Warn("Preferred OCR provider unavailable, using fallback", map[string]interface{}{
				"preferred": s.preferred,
				"fallback":  s.fallback,
			})
			s.active = p
		}
		if s.active != nil {
			logger.Info("OCR provider selected", map[string]interface{}{
				"provider": s.active.Name(),
			})
		}
	})
	return s.active
}

func (s *Service) ProviderName(ctx context.Context) string {
	if p := s.Init(ctx); p != nil {
		return p.Name()
	}
	return ""
}

func (s *Service) Extract(ctx context.Context, image []byte, documentType string) (*Result, error) {
	provider := s.Init(ctx)
	if provider == nil {
		return nil, ErrNoProvider
	}

	raw, err := provider.ExtractText(ctx, image, documentType)
	if err != nil {
		logger.Error("OCR provider call failed", err, map[string]interface{}{
			"provider":      provider.Name(),
			"document_type": documentType,
		})
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	if raw == nil || !raw.Success {
		msg := "empty result"
		if raw != nil && raw.Error != "" {
			msg = raw.Error
		}
		return nil, fmt.Errorf("%w: %s", ErrExtractionFailed, msg)
	}

	confidence := clamp01(provider.ConfidenceScore(raw))
	result := &Result{
		Provider:   provider.Name(),
		Text:       raw.Text,
		Fields:     ExtractFields(documentType, raw.Text),
		Confidence: &confidence,
	}

	logger.Debug("OCR extraction completed", map[string]interface{}{
		"provider":      provider.Name(),
		"document_type": documentType,
		"confidence":    confidence,
		"field_count":   len(result.Fields),
	})
	return result, nil
}

// MeanConfidence averages confidences, 0 when there are none.
func MeanConfidence(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += clamp01(v)
	}
	return sum / float64(len(values))
}

func clamp01(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
