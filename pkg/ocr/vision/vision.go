// Package vision is the Google Cloud Vision OCR provider.
package vision

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	gvision "cloud.google.com/go/vision/apiv1"
	"github.com/ikkim/fleetverify-backend/pkg/logger"
	"github.com/ikkim/fleetverify-backend/pkg/ocr"
	"google.golang.org/api/option"
)

const Name = "google_vision"

type Provider struct {
	apiKey string

	mu     sync.Mutex
	client *gvision.ImageAnnotatorClient
}

func New(apiKey string) *Provider {
	return &Provider{apiKey: strings.TrimSpace(apiKey)}
}

func (p *Provider) Name() string { return Name }

// Available reports whether a client can be built with the configured key.
func (p *Provider) Available(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}
	_, err := p.getClient(ctx)
	return err == nil
}

func (p *Provider) getClient(ctx context.Context) (*gvision.ImageAnnotatorClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	if p.apiKey == "" {
		return nil, errors.New("GOOGLE_VISION_API_KEY is empty")
	}
	client, err := gvision.NewImageAnnotatorClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		logger.Error("Failed to create Google Vision client", err, nil)
		return nil, err
	}
	p.client = client
	return client, nil
}

func (p *Provider) ExtractText(ctx context.Context, image []byte, documentType string) (*ocr.RawResult, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	img, err := gvision.NewImageFromReader(bytes.NewReader(image))
	if err != nil {
		return nil, err
	}

	annotation, err := client.DetectDocumentText(ctx, img, nil)
	if err != nil {
		return nil, err
	}
	if annotation == nil || strings.TrimSpace(annotation.GetText()) == "" {
		return &ocr.RawResult{Success: false, Error: "no text detected"}, nil
	}

	raw := &ocr.RawResult{Success: true, Text: annotation.GetText()}
	for _, page := range annotation.GetPages() {
		raw.Confidences = append(raw.Confidences, float64(page.GetConfidence()))
	}

	logger.Debug("Google Vision text detected", map[string]interface{}{
		"document_type": documentType,
		"pages":         len(raw.Confidences),
		"text_length":   len(raw.Text),
	})
	return raw, nil
}

// ConfidenceScore averages page confidences.
func (p *Provider) ConfidenceScore(raw *ocr.RawResult) float64 {
	if raw == nil {
		return 0
	}
	return ocr.MeanConfidence(raw.Confidences)
}

func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
