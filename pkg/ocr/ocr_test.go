package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name      string
	available bool
	raw       *RawResult
	err       error
	calls     int
}

func (p *stubProvider) Name() string                   { return p.name }
func (p *stubProvider) Available(context.Context) bool { return p.available }
func (p *stubProvider) ExtractText(context.Context, []byte, string) (*RawResult, error) {
	p.calls++
	return p.raw, p.err
}
func (p *stubProvider) ConfidenceScore(raw *RawResult) float64 { return MeanConfidence(raw.Confidences) }

const licenseText = `FEDERAL REPUBLIC OF NIGERIA
NATIONAL DRIVERS LICENCE
NAME: ADEBAYO OLUWASEUN
LICENCE NO: LAG-AB1234
DOB: 14/03/1990
ISSUE DATE: 01/02/2020
EXPIRY DATE: 01/02/2028`

func TestService_UsesPreferredWhenAvailable(t *testing.T) {
	preferred := &stubProvider{name: "google_vision", available: true, raw: &RawResult{Success: true, Text: licenseText, Confidences: []float64{0.9, 0.96}}}
	fallback := &stubProvider{name: "tesseract", available: true}
	svc := NewService("google_vision", "tesseract", preferred, fallback)

	result, err := svc.Extract(context.Background(), []byte("img"), "driver_license_scan")
	require.NoError(t, err)
	assert.Equal(t, "google_vision", result.Provider)
	require.NotNil(t, result.Confidence)
	assert.InDelta(t, 0.93, *result.Confidence, 1e-9)
	assert.Equal(t, "LAG-AB1234", result.Fields[FieldLicenseNumber])
	assert.Equal(t, 0, fallback.calls)
}

func TestService_FallsBackWhenPreferredUnavailable(t *testing.T) {
	preferred := &stubProvider{name: "google_vision", available: false}
	fallback := &stubProvider{name: "tesseract", available: true, raw: &RawResult{Success: true, Text: "x", Confidences: []float64{0.5}}}
	svc := NewService("google_vision", "tesseract", preferred, fallback)

	assert.Equal(t, "tesseract", svc.ProviderName(context.Background()))
	// selection happens once
	preferred.available = true
	assert.Equal(t, "tesseract", svc.ProviderName(context.Background()))

	_, err := svc.Extract(context.Background(), nil, "national_id")
	require.NoError(t, err)
	assert.Equal(t, 0, preferred.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestService_Errors(t *testing.T) {
	svc := NewService("google_vision", "tesseract")
	_, err := svc.Extract(context.Background(), nil, "national_id")
	assert.ErrorIs(t, err, ErrNoProvider)

	failing := &stubProvider{name: "tesseract", available: true, err: errors.New("exit status 1")}
	svc = NewService("tesseract", "", failing)
	_, err = svc.Extract(context.Background(), nil, "national_id")
	assert.ErrorIs(t, err, ErrExtractionFailed)

	unsuccessful := &stubProvider{name: "tesseract", available: true, raw: &RawResult{Success: false, Error: "blank page"}}
	svc = NewService("tesseract", "", unsuccessful)
	_, err = svc.Extract(context.Background(), nil, "national_id")
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.Contains(t, err.Error(), "blank page")
}

func TestExtractFields(t *testing.T) {
	fields := ExtractFields("driver_license_scan", licenseText)
	assert.Equal(t, "ADEBAYO OLUWASEUN", fields[FieldFullName])
	assert.Equal(t, "LAG-AB1234", fields[FieldLicenseNumber])
	assert.Equal(t, "1990-03-14", fields[FieldDateOfBirth])
	assert.Equal(t, "2020-02-01", fields[FieldIssueDate])
	assert.Equal(t, "2028-02-01", fields[FieldExpiryDate])

	id := ExtractFields("national_id", "NIN: 12345678901\nDate of Birth: 1990-03-14")
	assert.Equal(t, "12345678901", id[FieldIDNumber])
	assert.Equal(t, "1990-03-14", id[FieldDateOfBirth])

	assert.Empty(t, ExtractFields("passport_photo", licenseText))
}

func TestMeanConfidence(t *testing.T) {
	assert.Equal(t, 0.0, MeanConfidence(nil))
	assert.InDelta(t, 0.5, MeanConfidence([]float64{1.5, 0}), 1e-9)
}
