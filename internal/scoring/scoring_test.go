package scoring

import (
	"math"
	"testing"

	"github.com/ikkim/fleetverify-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conf(v float64) *float64 { return &v }

func TestCalculate_EndToEndScenario(t *testing.T) {
	ocr := map[string]OCRDocument{
		"driver_license_scan": {Confidence: conf(0.9)},
		"national_id":         {Confidence: conf(0.95)},
	}
	result := Calculate(ocr, 0.92, ValidationResults{Scores: []float64{0.85, 0.9}}, Weights{})

	assert.InDelta(t, 0.925, result.Breakdown[FactorOCRAccuracy].RawScore, 1e-9)
	assert.InDelta(t, 0.92, result.Breakdown[FactorFaceMatch].RawScore, 1e-9)
	assert.InDelta(t, 0.875, result.Breakdown[FactorValidationConsistency].RawScore, 1e-9)
	assert.Equal(t, 91.3, result.Score)
	assert.Equal(t, model.VerificationVerified, Classify(result.Score))
	assert.False(t, result.CalculatedAt.IsZero())
}

func TestCalculate_MissingConfidenceUsesNeutral(t *testing.T) {
	ocr := map[string]OCRDocument{
		"docA": {},
		"docB": {Confidence: conf(1.0)},
	}
	result := Calculate(ocr, 1.0, ValidationResults{Scores: []float64{1.0}}, Weights{})

	assert.InDelta(t, 0.75, result.Breakdown[FactorOCRAccuracy].RawScore, 1e-9)
	assert.Equal(t, 90.0, result.Score)
}

func TestCalculate_NonFiniteInputsFallBack(t *testing.T) {
	ocr := map[string]OCRDocument{"doc": {Confidence: conf(math.NaN())}}
	result := Calculate(ocr, math.Inf(1), ValidationResults{Scores: []float64{math.NaN(), 1}}, Weights{})

	assert.Equal(t, NeutralConfidence, result.Breakdown[FactorOCRAccuracy].RawScore)
	assert.Equal(t, 0.0, result.Breakdown[FactorFaceMatch].RawScore)
	assert.Equal(t, 0.5, result.Breakdown[FactorValidationConsistency].RawScore)
}

func TestCalculate_EmptyInputs(t *testing.T) {
	result := Calculate(map[string]OCRDocument{}, 0.0, ValidationResults{}, Weights{})

	assert.Equal(t, 0.0, result.Score)
	for _, f := range Factors {
		assert.Equal(t, 0.0, result.Breakdown[f].RawScore, string(f))
	}

	result = Calculate(nil, 0.0, ValidationResults{Scores: []float64{}}, Weights{})
	assert.Equal(t, 0.0, result.Score)
}

func TestCalculate_Deterministic(t *testing.T) {
	ocr := map[string]OCRDocument{
		"a": {Confidence: conf(0.1)},
		"b": {Confidence: conf(0.7)},
		"c": {},
		"d": {Confidence: conf(0.333333)},
		"e": {Confidence: conf(0.91)},
	}
	validation := ValidationResults{Scores: []float64{0.2, 0.4, 0.9999}}
	weights := Weights{OCRAccuracy: 0.3, FaceMatch: 0.5, ValidationConsistency: 0.2}

	first := Calculate(ocr, 0.61, validation, weights)
	for i := 0; i < 50; i++ {
		next := Calculate(ocr, 0.61, validation, weights)
		require.Equal(t, first.Score, next.Score)
		require.Equal(t, first.Breakdown, next.Breakdown)
	}
}

func TestCalculate_WeightedSumIdentity(t *testing.T) {
	inputs := []struct {
		name       string
		ocr        map[string]OCRDocument
		face       float64
		validation []float64
		weights    Weights
	}{
		{"defaults", map[string]OCRDocument{"a": {Confidence: conf(0.81)}}, 0.77, []float64{0.5, 0.66}, Weights{}},
		{"custom", map[string]OCRDocument{"a": {}, "b": {Confidence: conf(0.123)}}, 0.456, []float64{0.789}, Weights{0.2, 0.5, 0.3}},
		{"face only", nil, 0.8765, nil, Weights{0, 1, 0}},
	}

	for _, tt := range inputs {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(tt.ocr, tt.face, ValidationResults{Scores: tt.validation}, tt.weights)

			var sum float64
			for _, f := range Factors {
				sum += result.Breakdown[f].WeightedContribution
			}
			assert.Equal(t, Round(sum*100, 2), result.Score)
		})
	}
}

func TestCalculate_ZeroWeightsMeanDefaults(t *testing.T) {
	result := Calculate(nil, 1.0, ValidationResults{}, Weights{})
	assert.Equal(t, DefaultWeights(), result.Breakdown.Weights())
	assert.Equal(t, 40.0, result.Score)
}

func TestRecompute_MatchesStoredBreakdown(t *testing.T) {
	ocr := map[string]OCRDocument{"a": {Confidence: conf(0.64)}, "b": {}}
	validation := ValidationResults{Scores: []float64{0.3, 0.8}}
	weights := Weights{OCRAccuracy: 0.25, FaceMatch: 0.5, ValidationConsistency: 0.25}

	stored := Calculate(ocr, 0.58, validation, weights)
	breakdown, score := Recompute(ocr, 0.58, validation, stored.Breakdown)

	assert.Equal(t, stored.Breakdown, breakdown)
	assert.Equal(t, stored.Score, score)
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{name: "Defaults", weights: DefaultWeights(), wantErr: false},
		{name: "Face only", weights: Weights{0, 1, 0}, wantErr: false},
		{name: "Sum below one", weights: Weights{0.3, 0.3, 0.2}, wantErr: true},
		{name: "Sum above one", weights: Weights{0.5, 0.5, 0.2}, wantErr: true},
		{name: "Negative weight", weights: Weights{-0.2, 0.8, 0.4}, wantErr: true},
		{name: "NaN weight", weights: Weights{math.NaN(), 0.4, 0.2}, wantErr: true},
		{name: "Infinite weight", weights: Weights{math.Inf(1), 0.4, 0.2}, wantErr: true},
		{name: "Zero weights", weights: Weights{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCalculate_ScoreStaysInRange(t *testing.T) {
	tests := []struct {
		name       string
		ocr        map[string]OCRDocument
		face       float64
		validation []float64
		weights    Weights
		want       float64
	}{
		{"inputs above one", map[string]OCRDocument{"a": {Confidence: conf(3)}}, 2.5, []float64{4}, Weights{}, 100},
		{"inputs below zero", map[string]OCRDocument{"a": {Confidence: conf(-1)}}, -0.5, []float64{-4}, Weights{}, 0},
		{"mixed", map[string]OCRDocument{"a": {Confidence: conf(3)}}, 2.5, []float64{-4}, Weights{}, 80},
		{"invalid weights use defaults", map[string]OCRDocument{"a": {Confidence: conf(1)}}, 1, []float64{1}, Weights{2, 2, 2}, 100},
		{"NaN weight uses defaults", nil, 1, nil, Weights{math.NaN(), 0.4, 0.2}, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Calculate(tt.ocr, tt.face, ValidationResults{Scores: tt.validation}, tt.weights)
			assert.Equal(t, tt.want, result.Score)
			for _, f := range Factors {
				raw := result.Breakdown[f].RawScore
				assert.True(t, raw >= 0 && raw <= 1, "%s raw %v", f, raw)
			}
		})
	}
}

func TestNormalize_RecomputesIdentically(t *testing.T) {
	ocr := map[string]OCRDocument{
		"a": {Confidence: conf(math.NaN()), Text: "LICENCE"},
		"b": {Confidence: conf(1.0)},
		"c": {Confidence: conf(1.7)},
	}
	validation := ValidationResults{
		Scores: []float64{math.Inf(-1), 0.9},
		Fields: map[string]float64{"name": math.NaN(), "dob": 0.9},
	}

	original := Calculate(ocr, math.NaN(), validation, Weights{})
	nOCR, nFace, nValidation := Normalize(ocr, math.NaN(), validation)

	assert.Nil(t, nOCR["a"].Confidence)
	assert.Equal(t, "LICENCE", nOCR["a"].Text)
	assert.Equal(t, 1.0, *nOCR["c"].Confidence)
	assert.Equal(t, 0.0, nFace)
	assert.Equal(t, []float64{0, 0.9}, nValidation.Scores)
	assert.Equal(t, 0.0, nValidation.Fields["name"])
	// the caller's map is untouched
	assert.True(t, math.IsNaN(*ocr["a"].Confidence))

	breakdown, score := Recompute(nOCR, nFace, nValidation, original.Breakdown)
	assert.Equal(t, original.Breakdown, breakdown)
	assert.Equal(t, original.Score, score)
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  model.VerificationStatus
	}{
		{100, model.VerificationVerified},
		{85.0, model.VerificationVerified},
		{84.99, model.VerificationRequiresManualReview},
		{70.0, model.VerificationRequiresManualReview},
		{69.99, model.VerificationPending},
		{50.0, model.VerificationPending},
		{49.99, model.VerificationFailed},
		{0, model.VerificationFailed},
		{-10, model.VerificationFailed},
		{math.NaN(), model.VerificationFailed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %v", tt.score)
	}
}
