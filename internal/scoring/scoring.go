// Package scoring combines OCR confidence, face-match similarity and
// cross-field validation consistency into a composite verification score.
//
// Everything here is pure: identical inputs and weights always produce the
// same score and breakdown. Only Result.CalculatedAt reads the clock.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"
)

type Factor string

const (
	FactorOCRAccuracy           Factor = "ocr_accuracy"
	FactorFaceMatch             Factor = "face_match"
	FactorValidationConsistency Factor = "validation_consistency"
)

// Factors lists the factors in the order contributions are summed.
var Factors = []Factor{FactorOCRAccuracy, FactorFaceMatch, FactorValidationConsistency}

// NeutralConfidence stands in for a document whose confidence is missing or not a number.
const NeutralConfidence = 0.5

// WeightSumTolerance is how far the weights may drift from summing to 1.
const WeightSumTolerance = 1e-6

type Weights struct {
	OCRAccuracy           float64 `json:"ocr_accuracy"`
	FaceMatch             float64 `json:"face_match"`
	ValidationConsistency float64 `json:"validation_consistency"`
}

func DefaultWeights() Weights {
	return Weights{OCRAccuracy: 0.4, FaceMatch: 0.4, ValidationConsistency: 0.2}
}

func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Validate fails when a weight is not a finite number in [0,1] or the weights do not sum to 1.
func (w Weights) Validate() error {
	var sum float64
	for _, f := range Factors {
		v := w.Of(f)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
			return fmt.Errorf("weight %s=%v out of range [0,1]", f, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > WeightSumTolerance {
		return fmt.Errorf("weights sum to %v, expected 1.0", sum)
	}
	return nil
}

// usable returns w, or DefaultWeights when w is zero or fails Validate.
func (w Weights) usable() Weights {
	if w.IsZero() || w.Validate() != nil {
		return DefaultWeights()
	}
	return w
}

func (w Weights) Of(f Factor) float64 {
	switch f {
	case FactorOCRAccuracy:
		return w.OCRAccuracy
	case FactorFaceMatch:
		return w.FaceMatch
	case FactorValidationConsistency:
		return w.ValidationConsistency
	}
	return 0
}

// OCRDocument is the part of an OCR result the engine reads.
type OCRDocument struct {
	Confidence *float64          `json:"confidence,omitempty"`
	Text       string            `json:"text,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Provider   string            `json:"provider,omitempty"`
}

// ValidationResults holds one score in [0,1] per cross-checked field.
type ValidationResults struct {
	Scores []float64          `json:"scores,omitempty"`
	Fields map[string]float64 `json:"fields,omitempty"`
}

type FactorScore struct {
	RawScore             float64 `json:"raw_score"`
	Weight               float64 `json:"weight"`
	WeightedContribution float64 `json:"weighted_contribution"`
}

type Breakdown map[Factor]FactorScore

// Weights recovers the weights the breakdown was computed with.
func (b Breakdown) Weights() Weights {
	return Weights{
		OCRAccuracy:           b[FactorOCRAccuracy].Weight,
		FaceMatch:             b[FactorFaceMatch].Weight,
		ValidationConsistency: b[FactorValidationConsistency].Weight,
	}
}

// Composite sums contributions in Factors order.
func (b Breakdown) Composite() float64 {
	var sum float64
	for _, f := range Factors {
		sum += b[f].WeightedContribution
	}
	return sum
}

type Result struct {
	Score        float64   `json:"score"`
	Breakdown    Breakdown `json:"breakdown"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// Calculate scores one verification. Zero or invalid weights select DefaultWeights,
// so the score is always within [0,100].
func Calculate(ocr map[string]OCRDocument, faceMatch float64, validation ValidationResults, weights Weights) Result {
	breakdown, score := compute(ocr, faceMatch, validation, weights.usable())
	return Result{
		Score:        score,
		Breakdown:    breakdown,
		CalculatedAt: time.Now().UTC(),
	}
}

// Recompute rebuilds a stored breakdown from the snapshot inputs and the weights recorded in it.
func Recompute(ocr map[string]OCRDocument, faceMatch float64, validation ValidationResults, stored Breakdown) (Breakdown, float64) {
	return compute(ocr, faceMatch, validation, stored.Weights().usable())
}

// Normalize replaces every input value the engine would substitute with its
// substitute: non-finite confidences become missing, other values are clamped
// to [0,1] with non-finite ones set to 0. The result scores identically and
// is safe to encode as JSON.
func Normalize(ocr map[string]OCRDocument, faceMatch float64, validation ValidationResults) (map[string]OCRDocument, float64, ValidationResults) {
	var docs map[string]OCRDocument
	if ocr != nil {
		docs = make(map[string]OCRDocument, len(ocr))
		for k, d := range ocr {
			if d.Confidence != nil {
				if c := *d.Confidence; math.IsNaN(c) || math.IsInf(c, 0) {
					d.Confidence = nil
				} else {
					c = clamp01(c)
					d.Confidence = &c
				}
			}
			docs[k] = d
		}
	}

	out := ValidationResults{}
	if validation.Scores != nil {
		out.Scores = make([]float64, len(validation.Scores))
		for i, v := range validation.Scores {
			out.Scores[i] = unitOr(v, 0)
		}
	}
	if validation.Fields != nil {
		out.Fields = make(map[string]float64, len(validation.Fields))
		for k, v := range validation.Fields {
			out.Fields[k] = unitOr(v, 0)
		}
	}
	return docs, unitOr(faceMatch, 0), out
}

func compute(ocr map[string]OCRDocument, faceMatch float64, validation ValidationResults, w Weights) (Breakdown, float64) {
	raws := map[Factor]float64{
		FactorOCRAccuracy:           ocrAccuracy(ocr),
		FactorFaceMatch:             unitOr(faceMatch, 0),
		FactorValidationConsistency: mean(validation.Scores),
	}

	breakdown := make(Breakdown, len(Factors))
	for _, f := range Factors {
		weight := w.Of(f)
		breakdown[f] = FactorScore{
			RawScore:             raws[f],
			Weight:               weight,
			WeightedContribution: raws[f] * weight,
		}
	}
	return breakdown, Round(breakdown.Composite()*100, 2)
}

func ocrAccuracy(docs map[string]OCRDocument) float64 {
	if len(docs) == 0 {
		return 0
	}
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sum float64
	for _, k := range keys {
		c := NeutralConfidence
		if p := docs[k].Confidence; p != nil {
			c = unitOr(*p, NeutralConfidence)
		}
		sum += c
	}
	return sum / float64(len(keys))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += unitOr(v, 0)
	}
	return sum / float64(len(values))
}

// unitOr clamps v to [0,1]; NaN and ±Inf yield fallback.
func unitOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
