package scoring

import "github.com/ikkim/fleetverify-backend/internal/app/model"

const (
	VerifiedThreshold     = 85.0
	ManualReviewThreshold = 70.0
	PendingThreshold      = 50.0
)

// Classify maps a composite score onto a verification status. Total over all floats; NaN is failed.
func Classify(score float64) model.VerificationStatus {
	switch {
	case score >= VerifiedThreshold:
		return model.VerificationVerified
	case score >= ManualReviewThreshold:
		return model.VerificationRequiresManualReview
	case score >= PendingThreshold:
		return model.VerificationPending
	default:
		return model.VerificationFailed
	}
}
