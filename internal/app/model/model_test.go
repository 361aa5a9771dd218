package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKycStep_Number(t *testing.T) {
	tests := []struct {
		step KycStep
		want int
	}{
		{KycStepNotStarted, 0},
		{KycStep1, 1},
		{KycStep2, 2},
		{KycStep3, 3},
		{KycStepCompleted, 3},
		{KycStep("garbage"), 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.step), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.step.Number())
		})
	}
	assert.Equal(t, KycStep2, KycStepFromNumber(2))
}

func TestVerificationStatus_IsValid(t *testing.T) {
	assert.True(t, VerificationRequiresManualReview.IsValid())
	assert.False(t, VerificationStatus("approved").IsValid())
	assert.True(t, VerificationFailed.IsRetryable())
	assert.False(t, VerificationVerified.IsRetryable())
	assert.False(t, VerificationPending.IsRetryable())
}

func TestDriver_CurrentScore(t *testing.T) {
	d := &Driver{FirstName: "Ada", LastName: "Obi"}
	assert.Equal(t, 0.0, d.CurrentScore())
	score := 72.5
	d.OverallVerificationScore = &score
	assert.Equal(t, 72.5, d.CurrentScore())
	assert.Equal(t, "Ada Obi", d.FullName())
}
