package model

// VerificationStatus 운전자 인증 상태 (closed set)
type VerificationStatus string

const (
	VerificationNotStarted           VerificationStatus = "not_started"
	VerificationPending              VerificationStatus = "pending"
	VerificationVerified             VerificationStatus = "verified"
	VerificationRequiresManualReview VerificationStatus = "requires_manual_review"
	VerificationFailed               VerificationStatus = "failed"
)

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationNotStarted, VerificationPending, VerificationVerified,
		VerificationRequiresManualReview, VerificationFailed:
		return true
	}
	return false
}

// IsRetryable reports whether a retry may reset the driver to pending.
func (s VerificationStatus) IsRetryable() bool {
	return s == VerificationFailed
}

// AttemptStatus is the lifecycle of a single attempt row, not the verification outcome.
type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptCompleted AttemptStatus = "completed"
	AttemptFailed    AttemptStatus = "failed"
)

func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptPending, AttemptCompleted, AttemptFailed:
		return true
	}
	return false
}

type VerificationType string

const (
	VerificationTypeComplete        VerificationType = "verification_complete"
	VerificationTypeManualApproval  VerificationType = "manual_approval"
	VerificationTypeManualRejection VerificationType = "manual_rejection"
	VerificationTypeRetry           VerificationType = "retry"
)

func (t VerificationType) IsValid() bool {
	switch t {
	case VerificationTypeComplete, VerificationTypeManualApproval,
		VerificationTypeManualRejection, VerificationTypeRetry:
		return true
	}
	return false
}

// KycStatus 온보딩(KYC) 진행 상태
type KycStatus string

const (
	KycNotStarted    KycStatus = "not_started"
	KycInProgress    KycStatus = "in_progress"
	KycPendingReview KycStatus = "pending_review"
	KycCompleted     KycStatus = "completed"
	KycRejected      KycStatus = "rejected"
)

func (s KycStatus) IsValid() bool {
	switch s {
	case KycNotStarted, KycInProgress, KycPendingReview, KycCompleted, KycRejected:
		return true
	}
	return false
}

// KycStep is the last completed onboarding step.
type KycStep string

const (
	KycStepNotStarted KycStep = "not_started"
	KycStep1          KycStep = "step_1"
	KycStep2          KycStep = "step_2"
	KycStep3          KycStep = "step_3"
	KycStepCompleted  KycStep = "completed"
)

func (s KycStep) IsValid() bool {
	switch s {
	case KycStepNotStarted, KycStep1, KycStep2, KycStep3, KycStepCompleted:
		return true
	}
	return false
}

// Number maps the step onto 0..3; unknown values count as not started.
func (s KycStep) Number() int {
	switch s {
	case KycStep1:
		return 1
	case KycStep2:
		return 2
	case KycStep3, KycStepCompleted:
		return 3
	default:
		return 0
	}
}

// KycStepFromNumber is the inverse of Number for 1..3.
func KycStepFromNumber(n int) KycStep {
	switch n {
	case 1:
		return KycStep1
	case 2:
		return KycStep2
	case 3:
		return KycStep3
	default:
		return KycStepNotStarted
	}
}
