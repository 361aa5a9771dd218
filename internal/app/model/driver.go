package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Driver 운전자 (인증 상태의 현재값 projection 포함)
type Driver struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// 기본 정보
	FirstName             string     `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName              string     `gorm:"type:varchar(100);not null" json:"last_name"`
	Email                 string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone                 string     `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	LicenseNumber         *string    `gorm:"type:varchar(20);uniqueIndex" json:"license_number,omitempty"`
	DateOfBirth           *time.Time `json:"date_of_birth,omitempty"`
	LicenseIssueDate      *time.Time `json:"license_issue_date,omitempty"`
	LicenseExpiryDate     *time.Time `json:"license_expiry_date,omitempty"`
	Address               string     `gorm:"type:text" json:"address,omitempty"`
	EmergencyContactName  string     `gorm:"type:varchar(100)" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string     `gorm:"type:varchar(20)" json:"emergency_contact_phone,omitempty"`

	// 인증 projection: 가장 최근 attempt 와 항상 동일
	VerificationStatus       VerificationStatus `gorm:"type:varchar(30);default:'not_started';index" json:"verification_status"`
	OverallVerificationScore *float64           `json:"overall_verification_score,omitempty"`
	VerificationCompletedAt  *time.Time         `json:"verification_completed_at,omitempty"`

	// KYC 진행 상태
	KycStatus          KycStatus  `gorm:"type:varchar(20);default:'not_started';index" json:"kyc_status"`
	KycStep            KycStep    `gorm:"type:varchar(20);default:'not_started'" json:"kyc_step"`
	KycRetryCount      int        `gorm:"default:0" json:"kyc_retry_count"`
	KycReviewedAt      *time.Time `json:"kyc_reviewed_at,omitempty"`
	KycLastActivityAt  *time.Time `json:"kyc_last_activity_at,omitempty"`
	KycSubmittedAt     *time.Time `json:"kyc_submitted_at,omitempty"`
	KycRejectionReason string     `gorm:"type:text" json:"kyc_rejection_reason,omitempty"`

	// 추적 정보 (이상 행위 탐지용)
	KycUserAgent string `gorm:"type:text" json:"-"`
	KycTimezone  string `gorm:"type:varchar(64)" json:"-"`
	KycIPAddress string `gorm:"type:varchar(50)" json:"-"`

	Documents []DriverDocument `gorm:"foreignKey:DriverID" json:"documents,omitempty"`
}

func (Driver) TableName() string {
	return "drivers"
}

func (d *Driver) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// CurrentScore returns the projected score, 0 when the driver has never been scored.
func (d *Driver) CurrentScore() float64 {
	if d.OverallVerificationScore == nil {
		return 0
	}
	return *d.OverallVerificationScore
}
