package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrAttemptImmutable = errors.New("verification attempts are append-only")

// VerificationAttempt 인증 시도 로그 (append-only, 생성 후 수정 불가)
type VerificationAttempt struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	DriverID         uint             `gorm:"index;not null" json:"driver_id"`
	VerificationType VerificationType `gorm:"type:varchar(40);not null" json:"verification_type"`
	Status           AttemptStatus    `gorm:"type:varchar(20);not null" json:"status"`

	// 채점 당시 입력값 스냅샷
	OCRResults        datatypes.JSON `json:"ocr_results,omitempty"`
	FaceMatchScore    *float64       `json:"face_match_score,omitempty"`
	ValidationResults datatypes.JSON `json:"validation_results,omitempty"`

	// 결과
	OverallScore       float64            `json:"overall_score"`
	VerificationStatus VerificationStatus `gorm:"type:varchar(30);not null" json:"verification_status"`
	Breakdown          datatypes.JSON     `json:"breakdown,omitempty"`
	Notes              string             `gorm:"type:text" json:"notes,omitempty"`

	// provenance
	PerformedBy     *uint     `json:"performed_by,omitempty"`
	PerformedByName string    `gorm:"type:varchar(100)" json:"performed_by_name,omitempty"`
	IPAddress       string    `gorm:"type:varchar(50)" json:"ip_address,omitempty"`
	UserAgent       string    `gorm:"type:text" json:"user_agent,omitempty"`
	PerformedAt     time.Time `json:"performed_at"`
}

func (VerificationAttempt) TableName() string {
	return "verification_attempts"
}

func (a *VerificationAttempt) BeforeUpdate(tx *gorm.DB) error {
	return ErrAttemptImmutable
}
