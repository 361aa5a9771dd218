package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActivityVerificationCompleted = "verification.completed"
	ActivityVerificationApproved  = "verification.approved"
	ActivityVerificationRejected  = "verification.rejected"
	ActivityVerificationRetried   = "verification.retried"
	ActivityKycStepSubmitted      = "kyc.step_submitted"
	ActivityKycApproved           = "kyc.approved"
	ActivityKycRejected           = "kyc.rejected"
	ActivityKycSuspicious         = "kyc.suspicious_activity"
)

// ActivityLog 감사 로그
type ActivityLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	ActorID     *uint          `gorm:"index" json:"actor_id,omitempty"`
	ActorName   string         `gorm:"type:varchar(100)" json:"actor_name,omitempty"`
	Action      string         `gorm:"type:varchar(60);index;not null" json:"action"`
	SubjectType string         `gorm:"type:varchar(40);index" json:"subject_type"`
	SubjectID   uint           `gorm:"index" json:"subject_id"`
	Description string         `gorm:"type:text" json:"description"`
	Properties  datatypes.JSON `json:"properties,omitempty"`
	IPAddress   string         `gorm:"type:varchar(50)" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"type:text" json:"user_agent,omitempty"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
