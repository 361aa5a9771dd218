package model

import "time"

// FacialVerification 얼굴 대조 이력
type FacialVerification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	DriverID            uint    `gorm:"index;not null" json:"driver_id"`
	SelfieDocumentID    *uint   `json:"selfie_document_id,omitempty"`
	ReferenceDocumentID *uint   `json:"reference_document_id,omitempty"`
	Provider            string  `gorm:"type:varchar(40)" json:"provider"`
	MatchScore          float64 `json:"match_score"`
	Passed              bool    `json:"passed"`
	Error               string  `gorm:"type:text" json:"error,omitempty"`
}

func (FacialVerification) TableName() string {
	return "facial_verifications"
}
