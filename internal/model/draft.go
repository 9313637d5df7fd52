package model

import "time"

// Draft records a quote email saved to Gmail.
type Draft struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	GmailDraftID string    `gorm:"size:128;not null;index" json:"gmail_draft_id"`
	To           string    `gorm:"size:512;not null" json:"to"`
	CC           string    `gorm:"size:512" json:"cc"`
	Subject      string    `gorm:"size:255;not null" json:"subject"`
	Body         string    `gorm:"type:text;not null" json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}
