package model

import "time"

// Message is one turn of the quote conversation as sent to the model.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionKey string    `gorm:"size:64;not null;index" json:"session_key"`
	Role       string    `gorm:"size:16;not null;index" json:"role"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
