package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LetterTemplate is the cover letter body printed on a GCC certificate.
type LetterTemplate struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Letter    string       `gorm:"type:varchar(255);not null" json:"letter"`
	Status    int          `gorm:"not null;default:1" json:"status"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (LetterTemplate) TableName() string { return "letter_templates" }
