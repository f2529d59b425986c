package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Customer struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"not null" json:"name"`
	Email     string            `gorm:"not null" json:"email"`
	Phone     string            `gorm:"column:phone" json:"phone,omitempty"`
	Address   string            `gorm:"column:address" json:"address,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

// CustomerSite is a metered delivery point belonging to a customer.
type CustomerSite struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID snowflake.ID `gorm:"not null;index" json:"customer_id"`
	Name       string       `gorm:"not null" json:"name"`
	Address    string       `gorm:"column:address" json:"address,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (CustomerSite) TableName() string { return "customer_sites" }
