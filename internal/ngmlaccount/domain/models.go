package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// NgmlAccount holds the bank details printed on invoices for remittance.
type NgmlAccount struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	BankName      string       `gorm:"type:varchar(255);not null" json:"bank_name"`
	BankAddress   string       `gorm:"type:varchar(255);not null" json:"bank_address"`
	AccountName   string       `gorm:"type:varchar(255);not null" json:"account_name"`
	AccountNumber string       `gorm:"type:varchar(255);not null" json:"account_number"`
	SortCode      string       `gorm:"type:varchar(255);not null" json:"sort_code"`
	TIN           string       `gorm:"column:tin;type:varchar(255);not null" json:"tin"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (NgmlAccount) TableName() string { return "ngml_accounts" }
