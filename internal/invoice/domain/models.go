// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
)

// Invoice bills one fully approved invoice advice. Status mirrors the linked
// certificate from INVOICECREATED to PAYMENTCONFIRMED.
type Invoice struct {
	ID                           snowflake.ID     `gorm:"primaryKey" json:"id"`
	InvoiceAdviceID              snowflake.ID     `gorm:"not null;uniqueIndex" json:"invoice_advice_id"`
	GccID                        *snowflake.ID    `gorm:"index" json:"gcc_id"`
	CustomerID                   snowflake.ID     `gorm:"not null;index" json:"customer_id"`
	CustomerSiteID               snowflake.ID     `gorm:"not null" json:"customer_site_id"`
	InvoiceNumber                string           `gorm:"type:varchar(255);not null;uniqueIndex" json:"invoice_number"`
	WithVat                      bool             `gorm:"not null;default:false" json:"with_vat"`
	ConsumedVolumeAmountInNaira  decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"consumed_volume_amount_in_naira"`
	ConsumedVolumeAmountInDollar decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"consumed_volume_amount_in_dollar"`
	DollarToNairaConvertionRate  decimal.Decimal  `gorm:"type:numeric(20,4);not null" json:"dollar_to_naira_convertion_rate"`
	VatAmount                    decimal.Decimal  `gorm:"type:numeric(20,2);not null;default:0" json:"vat_amount"`
	TotalVolumePaidFor           decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"total_volume_paid_for"`
	Status                       lifecycle.Status `gorm:"not null;index" json:"status"`
	IssuedAt                     time.Time        `gorm:"not null" json:"issued_at"`
	PaidAt                       *time.Time       `json:"paid_at,omitempty"`
	PaymentConfirmedAt           *time.Time       `json:"payment_confirmed_at,omitempty"`
	CreatedAt                    time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt                    time.Time        `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Total is the naira amount plus VAT.
func (i Invoice) Total() decimal.Decimal {
	return i.ConsumedVolumeAmountInNaira.Add(i.VatAmount)
}

// Document is a rendered invoice file.
type Document struct {
	FileName string
	Content  []byte
}
