package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
)

// InvoiceAdvice totals the gas a customer site consumed over one billing period.
// When it was raised from a certificate, GccID is set and the status mirrors the
// certificate's.
type InvoiceAdvice struct {
	ID                       snowflake.ID     `gorm:"primaryKey" json:"id"`
	GccID                    *snowflake.ID    `gorm:"uniqueIndex" json:"gcc_id"`
	CustomerID               snowflake.ID     `gorm:"not null;index:idx_invoice_advices_site,priority:1" json:"customer_id"`
	CustomerSiteID           snowflake.ID     `gorm:"not null;index:idx_invoice_advices_site,priority:2" json:"customer_site_id"`
	WithVat                  bool             `gorm:"not null;default:false" json:"with_vat"`
	CapexRecoveryAmount      decimal.Decimal  `gorm:"type:numeric(20,2);not null;default:0" json:"capex_recovery_amount"`
	Date                     time.Time        `gorm:"not null" json:"date"`
	Status                   lifecycle.Status `gorm:"not null;index" json:"status"`
	Department               string           `gorm:"not null" json:"department"`
	TotalQuantityOfGas       float64          `gorm:"not null;default:0" json:"total_quantity_of_gas"`
	FromDate                 *time.Time       `json:"from_date"`
	ToDate                   *time.Time       `json:"to_date"`
	PeriodStart              time.Time        `gorm:"not null" json:"period_start"`
	PeriodEnd                time.Time        `gorm:"not null" json:"period_end"`
	GccCreatedByID           *int64           `json:"gcc_created_by_id"`
	InvoiceAdviceCreatedByID int64            `gorm:"not null" json:"invoice_advice_created_by_id"`
	CreatedAt                time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt                time.Time        `gorm:"not null" json:"updated_at"`
}

func (InvoiceAdvice) TableName() string { return "invoice_advices" }

type InvoiceAdviceListItem struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceAdviceID snowflake.ID `gorm:"not null;index" json:"invoice_advice_id"`
	CustomerID      snowflake.ID `gorm:"not null" json:"customer_id"`
	CustomerSiteID  snowflake.ID `gorm:"not null" json:"customer_site_id"`
	DailyVolumeID   snowflake.ID `gorm:"not null" json:"daily_volume_id"`
	Volume          float64      `gorm:"not null" json:"volume"`
	Date            time.Time    `gorm:"not null" json:"date"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
}

func (InvoiceAdviceListItem) TableName() string { return "invoice_advice_list_items" }

// ApprovalFor is the sign-off stage an approval records.
type ApprovalFor string

const (
	ApprovalChecked   ApprovalFor = "checked"
	ApprovalConfirmed ApprovalFor = "confirmed"
	ApprovalApproved  ApprovalFor = "approved"
)

// Stage returns the status an advice must hold before this approval and the
// status it moves to.
func (a ApprovalFor) Stage() (from, to lifecycle.Status, ok bool) {
	switch a {
	case ApprovalChecked:
		return lifecycle.InvoiceAdviceCreated, lifecycle.InvoiceAdviceCheckedBy, true
	case ApprovalConfirmed:
		return lifecycle.InvoiceAdviceCheckedBy, lifecycle.InvoiceAdviceConfirmedBy, true
	case ApprovalApproved:
		return lifecycle.InvoiceAdviceConfirmedBy, lifecycle.InvoiceAdviceApprovedBy, true
	default:
		return 0, 0, false
	}
}

type InvoiceAdviceApproval struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceAdviceID snowflake.ID `gorm:"not null;uniqueIndex:ux_invoice_advice_approvals_stage,priority:1" json:"invoice_advice_id"`
	UserID          int64        `gorm:"not null" json:"user_id"`
	ApprovalFor     ApprovalFor  `gorm:"type:varchar(32);not null;uniqueIndex:ux_invoice_advice_approvals_stage,priority:2" json:"approval_for"`
	Date            time.Time    `gorm:"not null" json:"date"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
}

func (InvoiceAdviceApproval) TableName() string { return "invoice_advice_approvals" }

// Detail is an advice with its list items and approvals.
type Detail struct {
	InvoiceAdvice InvoiceAdvice           `json:"invoice_advice"`
	ListItem      []InvoiceAdviceListItem `json:"list_item"`
	Approvals     []InvoiceAdviceApproval `json:"approvals"`
}
