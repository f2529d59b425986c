package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gascustody/internal/aggregation"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
)

// Gcc is a gas consumption certificate for one customer site and billing month.
type Gcc struct {
	ID                  snowflake.ID     `gorm:"primaryKey" json:"id"`
	CustomerID          snowflake.ID     `gorm:"not null;uniqueIndex:ux_gccs_site_period,priority:1;index:idx_gccs_site_created,priority:1" json:"customer_id"`
	CustomerSiteID      snowflake.ID     `gorm:"not null;uniqueIndex:ux_gccs_site_period,priority:2;index:idx_gccs_site_created,priority:2" json:"customer_site_id"`
	GccDate             time.Time        `gorm:"not null" json:"gcc_date"`
	CapexRecoveryAmount decimal.Decimal  `gorm:"type:numeric(20,2);not null;default:0" json:"capex_recovery_amount"`
	WithVat             bool             `gorm:"not null;default:false" json:"with_vat"`
	DepartmentID        int64            `gorm:"not null;default:1" json:"department_id"`
	GccCreatedBy        int64            `gorm:"not null" json:"gcc_created_by"`
	LetterID            int64            `gorm:"not null;default:1" json:"letter_id"`
	Status              lifecycle.Status `gorm:"not null;index" json:"status"`
	PeriodStart         time.Time        `gorm:"not null;uniqueIndex:ux_gccs_site_period,priority:3" json:"period_start"`
	PeriodEnd           time.Time        `gorm:"not null" json:"period_end"`
	CreatedAt           time.Time        `gorm:"not null;index:idx_gccs_site_created,priority:3" json:"created_at"`
	UpdatedAt           time.Time        `gorm:"not null" json:"updated_at"`
}

func (Gcc) TableName() string { return "gccs" }

// Window is the billing period persisted when the certificate was created.
func (g Gcc) Window() aggregation.Window {
	return aggregation.Window{Start: g.PeriodStart, End: g.PeriodEnd}
}

// GccListItem is a copy of one ledger reading taken when the certificate was created.
type GccListItem struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	GccID          snowflake.ID `gorm:"not null;index" json:"gcc_id"`
	CustomerID     snowflake.ID `gorm:"not null" json:"customer_id"`
	CustomerSiteID snowflake.ID `gorm:"not null" json:"customer_site_id"`
	DailyVolumeID  snowflake.ID `gorm:"not null;index" json:"daily_volume_id"`
	Volume         float64      `gorm:"not null" json:"volume"`
	Inlet          float64      `gorm:"not null;default:0" json:"inlet"`
	Outlet         float64      `gorm:"not null;default:0" json:"outlet"`
	Allocation     float64      `gorm:"not null;default:0" json:"allocation"`
	Nomination     float64      `gorm:"not null;default:0" json:"nomination"`
	OriginalDate   time.Time    `gorm:"not null" json:"original_date"`
	Status         int          `gorm:"not null;default:1" json:"status"`
	CreatedBy      int64        `gorm:"not null;default:0" json:"created_by"`
	ApprovedBy     int64        `gorm:"not null;default:0" json:"approved_by"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
}

func (GccListItem) TableName() string { return "gcc_list_items" }

type GccApprovedByAdmin struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	GccID          snowflake.ID `gorm:"not null;uniqueIndex" json:"gcc_id"`
	UserID         int64        `gorm:"not null" json:"user_id"`
	CustomerID     snowflake.ID `gorm:"not null;index" json:"customer_id"`
	CustomerSiteID snowflake.ID `gorm:"not null" json:"customer_site_id"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
}

func (GccApprovedByAdmin) TableName() string { return "gcc_approved_by_admins" }

type GccApprovedByCustomer struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	GccID          snowflake.ID `gorm:"not null;uniqueIndex" json:"gcc_id"`
	CustomerID     snowflake.ID `gorm:"not null;index" json:"customer_id"`
	CustomerSiteID snowflake.ID `gorm:"not null" json:"customer_site_id"`
	CustomerName   string       `gorm:"not null" json:"customer_name"`
	Signature      string       `gorm:"type:text;not null" json:"signature"`
	Date           time.Time    `gorm:"not null" json:"date"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
}

func (GccApprovedByCustomer) TableName() string { return "gcc_approved_by_customers" }

// InvoiceAdviceView is the slice of an invoice advice shown alongside a certificate.
type InvoiceAdviceView struct {
	ID                 snowflake.ID  `json:"id"`
	GccID              *snowflake.ID `json:"gcc_id"`
	Status             int           `json:"status"`
	TotalQuantityOfGas float64       `json:"total_quantity_of_gas"`
	FromDate           *time.Time    `json:"from_date"`
	ToDate             *time.Time    `json:"to_date"`
	Date               time.Time     `json:"date"`
	CreatedAt          time.Time     `json:"created_at"`
}

func (InvoiceAdviceView) TableName() string { return "invoice_advices" }

// InvoiceView is the slice of an invoice shown alongside a certificate.
type InvoiceView struct {
	ID                 snowflake.ID    `json:"id"`
	InvoiceAdviceID    snowflake.ID    `json:"invoice_advice_id"`
	GccID              *snowflake.ID   `json:"gcc_id"`
	InvoiceNumber      string          `json:"invoice_number"`
	Status             int             `json:"status"`
	TotalVolumePaidFor decimal.Decimal `json:"total_volume_paid_for"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (InvoiceView) TableName() string { return "invoices" }

// Aggregate is the envelope returned by every lifecycle operation.
type Aggregate struct {
	ListItem              []GccListItem          `json:"list_item"`
	Gcc                   *Gcc                   `json:"gcc"`
	InvoiceAdvice         *InvoiceAdviceView     `json:"invoice_advice"`
	Invoice               *InvoiceView           `json:"invoice"`
	GccApprovedByAdmin    *GccApprovedByAdmin    `json:"gcc_approved_by_admin,omitempty"`
	GccApprovedByCustomer *GccApprovedByCustomer `json:"gcc_approved_by_customer,omitempty"`
	TotalVolume           float64                `json:"total_volume"`
}

// InitiateResult carries either the current certificate's list items or, when no
// certificate covers the previous month, the raw ledger readings for that month.
type InitiateResult struct {
	ListItem      any                `json:"list_item"`
	Gcc           *Gcc               `json:"gcc"`
	InvoiceAdvice *InvoiceAdviceView `json:"invoice_advice"`
	Invoice       *InvoiceView       `json:"invoice"`
	Window        aggregation.Window `json:"-"`
}

// ApprovalToken is handed to the customer to approve one certificate.
type ApprovalToken struct {
	GccID     snowflake.ID `json:"gcc_id"`
	Token     string       `json:"approval_token"`
	ExpiresAt time.Time    `json:"expires_at"`
	URL       string       `json:"approval_url,omitempty"`
}
