package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
)

// CreateRequest issues an invoice. A blank InvoiceNumber is generated, a nil
// VatAmount is computed from the configured rate when the advice carries VAT,
// and a nil TotalVolumePaidFor defaults to the advice's total quantity of gas.
type CreateRequest struct {
	InvoiceAdviceID              string           `json:"invoice_advice_id" validate:"required"`
	InvoiceNumber                string           `json:"invoice_number" validate:"omitempty,max=255"`
	ConsumedVolumeAmountInNaira  *decimal.Decimal `json:"consumed_volume_amount_in_naira" validate:"required"`
	ConsumedVolumeAmountInDollar *decimal.Decimal `json:"consumed_volume_amount_in_dollar" validate:"required"`
	DollarToNairaConvertionRate  *decimal.Decimal `json:"dollar_to_naira_convertion_rate" validate:"required"`
	VatAmount                    *decimal.Decimal `json:"vat_amount"`
	TotalVolumePaidFor           *decimal.Decimal `json:"total_volume_paid_for"`
}

type UpdateRequest struct {
	ID                           string           `json:"-"`
	InvoiceNumber                *string          `json:"invoice_number" validate:"omitnil,min=1,max=255"`
	ConsumedVolumeAmountInNaira  *decimal.Decimal `json:"consumed_volume_amount_in_naira"`
	ConsumedVolumeAmountInDollar *decimal.Decimal `json:"consumed_volume_amount_in_dollar"`
	DollarToNairaConvertionRate  *decimal.Decimal `json:"dollar_to_naira_convertion_rate"`
	VatAmount                    *decimal.Decimal `json:"vat_amount"`
	TotalVolumePaidFor           *decimal.Decimal `json:"total_volume_paid_for"`
}

type PaymentRequest struct {
	ID     string     `json:"-"`
	PaidAt *time.Time `json:"paid_at"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Status        string
	InvoiceNumber string
	CustomerID    string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	Create(ctx context.Context, actor int64, req CreateRequest) (Invoice, error)
	Update(ctx context.Context, actor int64, req UpdateRequest) (Invoice, error)
	Approve(ctx context.Context, actor int64, id string) (Invoice, error)
	RecordPayment(ctx context.Context, actor int64, req PaymentRequest) (Invoice, error)
	ConfirmPayment(ctx context.Context, actor int64, id string) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	Delete(ctx context.Context, actor int64, id string) error
	Render(ctx context.Context, id string) (Document, error)
}

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidInvoiceAdvice = errors.New("invalid_invoice_advice_id")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidCursor        = errors.New("invalid_page_token")
	ErrNotFound             = errors.New("invoice_not_found")
	ErrAlreadyExists        = errors.New("invoice_already_exists")
	ErrDuplicateNumber      = errors.New("invoice_number_taken")
	ErrAdviceNotApproved    = errors.New("invoice_advice_not_approved")
	ErrNotEditable          = errors.New("invoice_not_editable")
	ErrDocumentUnavailable  = errors.New("invoice_document_unavailable")
)
