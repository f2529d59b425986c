package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
)

// CreateRequest raises an advice. With GccID set the customer, site, window and
// defaults come from the certificate; otherwise CustomerID and CustomerSiteID
// are required and the previous calendar month is billed.
type CreateRequest struct {
	GccID               string           `json:"gcc_id"`
	CustomerID          string           `json:"customer_id"`
	CustomerSiteID      string           `json:"customer_site_id"`
	WithVat             *bool            `json:"with_vat"`
	CapexRecoveryAmount *decimal.Decimal `json:"capex_recovery_amount"`
	Department          string           `json:"department" validate:"omitempty,max=255"`
	Date                *time.Time       `json:"date"`
}

type ApproveRequest struct {
	ID          string      `json:"-"`
	ApprovalFor ApprovalFor `json:"approval_for" validate:"required,oneof=checked confirmed approved"`
}

type ListRequest struct {
	pagination.Pagination
	CustomerID     string
	CustomerSiteID string
	WithVat        *bool
	Status         string
	DateFrom       *time.Time
	DateTo         *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	InvoiceAdvices []InvoiceAdvice `json:"invoice_advices"`
}

type ListApprovalsRequest struct {
	pagination.Pagination
	InvoiceAdviceID string
	UserID          int64
	ApprovalFor     string
}

type ListApprovalsResponse struct {
	pagination.PageInfo
	Approvals []InvoiceAdviceApproval `json:"approvals"`
}

type Service interface {
	Create(ctx context.Context, actor int64, req CreateRequest) (Detail, error)
	Approve(ctx context.Context, actor int64, req ApproveRequest) (Detail, error)
	GetByID(ctx context.Context, id string) (Detail, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	ListItems(ctx context.Context, id string) ([]InvoiceAdviceListItem, error)
	ListApprovals(ctx context.Context, req ListApprovalsRequest) (ListApprovalsResponse, error)
	GetApproval(ctx context.Context, id string) (InvoiceAdviceApproval, error)
	Delete(ctx context.Context, actor int64, id string) error
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidGcc         = errors.New("invalid_gcc_id")
	ErrInvalidCustomer    = errors.New("invalid_customer_id")
	ErrInvalidSite        = errors.New("invalid_customer_site_id")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidApprovalFor = errors.New("invalid_approval_for")
	ErrInvalidCursor      = errors.New("invalid_page_token")
	ErrNotFound           = errors.New("invoice_advice_not_found")
	ErrApprovalNotFound   = errors.New("invoice_advice_approval_not_found")
	ErrAlreadyExists      = errors.New("invoice_advice_already_exists")
	ErrGccNotReady        = errors.New("gcc_not_approved_by_customer")
	ErrAlreadyApproved    = errors.New("invoice_advice_already_approved")
	ErrApprovalOutOfOrder = errors.New("invoice_advice_approval_out_of_order")
	ErrNotDeletable       = errors.New("invoice_advice_not_deletable")
)
