package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/smallbiznis/gascustody/pkg/db/pagination"
)

// ListItemInput is one ledger reading selected for a new certificate.
type ListItemInput struct {
	ID             string     `json:"id" validate:"required"`
	Volume         *float64   `json:"volume" validate:"required,gte=0"`
	InletPressure  float64    `json:"inlet_pressure"`
	OutletPressure float64    `json:"outlet_pressure"`
	Allocation     float64    `json:"allocation"`
	Nomination     float64    `json:"nomination"`
	CreatedAt      *time.Time `json:"created_at" validate:"required"`
	CreatedBy      int64      `json:"created_by"`
	ApprovedBy     int64      `json:"approved_by"`
}

// ListItems accepts a JSON array or a string holding a JSON array.
type ListItems []ListItemInput

func (l *ListItems) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return ErrInvalidListItem
		}
		data = []byte(encoded)
	}
	var items []ListItemInput
	if err := json.Unmarshal(data, &items); err != nil {
		return ErrInvalidListItem
	}
	*l = items
	return nil
}

type CreateRequest struct {
	CustomerID     string    `json:"customer_id" validate:"required"`
	CustomerSiteID string    `json:"customer_site_id" validate:"required"`
	ListItem       ListItems `json:"list_item" validate:"required,min=1,dive"`
}

type InitiateRequest struct {
	CustomerID     string `json:"customer_id" validate:"required"`
	CustomerSiteID string `json:"customer_site_id" validate:"required"`
}

type CustomerApprovalRequest struct {
	GccID         string `json:"-"`
	CustomerName  string `json:"customer_name" validate:"required,max=255"`
	Signature     string `json:"signature" validate:"required"`
	ApprovalToken string `json:"approval_token"`
}

type ListRequest struct {
	pagination.Pagination
	CustomerID     string
	CustomerSiteID string
	Status         string
}

type ListResponse struct {
	pagination.PageInfo
	Gccs []Gcc `json:"gccs"`
}

type ListApprovalsRequest struct {
	pagination.Pagination
	GccID      string
	CustomerID string
}

type ListAdminApprovalsResponse struct {
	pagination.PageInfo
	Approvals []GccApprovedByAdmin `json:"approvals"`
}

type ListCustomerApprovalsResponse struct {
	pagination.PageInfo
	Approvals []GccApprovedByCustomer `json:"approvals"`
}

// Certificate is a rendered certificate document.
type Certificate struct {
	FileName string
	Content  []byte
}

type Service interface {
	Create(ctx context.Context, actor int64, req CreateRequest) (Aggregate, error)
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error)
	ApproveByAdmin(ctx context.Context, actor int64, gccID string) (Aggregate, error)
	IssueCustomerApprovalToken(ctx context.Context, actor int64, gccID string) (ApprovalToken, error)
	ApproveByCustomer(ctx context.Context, req CustomerApprovalRequest) (Aggregate, error)

	GetAggregate(ctx context.Context, gccID string) (Aggregate, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Delete(ctx context.Context, actor int64, gccID string) error
	Certificate(ctx context.Context, gccID string) (Certificate, error)

	ListAdminApprovals(ctx context.Context, req ListApprovalsRequest) (ListAdminApprovalsResponse, error)
	ListCustomerApprovals(ctx context.Context, req ListApprovalsRequest) (ListCustomerApprovalsResponse, error)
	GetAdminApproval(ctx context.Context, id string) (GccApprovedByAdmin, error)
	GetCustomerApproval(ctx context.Context, id string) (GccApprovedByCustomer, error)
}

var (
	ErrInvalidID              = errors.New("invalid_id")
	ErrInvalidCustomer        = errors.New("invalid_customer_id")
	ErrInvalidSite            = errors.New("invalid_customer_site_id")
	ErrInvalidListItem        = errors.New("invalid_list_item")
	ErrDuplicateListItem      = errors.New("duplicate_list_item")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidCursor          = errors.New("invalid_page_token")
	ErrGccNotFound            = errors.New("gcc_not_found")
	ErrApprovalNotFound       = errors.New("gcc_approval_not_found")
	ErrGccAlreadyExists       = errors.New("gcc_already_exists")
	ErrAlreadyApproved        = errors.New("gcc_already_approved")
	ErrNotAwaitingApproval    = errors.New("gcc_not_awaiting_approval")
	ErrApprovalTokenInvalid   = errors.New("approval_token_invalid")
	ErrGccNotDeletable        = errors.New("gcc_not_deletable")
	ErrCertificateUnavailable = errors.New("certificate_unavailable")
)
