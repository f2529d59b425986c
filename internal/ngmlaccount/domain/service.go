package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/gascustody/pkg/db/pagination"
)

type CreateRequest struct {
	BankName      string `json:"bank_name" validate:"required,max=255"`
	BankAddress   string `json:"bank_address" validate:"required,max=255"`
	AccountName   string `json:"account_name" validate:"required,max=255"`
	AccountNumber string `json:"account_number" validate:"required,max=255"`
	SortCode      string `json:"sort_code" validate:"required,max=255"`
	TIN           string `json:"tin" validate:"required,max=255"`
}

// UpdateRequest changes only the fields that are set; set fields may not be blank.
type UpdateRequest struct {
	ID            string  `json:"-"`
	BankName      *string `json:"bank_name" validate:"omitnil,min=1,max=255"`
	BankAddress   *string `json:"bank_address" validate:"omitnil,min=1,max=255"`
	AccountName   *string `json:"account_name" validate:"omitnil,min=1,max=255"`
	AccountNumber *string `json:"account_number" validate:"omitnil,min=1,max=255"`
	SortCode      *string `json:"sort_code" validate:"omitnil,min=1,max=255"`
	TIN           *string `json:"tin" validate:"omitnil,min=1,max=255"`
}

type ListRequest struct {
	pagination.Pagination
	ListFilter
}

type ListResponse struct {
	pagination.PageInfo
	NgmlAccounts []NgmlAccount `json:"ngml_accounts"`
}

type Service interface {
	Create(context.Context, CreateRequest) (NgmlAccount, error)
	Update(context.Context, UpdateRequest) (NgmlAccount, error)
	GetByID(ctx context.Context, id string) (NgmlAccount, error)
	// Default returns the most recently created account, used for invoice remittance.
	Default(ctx context.Context) (NgmlAccount, error)
	List(context.Context, ListRequest) (ListResponse, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidCursor = errors.New("invalid_page_token")
	ErrNotFound      = errors.New("ngml_account_not_found")
)
