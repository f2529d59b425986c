package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
)

// FormFieldAnswer is a dynamic form entry. Known keys override the matching reading fields.
type FormFieldAnswer struct {
	Key   string `json:"key" validate:"required"`
	Value any    `json:"value"`
}

type CreateRequest struct {
	CustomerID       string            `json:"customer_id"`
	CustomerSiteID   string            `json:"customer_site_id"`
	Volume           *float64          `json:"volume"`
	InletPressure    *float64          `json:"inlet_pressure"`
	OutletPressure   *float64          `json:"outlet_pressure"`
	Allocation       *float64          `json:"allocation"`
	Nomination       *float64          `json:"nomination"`
	Status           *int              `json:"status"`
	Remark           string            `json:"remark"`
	ApprovedBy       int64             `json:"approved_by"`
	CreatedAt        *time.Time        `json:"created_at"`
	FormFieldAnswers []FormFieldAnswer `json:"form_field_answers" validate:"omitempty,dive"`
}

type UpdateRequest struct {
	ID               string            `json:"-"`
	Volume           *float64          `json:"volume"`
	InletPressure    *float64          `json:"inlet_pressure"`
	OutletPressure   *float64          `json:"outlet_pressure"`
	Allocation       *float64          `json:"allocation"`
	Nomination       *float64          `json:"nomination"`
	Status           *int              `json:"status"`
	Remark           *string           `json:"remark"`
	ApprovedBy       *int64            `json:"approved_by"`
	FormFieldAnswers []FormFieldAnswer `json:"form_field_answers" validate:"omitempty,dive"`
}

type ListRequest struct {
	pagination.Pagination
	CustomerID     string
	CustomerSiteID string
	Volume         *float64
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	UpdatedFrom    *time.Time
	UpdatedTo      *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	DailyVolumes []DailyVolume `json:"daily_volumes"`
}

type Service interface {
	Create(ctx context.Context, actor int64, req CreateRequest) (DailyVolume, error)
	Update(ctx context.Context, actor int64, req UpdateRequest) (DailyVolume, error)
	GetByID(ctx context.Context, id string) (DailyVolume, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Delete(ctx context.Context, id string) error
	// ListInWindow returns the ledger rows for a site in [start, end), oldest first.
	ListInWindow(ctx context.Context, customerID, siteID snowflake.ID, start, end time.Time) ([]DailyVolume, error)
}

var (
	ErrInvalidID               = errors.New("invalid_id")
	ErrInvalidCustomer         = errors.New("invalid_customer_id")
	ErrInvalidSite             = errors.New("invalid_customer_site_id")
	ErrInvalidVolume           = errors.New("invalid_volume")
	ErrInvalidFormFieldAnswers = errors.New("invalid_form_field_answers")
	ErrInvalidCursor           = errors.New("invalid_page_token")
	ErrNotFound                = errors.New("daily_volume_not_found")
	ErrVolumeInUse             = errors.New("daily_volume_in_use")
)
