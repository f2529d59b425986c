package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
)

type ListCustomerRequest struct {
	pagination.Pagination
	Name        string
	Email       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerFilter struct {
	Name        string
	Email       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type CreateSiteRequest struct {
	CustomerID string `json:"-"`
	Name       string `json:"name"`
	Address    string `json:"address"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(ctx context.Context, id string) (Customer, error)

	CreateSite(context.Context, CreateSiteRequest) (CustomerSite, error)
	ListSites(ctx context.Context, customerID string) ([]CustomerSite, error)
	// ResolveSite confirms the site exists and belongs to the customer.
	ResolveSite(ctx context.Context, customerID, siteID snowflake.ID) (Customer, CustomerSite, error)
	// ListAllSites pages through every site ordered by id.
	ListAllSites(ctx context.Context, afterID snowflake.ID, limit int) ([]CustomerSite, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("customer_not_found")
	ErrSiteNotFound  = errors.New("customer_site_not_found")
	ErrInvalidCursor = errors.New("invalid_page_token")
)
