package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	CustomerID     snowflake.ID
	CustomerSiteID snowflake.ID
	WithVat        *bool
	Status         *lifecycle.Status
	DateFrom       *time.Time
	DateTo         *time.Time
}

type ApprovalFilter struct {
	InvoiceAdviceID snowflake.ID
	UserID          int64
	ApprovalFor     ApprovalFor
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, advice *InvoiceAdvice) error
	InsertListItems(ctx context.Context, db *gorm.DB, items []InvoiceAdviceListItem) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// SetStatus reports false when the advice was not in from.
	SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to lifecycle.Status, now time.Time) (bool, error)

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InvoiceAdvice, error)
	FindByGccID(ctx context.Context, db *gorm.DB, gccID snowflake.ID) (*InvoiceAdvice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, cursor *pagination.TimeCursor, limit int) ([]*InvoiceAdvice, error)
	ListItems(ctx context.Context, db *gorm.DB, adviceID snowflake.ID) ([]InvoiceAdviceListItem, error)

	InsertApproval(ctx context.Context, db *gorm.DB, approval *InvoiceAdviceApproval) error
	FindApprovalByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InvoiceAdviceApproval, error)
	CountApprovals(ctx context.Context, db *gorm.DB, adviceID snowflake.ID) (int64, error)
	ListApprovals(ctx context.Context, db *gorm.DB, filter ApprovalFilter, cursor *pagination.TimeCursor, limit int) ([]*InvoiceAdviceApproval, error)
	ApprovalsFor(ctx context.Context, db *gorm.DB, adviceID snowflake.ID) ([]InvoiceAdviceApproval, error)
}
