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
	Status         *lifecycle.Status
}

type ApprovalFilter struct {
	GccID      snowflake.ID
	CustomerID snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, gcc *Gcc) error
	InsertListItems(ctx context.Context, db *gorm.DB, items []GccListItem) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Gcc, error)
	FindForPeriod(ctx context.Context, db *gorm.DB, customerID, siteID snowflake.ID, periodStart time.Time) (*Gcc, error)
	FindLatest(ctx context.Context, db *gorm.DB, customerID, siteID snowflake.ID) (*Gcc, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, cursor *pagination.TimeCursor, limit int) ([]*Gcc, error)
	ListItems(ctx context.Context, db *gorm.DB, gccID snowflake.ID) ([]GccListItem, error)

	InsertAdminApproval(ctx context.Context, db *gorm.DB, approval *GccApprovedByAdmin) error
	InsertCustomerApproval(ctx context.Context, db *gorm.DB, approval *GccApprovedByCustomer) error
	FindAdminApproval(ctx context.Context, db *gorm.DB, gccID snowflake.ID) (*GccApprovedByAdmin, error)
	FindCustomerApproval(ctx context.Context, db *gorm.DB, gccID snowflake.ID) (*GccApprovedByCustomer, error)
	FindAdminApprovalByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*GccApprovedByAdmin, error)
	FindCustomerApprovalByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*GccApprovedByCustomer, error)
	ListAdminApprovals(ctx context.Context, db *gorm.DB, filter ApprovalFilter, cursor *pagination.TimeCursor, limit int) ([]*GccApprovedByAdmin, error)
	ListCustomerApprovals(ctx context.Context, db *gorm.DB, filter ApprovalFilter, cursor *pagination.TimeCursor, limit int) ([]*GccApprovedByCustomer, error)

	FindInvoiceAdvice(ctx context.Context, db *gorm.DB, gccID snowflake.ID) (*InvoiceAdviceView, error)
	FindInvoice(ctx context.Context, db *gorm.DB, gccID snowflake.ID) (*InvoiceView, error)
}
