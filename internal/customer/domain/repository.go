package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, filter ListCustomerFilter, cursor *pagination.TimeCursor, limit int) ([]*Customer, error)

	InsertSite(ctx context.Context, db *gorm.DB, site *CustomerSite) error
	FindSite(ctx context.Context, db *gorm.DB, customerID, siteID snowflake.ID) (*CustomerSite, error)
	ListSites(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*CustomerSite, error)
	ListAllSites(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]*CustomerSite, error)
}
