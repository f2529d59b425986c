package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	CustomerID     snowflake.ID
	CustomerSiteID snowflake.ID
	Volume         *float64
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	UpdatedFrom    *time.Time
	UpdatedTo      *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, volume *DailyVolume) error
	Update(ctx context.Context, db *gorm.DB, volume *DailyVolume) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*DailyVolume, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, cursor *pagination.TimeCursor, limit int) ([]*DailyVolume, error)
	// ListInWindow returns rows with start <= created_at < end ordered by created_at.
	ListInWindow(ctx context.Context, db *gorm.DB, customerID, siteID snowflake.ID, start, end time.Time) ([]*DailyVolume, error)
	IsReferenced(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
