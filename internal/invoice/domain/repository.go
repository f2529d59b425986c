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
	Status        *lifecycle.Status
	InvoiceNumber string
	CustomerID    snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// SetStatus reports false when the invoice was not in from.
	SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to lifecycle.Status, now time.Time) (bool, error)

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByAdviceID(ctx context.Context, db *gorm.DB, adviceID snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, cursor *pagination.TimeCursor, limit int) ([]*Invoice, error)
}
