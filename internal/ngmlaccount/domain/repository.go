package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter matches each non-empty field with LIKE.
type ListFilter struct {
	BankName      string
	BankAddress   string
	AccountName   string
	AccountNumber string
	SortCode      string
	TIN           string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *NgmlAccount) error
	Update(ctx context.Context, db *gorm.DB, account *NgmlAccount) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*NgmlAccount, error)
	FindLatest(ctx context.Context, db *gorm.DB) (*NgmlAccount, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, cursor *pagination.TimeCursor, limit int) ([]*NgmlAccount, error)
}
