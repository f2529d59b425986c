package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Letter string
	Status *int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, template *LetterTemplate) error
	Update(ctx context.Context, db *gorm.DB, template *LetterTemplate) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LetterTemplate, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, cursor *pagination.TimeCursor, limit int) ([]*LetterTemplate, error)
}
