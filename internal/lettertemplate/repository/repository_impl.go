package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, template *domain.LetterTemplate) error {
	return db.WithContext(ctx).Create(template).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, template *domain.LetterTemplate) error {
	return db.WithContext(ctx).
		Model(&domain.LetterTemplate{}).
		Where("id = ?", template.ID).
		Updates(map[string]any{
			"letter":     template.Letter,
			"status":     template.Status,
			"updated_at": template.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.LetterTemplate{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.LetterTemplate, error) {
	var template domain.LetterTemplate
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&template).Error
	if err != nil {
		return nil, err
	}
	if template.ID == 0 {
		return nil, nil
	}
	return &template, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, cursor *pagination.TimeCursor, limit int) ([]*domain.LetterTemplate, error) {
	var templates []*domain.LetterTemplate
	stmt := db.WithContext(ctx).Model(&domain.LetterTemplate{})
	if filter.Letter != "" {
		stmt = stmt.Where("letter LIKE ?", "%"+filter.Letter+"%")
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if cursor != nil {
		stmt = stmt.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit + 1)
	}
	if err := stmt.Order("created_at desc, id desc").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}
