package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/gascustody/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// List returns newest entries first. An action ending in ".*" matches every
// action under that prefix, so "gcc.*" lists the whole GCC lifecycle.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{}).Scopes(filtered(filter))

	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	stmt = stmt.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var logs []*domain.AuditLog
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func filtered(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(stmt *gorm.DB) *gorm.DB {
		if action := strings.TrimSpace(filter.Action); action != "" {
			if prefix, ok := strings.CutSuffix(action, ".*"); ok {
				stmt = stmt.Where("action LIKE ?", prefix+".%")
			} else {
				stmt = stmt.Where("action = ?", action)
			}
		}
		for column, value := range map[string]string{
			"target_type": filter.TargetType,
			"target_id":   filter.TargetID,
			"actor_type":  filter.ActorType,
			"actor_id":    filter.ActorID,
		} {
			if value = strings.TrimSpace(value); value != "" {
				stmt = stmt.Where(column+" = ?", value)
			}
		}
		if filter.StartAt != nil {
			stmt = stmt.Where("created_at >= ?", filter.StartAt.UTC())
		}
		if filter.EndAt != nil {
			stmt = stmt.Where("created_at <= ?", filter.EndAt.UTC())
		}
		return stmt
	}
}
