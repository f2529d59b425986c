package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"gorm.io/gorm"
)

// FindOne runs stmt with a limit of one row. It returns nil when found reports
// the scanned value is still zero.
func FindOne[T any](stmt *gorm.DB, found func(*T) bool) (*T, error) {
	var out T
	if err := stmt.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if !found(&out) {
		return nil, nil
	}
	return &out, nil
}

// Keyset restricts stmt to rows after cursor in created_at desc, id desc order
// and fetches one extra row so the caller can tell whether a next page exists.
func Keyset(stmt *gorm.DB, cursor *pagination.TimeCursor, limit int) *gorm.DB {
	if cursor != nil {
		stmt = stmt.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit + 1)
	}
	return stmt
}

// SetStatus moves a row in table from one status to another and stamps
// updated_at with now. It reports false when the row was not in from.
func SetStatus[S ~int](ctx context.Context, db *gorm.DB, table string, id snowflake.ID, from, to S, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Table(table).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
