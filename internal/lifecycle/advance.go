package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const gccTable = "gccs"

// Advance moves a certificate from one status to the next with a compare-and-set
// update stamped with now. Zero affected rows means the certificate was not in from.
func Advance(ctx context.Context, db *gorm.DB, gccID snowflake.ID, from Status, now time.Time) (Status, error) {
	to, ok := from.Next()
	if !ok {
		return 0, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	if err := Transition(from, to); err != nil {
		return 0, err
	}

	res := db.WithContext(ctx).
		Table(gccTable).
		Where("id = ? AND status = ?", gccID, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": now.UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: gcc %s is not %s", ErrInvalidTransition, gccID, from)
	}
	return to, nil
}
