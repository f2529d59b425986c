package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	lettertemplatedomain "github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
	"gorm.io/gorm"
)

const defaultLetter = "We hereby certify that the quantities of gas stated below were delivered " +
	"to the customer site for the period shown and accepted as correct."

// EnsureDefaultLetter creates the certificate letter that new GCCs point at when
// no template with that id exists yet.
func EnsureDefaultLetter(db *gorm.DB, letterID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if letterID <= 0 {
		return nil
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureLetterTemplateTx(ctx, tx, snowflake.ID(letterID))
		return err
	})
}

func ensureLetterTemplateTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (lettertemplatedomain.LetterTemplate, error) {
	var tpl lettertemplatedomain.LetterTemplate
	err := tx.WithContext(ctx).Where("id = ?", id).First(&tpl).Error
	if err == nil {
		return tpl, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return tpl, err
	}

	now := time.Now().UTC()
	tpl = lettertemplatedomain.LetterTemplate{
		ID:        id,
		Letter:    defaultLetter,
		Status:    1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&tpl).Error; err != nil {
		return tpl, err
	}
	return tpl, nil
}
