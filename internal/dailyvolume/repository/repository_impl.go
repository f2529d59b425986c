package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"gorm.io/gorm"
)

// referencingTables hold rows that copy a daily volume id.
var referencingTables = []string{"gcc_list_items", "invoice_advice_list_items"}

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, volume *domain.DailyVolume) error {
	return db.WithContext(ctx).Create(volume).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, volume *domain.DailyVolume) error {
	return db.WithContext(ctx).
		Model(&domain.DailyVolume{}).
		Where("id = ?", volume.ID).
		Updates(map[string]any{
			"volume":             volume.Volume,
			"inlet_pressure":     volume.InletPressure,
			"outlet_pressure":    volume.OutletPressure,
			"allocation":         volume.Allocation,
			"nomination":         volume.Nomination,
			"status":             volume.Status,
			"remark":             volume.Remark,
			"approved_by":        volume.ApprovedBy,
			"form_field_answers": volume.FormFieldAnswers,
			"updated_at":         volume.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.DailyVolume{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.DailyVolume, error) {
	var volume domain.DailyVolume
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&volume).Error
	if err != nil {
		return nil, err
	}
	if volume.ID == 0 {
		return nil, nil
	}
	return &volume, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, cursor *pagination.TimeCursor, limit int) ([]*domain.DailyVolume, error) {
	var volumes []*domain.DailyVolume
	stmt := db.WithContext(ctx).Model(&domain.DailyVolume{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.CustomerSiteID != 0 {
		stmt = stmt.Where("customer_site_id = ?", filter.CustomerSiteID)
	}
	if filter.Volume != nil {
		stmt = stmt.Where("volume = ?", *filter.Volume)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", filter.CreatedTo.UTC())
	}
	if filter.UpdatedFrom != nil {
		stmt = stmt.Where("updated_at >= ?", filter.UpdatedFrom.UTC())
	}
	if filter.UpdatedTo != nil {
		stmt = stmt.Where("updated_at <= ?", filter.UpdatedTo.UTC())
	}
	if cursor != nil {
		stmt = stmt.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit + 1)
	}

	if err := stmt.Order("created_at desc, id desc").Find(&volumes).Error; err != nil {
		return nil, err
	}
	return volumes, nil
}

func (r *repo) ListInWindow(ctx context.Context, db *gorm.DB, customerID, siteID snowflake.ID, start, end time.Time) ([]*domain.DailyVolume, error) {
	var volumes []*domain.DailyVolume
	err := db.WithContext(ctx).
		Where("customer_id = ? AND customer_site_id = ?", customerID, siteID).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Order("created_at asc, id asc").
		Find(&volumes).Error
	if err != nil {
		return nil, err
	}
	return volumes, nil
}

func (r *repo) IsReferenced(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	for _, table := range referencingTables {
		var count int64
		err := db.WithContext(ctx).
			Table(table).
			Where("daily_volume_id = ?", id).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}
