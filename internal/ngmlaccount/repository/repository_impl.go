package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/ngmlaccount/domain"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.NgmlAccount) error {
	return db.WithContext(ctx).Create(account).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, account *domain.NgmlAccount) error {
	return db.WithContext(ctx).
		Model(&domain.NgmlAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"bank_name":      account.BankName,
			"bank_address":   account.BankAddress,
			"account_name":   account.AccountName,
			"account_number": account.AccountNumber,
			"sort_code":      account.SortCode,
			"tin":            account.TIN,
			"updated_at":     account.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.NgmlAccount{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.NgmlAccount, error) {
	return r.first(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB) (*domain.NgmlAccount, error) {
	return r.first(db.WithContext(ctx).Order("created_at desc, id desc"))
}

func (r *repo) first(stmt *gorm.DB) (*domain.NgmlAccount, error) {
	var account domain.NgmlAccount
	if err := stmt.Limit(1).Find(&account).Error; err != nil {
		return nil, err
	}
	if account.ID == 0 {
		return nil, nil
	}
	return &account, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, cursor *pagination.TimeCursor, limit int) ([]*domain.NgmlAccount, error) {
	var accounts []*domain.NgmlAccount
	stmt := db.WithContext(ctx).Model(&domain.NgmlAccount{})
	for column, value := range map[string]string{
		"bank_name":      filter.BankName,
		"bank_address":   filter.BankAddress,
		"account_name":   filter.AccountName,
		"account_number": filter.AccountNumber,
		"sort_code":      filter.SortCode,
		"tin":            filter.TIN,
	} {
		if value != "" {
			stmt = stmt.Where(column+" LIKE ?", "%"+value+"%")
		}
	}
	if cursor != nil {
		stmt = stmt.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit + 1)
	}
	if err := stmt.Order("created_at desc, id desc").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
