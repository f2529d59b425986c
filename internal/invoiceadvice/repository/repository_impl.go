package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/invoiceadvice/domain"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	pkgrepo "github.com/smallbiznis/gascustody/pkg/repository"
	"gorm.io/gorm"
)

const listItemBatchSize = 200

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, advice *domain.InvoiceAdvice) error {
	return db.WithContext(ctx).Create(advice).Error
}

func (r *repo) InsertListItems(ctx context.Context, db *gorm.DB, items []domain.InvoiceAdviceListItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(items, listItemBatchSize).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Where("invoice_advice_id = ?", id).Delete(&domain.InvoiceAdviceListItem{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.InvoiceAdvice{}).Error
}

func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to lifecycle.Status, now time.Time) (bool, error) {
	return pkgrepo.SetStatus(ctx, db, domain.InvoiceAdvice{}.TableName(), id, from, to, now)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.InvoiceAdvice, error) {
	return findAdvice(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByGccID(ctx context.Context, db *gorm.DB, gccID snowflake.ID) (*domain.InvoiceAdvice, error) {
	return findAdvice(db.WithContext(ctx).Where("gcc_id = ?", gccID))
}

func findAdvice(stmt *gorm.DB) (*domain.InvoiceAdvice, error) {
	return pkgrepo.FindOne[domain.InvoiceAdvice](stmt, func(a *domain.InvoiceAdvice) bool { return a.ID != 0 })
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, cursor *pagination.TimeCursor, limit int) ([]*domain.InvoiceAdvice, error) {
	var advices []*domain.InvoiceAdvice
	stmt := db.WithContext(ctx).Model(&domain.InvoiceAdvice{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.CustomerSiteID != 0 {
		stmt = stmt.Where("customer_site_id = ?", filter.CustomerSiteID)
	}
	if filter.WithVat != nil {
		stmt = stmt.Where("with_vat = ?", *filter.WithVat)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.DateFrom != nil {
		stmt = stmt.Where("date >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		stmt = stmt.Where("date <= ?", filter.DateTo.UTC())
	}
	stmt = pkgrepo.Keyset(stmt, cursor, limit)
	if err := stmt.Order("created_at desc, id desc").Find(&advices).Error; err != nil {
		return nil, err
	}
	return advices, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, adviceID snowflake.ID) ([]domain.InvoiceAdviceListItem, error) {
	items := []domain.InvoiceAdviceListItem{}
	err := db.WithContext(ctx).
		Where("invoice_advice_id = ?", adviceID).
		Order("date asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertApproval(ctx context.Context, db *gorm.DB, approval *domain.InvoiceAdviceApproval) error {
	return db.WithContext(ctx).Create(approval).Error
}

func (r *repo) FindApprovalByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.InvoiceAdviceApproval, error) {
	return pkgrepo.FindOne[domain.InvoiceAdviceApproval](db.WithContext(ctx).Where("id = ?", id), func(a *domain.InvoiceAdviceApproval) bool { return a.ID != 0 })
}

func (r *repo) CountApprovals(ctx context.Context, db *gorm.DB, adviceID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.InvoiceAdviceApproval{}).Where("invoice_advice_id = ?", adviceID).Count(&count).Error
	return count, err
}

func (r *repo) ListApprovals(ctx context.Context, db *gorm.DB, filter domain.ApprovalFilter, cursor *pagination.TimeCursor, limit int) ([]*domain.InvoiceAdviceApproval, error) {
	var approvals []*domain.InvoiceAdviceApproval
	stmt := db.WithContext(ctx).Model(&domain.InvoiceAdviceApproval{})
	if filter.InvoiceAdviceID != 0 {
		stmt = stmt.Where("invoice_advice_id = ?", filter.InvoiceAdviceID)
	}
	if filter.UserID != 0 {
		stmt = stmt.Where("user_id = ?", filter.UserID)
	}
	if filter.ApprovalFor != "" {
		stmt = stmt.Where("approval_for = ?", filter.ApprovalFor)
	}
	stmt = pkgrepo.Keyset(stmt, cursor, limit)
	if err := stmt.Order("created_at desc, id desc").Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *repo) ApprovalsFor(ctx context.Context, db *gorm.DB, adviceID snowflake.ID) ([]domain.InvoiceAdviceApproval, error) {
	approvals := []domain.InvoiceAdviceApproval{}
	err := db.WithContext(ctx).
		Where("invoice_advice_id = ?", adviceID).
		Order("created_at asc, id asc").
		Find(&approvals).Error
	if err != nil {
		return nil, err
	}
	return approvals, nil
}
