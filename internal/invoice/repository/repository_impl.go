package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/invoice/domain"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	pkgrepo "github.com/smallbiznis/gascustody/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Save(invoice).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Invoice{}).Error
}

func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to lifecycle.Status, now time.Time) (bool, error) {
	return pkgrepo.SetStatus(ctx, db, domain.Invoice{}.TableName(), id, from, to, now)
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return findInvoice(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByAdviceID(ctx context.Context, db *gorm.DB, adviceID snowflake.ID) (*domain.Invoice, error) {
	return findInvoice(db.WithContext(ctx).Where("invoice_advice_id = ?", adviceID))
}

func findInvoice(stmt *gorm.DB) (*domain.Invoice, error) {
	return pkgrepo.FindOne[domain.Invoice](stmt, func(i *domain.Invoice) bool { return i.ID != 0 })
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, cursor *pagination.TimeCursor, limit int) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if number := strings.TrimSpace(filter.InvoiceNumber); number != "" {
		stmt = stmt.Where("invoice_number LIKE ?", "%"+number+"%")
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	stmt = pkgrepo.Keyset(stmt, cursor, limit)
	if err := stmt.Order("created_at desc, id desc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}
