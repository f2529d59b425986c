package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/gcc/domain"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	pkgrepo "github.com/smallbiznis/gascustody/pkg/repository"
	"gorm.io/gorm"
)

const listItemBatchSize = 200

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, gcc *domain.Gcc) error {
	return db.WithContext(ctx).Create(gcc).Error
}

func (r *repo) InsertListItems(ctx context.Context, db *gorm.DB, items []domain.GccListItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(items, listItemBatchSize).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).Where("gcc_id = ?", id).Delete(&domain.GccListItem{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Gcc{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Gcc, error) {
	return findGcc(db.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindForPeriod(ctx context.Context, db *gorm.DB, customerID, siteID snowflake.ID, periodStart time.Time) (*domain.Gcc, error) {
	return findGcc(db.WithContext(ctx).
		Where("customer_id = ? AND customer_site_id = ? AND period_start = ?", customerID, siteID, periodStart.UTC()))
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB, customerID, siteID snowflake.ID) (*domain.Gcc, error) {
	return findGcc(db.WithContext(ctx).
		Where("customer_id = ? AND customer_site_id = ?", customerID, siteID).
		Order("created_at desc, id desc"))
}

func findGcc(stmt *gorm.DB) (*domain.Gcc, error) {
	return pkgrepo.FindOne[domain.Gcc](stmt, func(g *domain.Gcc) bool { return g.ID != 0 })
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, cursor *pagination.TimeCursor, limit int) ([]*domain.Gcc, error) {
	var gccs []*domain.Gcc
	stmt := db.WithContext(ctx).Model(&domain.Gcc{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.CustomerSiteID != 0 {
		stmt = stmt.Where("customer_site_id = ?", filter.CustomerSiteID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	stmt = pkgrepo.Keyset(stmt, cursor, limit)
	if err := stmt.Order("created_at desc, id desc").Find(&gccs).Error; err != nil {
		return nil, err
	}
	return gccs, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, gccID snowflake.ID) ([]domain.GccListItem, error) {
	items := []domain.GccListItem{}
	err := db.WithContext(ctx).
		Where("gcc_id = ?", gccID).
		Order("original_date asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertAdminApproval(ctx context.Context, db *gorm.DB, approval *domain.GccApprovedByAdmin) error {
	return db.WithContext(ctx).Create(approval).Error
}

func (r *repo) InsertCustomerApproval(ctx context.Context, db *gorm.DB, approval *domain.GccApprovedByCustomer) error {
	return db.WithContext(ctx).Create(approval).Error
}

func (r *repo) FindAdminApproval(ctx context.Context, db *gorm.DB, gccID snowflake.ID) (*domain.GccApprovedByAdmin, error) {
	return pkgrepo.FindOne[domain.GccApprovedByAdmin](db.WithContext(ctx).Where("gcc_id = ?", gccID), func(a *domain.GccApprovedByAdmin) bool { return a.ID != 0 })
}

func (r *repo) FindCustomerApproval(ctx context.Context, db *gorm.DB, gccID snowflake.ID) (*domain.GccApprovedByCustomer, error) {
	return pkgrepo.FindOne[domain.GccApprovedByCustomer](db.WithContext(ctx).Where("gcc_id = ?", gccID), func(a *domain.GccApprovedByCustomer) bool { return a.ID != 0 })
}

func (r *repo) FindAdminApprovalByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.GccApprovedByAdmin, error) {
	return pkgrepo.FindOne[domain.GccApprovedByAdmin](db.WithContext(ctx).Where("id = ?", id), func(a *domain.GccApprovedByAdmin) bool { return a.ID != 0 })
}

func (r *repo) FindCustomerApprovalByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.GccApprovedByCustomer, error) {
	return pkgrepo.FindOne[domain.GccApprovedByCustomer](db.WithContext(ctx).Where("id = ?", id), func(a *domain.GccApprovedByCustomer) bool { return a.ID != 0 })
}

func (r *repo) ListAdminApprovals(ctx context.Context, db *gorm.DB, filter domain.ApprovalFilter, cursor *pagination.TimeCursor, limit int) ([]*domain.GccApprovedByAdmin, error) {
	var approvals []*domain.GccApprovedByAdmin
	stmt := approvalFilter(db.WithContext(ctx).Model(&domain.GccApprovedByAdmin{}), filter)
	stmt = pkgrepo.Keyset(stmt, cursor, limit)
	if err := stmt.Order("created_at desc, id desc").Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *repo) ListCustomerApprovals(ctx context.Context, db *gorm.DB, filter domain.ApprovalFilter, cursor *pagination.TimeCursor, limit int) ([]*domain.GccApprovedByCustomer, error) {
	var approvals []*domain.GccApprovedByCustomer
	stmt := approvalFilter(db.WithContext(ctx).Model(&domain.GccApprovedByCustomer{}), filter)
	stmt = pkgrepo.Keyset(stmt, cursor, limit)
	if err := stmt.Order("created_at desc, id desc").Find(&approvals).Error; err != nil {
		return nil, err
	}
	return approvals, nil
}

func (r *repo) FindInvoiceAdvice(ctx context.Context, db *gorm.DB, gccID snowflake.ID) (*domain.InvoiceAdviceView, error) {
	return pkgrepo.FindOne[domain.InvoiceAdviceView](db.WithContext(ctx).Where("gcc_id = ?", gccID).Order("created_at desc"), func(v *domain.InvoiceAdviceView) bool { return v.ID != 0 })
}

func (r *repo) FindInvoice(ctx context.Context, db *gorm.DB, gccID snowflake.ID) (*domain.InvoiceView, error) {
	return pkgrepo.FindOne[domain.InvoiceView](db.WithContext(ctx).Where("gcc_id = ?", gccID).Order("created_at desc"), func(v *domain.InvoiceView) bool { return v.ID != 0 })
}

func approvalFilter(stmt *gorm.DB, filter domain.ApprovalFilter) *gorm.DB {
	if filter.GccID != 0 {
		stmt = stmt.Where("gcc_id = ?", filter.GccID)
	}
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	return stmt
}
