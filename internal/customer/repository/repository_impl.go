package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gascustody/internal/customer/domain"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, cursor *pagination.TimeCursor, limit int) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).Model(&domain.Customer{})
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", filter.CreatedTo.UTC())
	}
	if cursor != nil {
		stmt = stmt.Where("((created_at < ?) OR (created_at = ? AND id < ?))",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		stmt = stmt.Limit(limit + 1)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) InsertSite(ctx context.Context, db *gorm.DB, site *domain.CustomerSite) error {
	return db.WithContext(ctx).Create(site).Error
}

func (r *repo) FindSite(ctx context.Context, db *gorm.DB, customerID, siteID snowflake.ID) (*domain.CustomerSite, error) {
	var site domain.CustomerSite
	err := db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", siteID, customerID).
		Limit(1).
		Find(&site).Error
	if err != nil {
		return nil, err
	}
	if site.ID == 0 {
		return nil, nil
	}
	return &site, nil
}

func (r *repo) ListSites(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*domain.CustomerSite, error) {
	var sites []*domain.CustomerSite
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at asc, id asc").
		Find(&sites).Error
	if err != nil {
		return nil, err
	}
	return sites, nil
}

func (r *repo) ListAllSites(ctx context.Context, db *gorm.DB, afterID snowflake.ID, limit int) ([]*domain.CustomerSite, error) {
	var sites []*domain.CustomerSite
	stmt := db.WithContext(ctx).Where("id > ?", afterID).Order("id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}
