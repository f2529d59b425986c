package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/customer/domain"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	clock    clock.Clock
	validate *validator.Validate
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("customer.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    c,
		validate: validator.New(),
	}
}

// Create registers a billable customer. GCC approval links are mailed to
// Email, so it must parse as an address.
func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	customer := domain.Customer{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Phone:    strings.TrimSpace(req.Phone),
		Address:  strings.TrimSpace(req.Address),
		Metadata: datatypes.JSONMap{},
	}
	if customer.Name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}
	if s.validate.Var(customer.Email, "required,email") != nil {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	customer.ID = s.genID.Generate()
	customer.CreatedAt = s.clock.Now()
	customer.UpdatedAt = customer.CreatedAt
	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	cursor, err := pagination.ParseTimeCursor(req.PageToken, parseInt64)
	if err != nil {
		return domain.ListCustomerResponse{}, domain.ErrInvalidCursor
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, domain.ListCustomerFilter{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
	}, cursor, limit)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(c *domain.Customer) pagination.Cursor {
		return pagination.Cursor{ID: c.ID.String(), CreatedAt: c.CreatedAt.Format(time.RFC3339Nano)}
	})

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	return domain.ListCustomerResponse{PageInfo: pageInfo, Customers: customers}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	customerID, err := parseID(id)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) CreateSite(ctx context.Context, req domain.CreateSiteRequest) (domain.CustomerSite, error) {
	customer, err := s.GetByID(ctx, req.CustomerID)
	if err != nil {
		return domain.CustomerSite{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CustomerSite{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	site := domain.CustomerSite{
		ID:         s.genID.Generate(),
		CustomerID: customer.ID,
		Name:       name,
		Address:    strings.TrimSpace(req.Address),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertSite(ctx, s.db, &site); err != nil {
		return domain.CustomerSite{}, err
	}

	s.log.Info("customer site created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("site_id", site.ID.String()),
	)
	return site, nil
}

func (s *Service) ListSites(ctx context.Context, customerID string) ([]domain.CustomerSite, error) {
	customer, err := s.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListSites(ctx, s.db, customer.ID)
	if err != nil {
		return nil, err
	}
	return values(items), nil
}

func (s *Service) ResolveSite(ctx context.Context, customerID, siteID snowflake.ID) (domain.Customer, domain.CustomerSite, error) {
	if customerID == 0 || siteID == 0 {
		return domain.Customer{}, domain.CustomerSite{}, domain.ErrInvalidID
	}

	customer, err := s.repo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Customer{}, domain.CustomerSite{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.CustomerSite{}, domain.ErrNotFound
	}

	site, err := s.repo.FindSite(ctx, s.db, customerID, siteID)
	if err != nil {
		return domain.Customer{}, domain.CustomerSite{}, err
	}
	if site == nil {
		return domain.Customer{}, domain.CustomerSite{}, domain.ErrSiteNotFound
	}

	return *customer, *site, nil
}

func (s *Service) ListAllSites(ctx context.Context, afterID snowflake.ID, limit int) ([]domain.CustomerSite, error) {
	items, err := s.repo.ListAllSites(ctx, s.db, afterID, limit)
	if err != nil {
		return nil, err
	}
	return values(items), nil
}

func values[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseInt64(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}
