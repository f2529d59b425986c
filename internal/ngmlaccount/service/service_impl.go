package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/ngmlaccount/domain"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:      p.Log.Named("ngmlaccount.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    c,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.NgmlAccount, error) {
	req = domain.CreateRequest{
		BankName:      strings.TrimSpace(req.BankName),
		BankAddress:   strings.TrimSpace(req.BankAddress),
		AccountName:   strings.TrimSpace(req.AccountName),
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		SortCode:      strings.TrimSpace(req.SortCode),
		TIN:           strings.TrimSpace(req.TIN),
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.NgmlAccount{}, err
	}

	now := s.clock.Now().UTC()
	account := domain.NgmlAccount{
		ID:            s.genID.Generate(),
		BankName:      req.BankName,
		BankAddress:   req.BankAddress,
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		SortCode:      req.SortCode,
		TIN:           req.TIN,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, &account); err != nil {
		s.log.Error("failed to create ngml account", zap.Error(err))
		return domain.NgmlAccount{}, err
	}

	s.log.Info("ngml account created", zap.String("ngml_account_id", account.ID.String()))
	return account, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.NgmlAccount, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.NgmlAccount{}, err
	}
	for _, field := range []**string{
		&req.BankName, &req.BankAddress, &req.AccountName,
		&req.AccountNumber, &req.SortCode, &req.TIN,
	} {
		if *field != nil {
			trimmed := strings.TrimSpace(**field)
			*field = &trimmed
		}
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.NgmlAccount{}, err
	}

	var updated domain.NgmlAccount
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		assign(&existing.BankName, req.BankName)
		assign(&existing.BankAddress, req.BankAddress)
		assign(&existing.AccountName, req.AccountName)
		assign(&existing.AccountNumber, req.AccountNumber)
		assign(&existing.SortCode, req.SortCode)
		assign(&existing.TIN, req.TIN)
		existing.UpdatedAt = s.clock.Now().UTC()

		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		updated = *existing
		return nil
	})
	if err != nil {
		return domain.NgmlAccount{}, err
	}
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.NgmlAccount, error) {
	accountID, err := parseID(id)
	if err != nil {
		return domain.NgmlAccount{}, err
	}
	account, err := s.repo.FindByID(ctx, s.db, accountID)
	if err != nil {
		return domain.NgmlAccount{}, err
	}
	if account == nil {
		return domain.NgmlAccount{}, domain.ErrNotFound
	}
	return *account, nil
}

func (s *Service) Default(ctx context.Context) (domain.NgmlAccount, error) {
	account, err := s.repo.FindLatest(ctx, s.db)
	if err != nil {
		return domain.NgmlAccount{}, err
	}
	if account == nil {
		return domain.NgmlAccount{}, domain.ErrNotFound
	}
	return *account, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	cursor, err := pagination.ParseTimeCursor(req.PageToken, func(v string) (int64, error) {
		return strconv.ParseInt(v, 10, 64)
	})
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidCursor
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, req.ListFilter, cursor, limit)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(a *domain.NgmlAccount) pagination.Cursor {
		return pagination.Cursor{ID: a.ID.String(), CreatedAt: a.CreatedAt.Format(time.RFC3339Nano)}
	})
	out := make([]domain.NgmlAccount, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, NgmlAccounts: out}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	accountID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		return s.repo.Delete(ctx, tx, accountID)
	})
}

func assign(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
