package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
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
		log:      p.Log.Named("lettertemplate.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    c,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.LetterTemplate, error) {
	req.Letter = strings.TrimSpace(req.Letter)
	if err := s.validate.Struct(req); err != nil {
		return domain.LetterTemplate{}, err
	}

	now := s.clock.Now().UTC()
	template := domain.LetterTemplate{
		ID:        s.genID.Generate(),
		Letter:    req.Letter,
		Status:    *req.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &template); err != nil {
		s.log.Error("failed to create letter template", zap.Error(err))
		return domain.LetterTemplate{}, err
	}

	s.log.Info("letter template created", zap.String("letter_template_id", template.ID.String()))
	return template, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.LetterTemplate, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return domain.LetterTemplate{}, err
	}
	if req.Letter != nil {
		trimmed := strings.TrimSpace(*req.Letter)
		if trimmed == "" {
			return domain.LetterTemplate{}, domain.ErrInvalidLetter
		}
		req.Letter = &trimmed
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.LetterTemplate{}, err
	}

	var updated domain.LetterTemplate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if req.Letter != nil {
			existing.Letter = *req.Letter
		}
		if req.Status != nil {
			existing.Status = *req.Status
		}
		existing.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		updated = *existing
		return nil
	})
	if err != nil {
		return domain.LetterTemplate{}, err
	}
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.LetterTemplate, error) {
	templateID, err := parseID(id)
	if err != nil {
		return domain.LetterTemplate{}, err
	}
	template, err := s.repo.FindByID(ctx, s.db, templateID)
	if err != nil {
		return domain.LetterTemplate{}, err
	}
	if template == nil {
		return domain.LetterTemplate{}, domain.ErrNotFound
	}
	return *template, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	cursor, err := pagination.ParseTimeCursor(req.PageToken, func(v string) (int64, error) {
		return strconv.ParseInt(v, 10, 64)
	})
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidCursor
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Letter: strings.TrimSpace(req.Letter),
		Status: req.Status,
	}, cursor, limit)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(t *domain.LetterTemplate) pagination.Cursor {
		return pagination.Cursor{ID: t.ID.String(), CreatedAt: t.CreatedAt.Format(time.RFC3339Nano)}
	})
	out := make([]domain.LetterTemplate, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, LetterTemplates: out}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	templateID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, templateID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		return s.repo.Delete(ctx, tx, templateID)
	})
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
