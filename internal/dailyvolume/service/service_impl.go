package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/gascustody/internal/clock"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	"github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	"github.com/smallbiznis/gascustody/internal/events"
	"github.com/smallbiznis/gascustody/internal/observability/metrics"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Customers  customerdomain.Service
	Dispatcher *events.Dispatcher `optional:"true"`
	Metrics    *metrics.Metrics   `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	customers  customerdomain.Service
	dispatcher *events.Dispatcher
	metrics    *metrics.Metrics
	validate   *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("dailyvolume.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		customers:  p.Customers,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Create(ctx context.Context, actor int64, req domain.CreateRequest) (domain.DailyVolume, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.DailyVolume{}, err
	}

	customerID, err := parseRequiredID(req.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return domain.DailyVolume{}, err
	}
	siteID, err := parseRequiredID(req.CustomerSiteID, domain.ErrInvalidSite)
	if err != nil {
		return domain.DailyVolume{}, err
	}

	r := reading{
		volume:     req.Volume,
		inlet:      req.InletPressure,
		outlet:     req.OutletPressure,
		allocation: req.Allocation,
		nomination: req.Nomination,
		status:     req.Status,
	}
	if req.Remark != "" {
		r.remark = &req.Remark
	}

	var answers datatypes.JSONMap
	if len(req.FormFieldAnswers) > 0 {
		answers, err = applyFormFieldAnswers(&r, req.FormFieldAnswers)
		if err != nil {
			return domain.DailyVolume{}, err
		}
	}
	if r.volume == nil || !validVolume(*r.volume) {
		return domain.DailyVolume{}, domain.ErrInvalidVolume
	}

	if _, _, err := s.customers.ResolveSite(ctx, customerID, siteID); err != nil {
		return domain.DailyVolume{}, err
	}

	now := s.clock.Now().UTC()
	createdAt := now
	if req.CreatedAt != nil && !req.CreatedAt.IsZero() {
		createdAt = req.CreatedAt.UTC()
	}
	if answers != nil {
		// form submissions record the previous day's reading
		createdAt = createdAt.AddDate(0, 0, -1)
	}

	volume := domain.DailyVolume{
		ID:               s.genID.Generate(),
		CustomerID:       customerID,
		CustomerSiteID:   siteID,
		Status:           1,
		CreatedBy:        actor,
		ApprovedBy:       req.ApprovedBy,
		FormFieldAnswers: answers,
		CreatedAt:        createdAt,
		UpdatedAt:        now,
	}
	r.applyTo(&volume)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &volume)
	})
	if err != nil {
		s.log.Error("failed to create daily volume",
			zap.String("customer_id", customerID.String()),
			zap.String("customer_site_id", siteID.String()),
			zap.Error(err),
		)
		return domain.DailyVolume{}, err
	}

	s.metrics.RecordVolumeRecord(ctx, events.GasConsumptionCreated)
	s.dispatcher.Dispatch(ctx, events.GasConsumptionCreated, volume.ID.String(), volume)
	s.log.Info("daily volume created",
		zap.String("daily_volume_id", volume.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("customer_site_id", siteID.String()),
		zap.Float64("volume", volume.Volume),
	)
	return volume, nil
}

func (s *Service) Update(ctx context.Context, actor int64, req domain.UpdateRequest) (domain.DailyVolume, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.DailyVolume{}, err
	}
	id, err := parseRequiredID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.DailyVolume{}, err
	}

	r := reading{
		volume:     req.Volume,
		inlet:      req.InletPressure,
		outlet:     req.OutletPressure,
		allocation: req.Allocation,
		nomination: req.Nomination,
		status:     req.Status,
		remark:     req.Remark,
	}
	var answers datatypes.JSONMap
	if len(req.FormFieldAnswers) > 0 {
		answers, err = applyFormFieldAnswers(&r, req.FormFieldAnswers)
		if err != nil {
			return domain.DailyVolume{}, err
		}
	}
	if r.volume != nil && !validVolume(*r.volume) {
		return domain.DailyVolume{}, domain.ErrInvalidVolume
	}

	var updated domain.DailyVolume
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		r.applyTo(existing)
		if req.ApprovedBy != nil {
			existing.ApprovedBy = *req.ApprovedBy
		}
		if answers != nil {
			if existing.FormFieldAnswers == nil {
				existing.FormFieldAnswers = datatypes.JSONMap{}
			}
			for k, v := range answers {
				existing.FormFieldAnswers[k] = v
			}
		}
		existing.UpdatedAt = s.clock.Now().UTC()

		if err := s.repo.Update(ctx, tx, existing); err != nil {
			return err
		}
		updated = *existing
		return nil
	})
	if err != nil {
		return domain.DailyVolume{}, err
	}

	s.metrics.RecordVolumeRecord(ctx, events.GasConsumptionUpdated)
	s.dispatcher.Dispatch(ctx, events.GasConsumptionUpdated, updated.ID.String(), updated)
	s.log.Info("daily volume updated",
		zap.String("daily_volume_id", updated.ID.String()),
		zap.Int64("actor_id", actor),
	)
	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.DailyVolume, error) {
	volumeID, err := parseRequiredID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.DailyVolume{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, volumeID)
	if err != nil {
		return domain.DailyVolume{}, err
	}
	if item == nil {
		return domain.DailyVolume{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		Volume:      req.Volume,
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
		UpdatedFrom: req.UpdatedFrom,
		UpdatedTo:   req.UpdatedTo,
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseRequiredID(req.CustomerID, domain.ErrInvalidCustomer)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.CustomerID = id
	}
	if strings.TrimSpace(req.CustomerSiteID) != "" {
		id, err := parseRequiredID(req.CustomerSiteID, domain.ErrInvalidSite)
		if err != nil {
			return domain.ListResponse{}, err
		}
		filter.CustomerSiteID = id
	}

	cursor, err := pagination.ParseTimeCursor(req.PageToken, func(v string) (int64, error) {
		return strconv.ParseInt(v, 10, 64)
	})
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidCursor
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, filter, cursor, limit)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(v *domain.DailyVolume) pagination.Cursor {
		return pagination.Cursor{ID: v.ID.String(), CreatedAt: v.CreatedAt.Format(time.RFC3339Nano)}
	})
	return domain.ListResponse{PageInfo: pageInfo, DailyVolumes: deref(items)}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	volumeID, err := parseRequiredID(id, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, volumeID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		inUse, err := s.repo.IsReferenced(ctx, tx, volumeID)
		if err != nil {
			return err
		}
		if inUse {
			return domain.ErrVolumeInUse
		}
		return s.repo.Delete(ctx, tx, volumeID)
	})
}

func (s *Service) ListInWindow(ctx context.Context, customerID, siteID snowflake.ID, start, end time.Time) ([]domain.DailyVolume, error) {
	items, err := s.repo.ListInWindow(ctx, s.db, customerID, siteID, start, end)
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (r reading) applyTo(v *domain.DailyVolume) {
	if r.volume != nil {
		v.Volume = *r.volume
	}
	if r.inlet != nil {
		v.InletPressure = *r.inlet
	}
	if r.outlet != nil {
		v.OutletPressure = *r.outlet
	}
	if r.allocation != nil {
		v.Allocation = *r.allocation
	}
	if r.nomination != nil {
		v.Nomination = *r.nomination
	}
	if r.status != nil {
		v.Status = *r.status
	}
	if r.remark != nil {
		v.Remark = strings.TrimSpace(*r.remark)
	}
}

func validVolume(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func deref(items []*domain.DailyVolume) []domain.DailyVolume {
	out := make([]domain.DailyVolume, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}

func parseRequiredID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}
