package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gascustody/internal/aggregation"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	authdomain "github.com/smallbiznis/gascustody/internal/auth/domain"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	dailyvolumedomain "github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	"github.com/smallbiznis/gascustody/internal/events"
	"github.com/smallbiznis/gascustody/internal/gcc/domain"
	lettertemplatedomain "github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
	"github.com/smallbiznis/gascustody/internal/observability/metrics"
	"github.com/smallbiznis/gascustody/internal/providers/email"
	"github.com/smallbiznis/gascustody/internal/providers/pdf"
	"github.com/smallbiznis/gascustody/internal/ratelimit"
	pkgdb "github.com/smallbiznis/gascustody/pkg/db"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Cfg        config.Config
	Billing    *config.BillingConfigHolder
	Repo       domain.Repository
	Customers  customerdomain.Service
	Volumes    dailyvolumedomain.Service
	Auth       authdomain.Service
	Letters    lettertemplatedomain.Service `optional:"true"`
	PDF        pdf.Provider                 `optional:"true"`
	Mailer     email.Provider               `optional:"true"`
	AuditSvc   auditdomain.Service          `optional:"true"`
	Dispatcher *events.Dispatcher           `optional:"true"`
	Metrics    *metrics.Metrics             `optional:"true"`
	Guard      *ratelimit.GccGuard          `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	baseURL    string
	billing    *config.BillingConfigHolder
	repo       domain.Repository
	customers  customerdomain.Service
	volumes    dailyvolumedomain.Service
	auth       authdomain.Service
	letters    lettertemplatedomain.Service
	pdf        pdf.Provider
	mailer     email.Provider
	auditSvc   auditdomain.Service
	dispatcher *events.Dispatcher
	metrics    *metrics.Metrics
	guard      *ratelimit.GccGuard
	validate   *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("gcc.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		baseURL:    strings.TrimRight(p.Cfg.PublicBaseURL, "/"),
		billing:    p.Billing,
		repo:       p.Repo,
		customers:  p.Customers,
		volumes:    p.Volumes,
		auth:       p.Auth,
		letters:    p.Letters,
		pdf:        p.PDF,
		mailer:     p.Mailer,
		auditSvc:   p.AuditSvc,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
		guard:      p.Guard,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Create(ctx context.Context, actor int64, req domain.CreateRequest) (domain.Aggregate, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.Aggregate{}, err
	}

	customerID, err := parseRequiredID(req.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return domain.Aggregate{}, err
	}
	siteID, err := parseRequiredID(req.CustomerSiteID, domain.ErrInvalidSite)
	if err != nil {
		return domain.Aggregate{}, err
	}

	items, err := buildListItems(customerID, siteID, req.ListItem)
	if err != nil {
		return domain.Aggregate{}, err
	}

	if _, _, err := s.customers.ResolveSite(ctx, customerID, siteID); err != nil {
		return domain.Aggregate{}, err
	}

	billing := s.billing.Get()
	loc := billing.Location()
	now := s.clock.Now().UTC()
	window := aggregation.PreviousMonth(now, loc)

	gcc := domain.Gcc{
		ID:                  s.genID.Generate(),
		CustomerID:          customerID,
		CustomerSiteID:      siteID,
		GccDate:             aggregation.SubtractMonthClamped(now.In(loc), 1).AddDate(0, 0, -1).UTC(),
		CapexRecoveryAmount: decimal.NewFromFloat(billing.GccDefaults.CapexRecoveryAmount),
		WithVat:             billing.GccDefaults.WithVat,
		DepartmentID:        billing.GccDefaults.DepartmentID,
		GccCreatedBy:        actor,
		LetterID:            billing.GccDefaults.LetterID,
		Status:              lifecycle.Initial(),
		PeriodStart:         window.Start,
		PeriodEnd:           window.End,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	for i := range items {
		items[i].ID = s.genID.Generate()
		items[i].GccID = gcc.ID
		items[i].CreatedAt = now
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindForPeriod(ctx, tx, customerID, siteID, window.Start)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrGccAlreadyExists
		}
		if err := s.repo.Insert(ctx, tx, &gcc); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrGccAlreadyExists
			}
			return err
		}
		return s.repo.InsertListItems(ctx, tx, items)
	})
	if err != nil {
		s.log.Error("failed to create gcc",
			zap.String("customer_id", customerID.String()),
			zap.String("customer_site_id", siteID.String()),
			zap.Error(err),
		)
		return domain.Aggregate{}, err
	}

	agg := domain.Aggregate{ListItem: items, Gcc: &gcc, TotalVolume: totalVolume(items)}

	s.metrics.RecordGccTransition(ctx, "", gcc.Status.String())
	s.recordAudit(ctx, auditdomain.ActorTypeUser, strconv.FormatInt(actor, 10), "gcc.create", gcc.ID, map[string]any{
		"customer_id":      customerID.String(),
		"customer_site_id": siteID.String(),
		"list_items":       len(items),
		"period_start":     gcc.PeriodStart.Format(time.RFC3339),
	})
	s.dispatcher.Dispatch(ctx, events.GccCreated, gcc.ID.String(), agg)
	s.log.Info("gcc created",
		zap.String("gcc_id", gcc.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("customer_site_id", siteID.String()),
		zap.Int("list_items", len(items)),
	)
	return agg, nil
}

func (s *Service) Initiate(ctx context.Context, req domain.InitiateRequest) (domain.InitiateResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.InitiateResult{}, err
	}
	customerID, err := parseRequiredID(req.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return domain.InitiateResult{}, err
	}
	siteID, err := parseRequiredID(req.CustomerSiteID, domain.ErrInvalidSite)
	if err != nil {
		return domain.InitiateResult{}, err
	}
	if _, _, err := s.customers.ResolveSite(ctx, customerID, siteID); err != nil {
		return domain.InitiateResult{}, err
	}

	loc := s.billing.Get().Location()
	window := aggregation.PreviousMonth(s.clock.Now(), loc)

	latest, err := s.repo.FindLatest(ctx, s.db, customerID, siteID)
	if err != nil {
		return domain.InitiateResult{}, err
	}
	if latest != nil && latest.Window().SamePeriod(window, loc) {
		items, err := s.repo.ListItems(ctx, s.db, latest.ID)
		if err != nil {
			return domain.InitiateResult{}, err
		}
		return domain.InitiateResult{ListItem: items, Gcc: latest, Window: latest.Window()}, nil
	}

	rows, err := aggregation.Collect(ctx, s.volumes, customerID, siteID, window)
	if err != nil {
		return domain.InitiateResult{}, err
	}
	if rows == nil {
		rows = []dailyvolumedomain.DailyVolume{}
	}
	return domain.InitiateResult{ListItem: rows, Window: window}, nil
}

func (s *Service) GetAggregate(ctx context.Context, gccID string) (domain.Aggregate, error) {
	id, err := parseRequiredID(gccID, domain.ErrInvalidID)
	if err != nil {
		return domain.Aggregate{}, err
	}
	gcc, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Aggregate{}, err
	}
	if gcc == nil {
		return domain.Aggregate{}, domain.ErrGccNotFound
	}
	return s.loadAggregate(ctx, s.db, *gcc)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var filter domain.ListFilter
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
	if strings.TrimSpace(req.Status) != "" {
		status, err := lifecycle.Parse(req.Status)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = &status
	}

	cursor, err := parseCursor(req.PageToken)
	if err != nil {
		return domain.ListResponse{}, err
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, filter, cursor, limit)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(g *domain.Gcc) pagination.Cursor {
		return pagination.Cursor{ID: g.ID.String(), CreatedAt: g.CreatedAt.Format(time.RFC3339Nano)}
	})
	return domain.ListResponse{PageInfo: pageInfo, Gccs: deref(items)}, nil
}

// Delete removes a certificate that has not been approved yet, with its list items.
func (s *Service) Delete(ctx context.Context, actor int64, gccID string) error {
	id, err := parseRequiredID(gccID, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gcc, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if gcc == nil {
			return domain.ErrGccNotFound
		}
		if gcc.Status != lifecycle.GccCreated {
			return domain.ErrGccNotDeletable
		}
		return s.repo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, auditdomain.ActorTypeUser, strconv.FormatInt(actor, 10), "gcc.delete", id, nil)
	s.log.Info("gcc deleted", zap.String("gcc_id", id.String()), zap.Int64("actor_id", actor))
	return nil
}

func (s *Service) loadAggregate(ctx context.Context, db *gorm.DB, gcc domain.Gcc) (domain.Aggregate, error) {
	items, err := s.repo.ListItems(ctx, db, gcc.ID)
	if err != nil {
		return domain.Aggregate{}, err
	}
	admin, err := s.repo.FindAdminApproval(ctx, db, gcc.ID)
	if err != nil {
		return domain.Aggregate{}, err
	}
	customer, err := s.repo.FindCustomerApproval(ctx, db, gcc.ID)
	if err != nil {
		return domain.Aggregate{}, err
	}
	advice, err := s.repo.FindInvoiceAdvice(ctx, db, gcc.ID)
	if err != nil {
		return domain.Aggregate{}, err
	}
	invoice, err := s.repo.FindInvoice(ctx, db, gcc.ID)
	if err != nil {
		return domain.Aggregate{}, err
	}

	return domain.Aggregate{
		ListItem:              items,
		Gcc:                   &gcc,
		InvoiceAdvice:         advice,
		Invoice:               invoice,
		GccApprovedByAdmin:    admin,
		GccApprovedByCustomer: customer,
		TotalVolume:           totalVolume(items),
	}, nil
}

func (s *Service) recordAudit(ctx context.Context, actorType, actorID, action string, gccID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := gccID.String()
	var actor *string
	if actorID != "" && actorID != "0" {
		actor = &actorID
	}
	if err := s.auditSvc.AuditLog(ctx, actorType, actor, action, "gcc", &target, metadata); err != nil {
		s.log.Warn("failed to audit gcc action", zap.String("action", action), zap.Error(err))
	}
}

func buildListItems(customerID, siteID snowflake.ID, inputs []domain.ListItemInput) ([]domain.GccListItem, error) {
	seen := make(map[snowflake.ID]struct{}, len(inputs))
	items := make([]domain.GccListItem, 0, len(inputs))
	for _, in := range inputs {
		volumeID, err := parseRequiredID(in.ID, domain.ErrInvalidListItem)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[volumeID]; dup {
			return nil, domain.ErrDuplicateListItem
		}
		seen[volumeID] = struct{}{}

		items = append(items, domain.GccListItem{
			CustomerID:     customerID,
			CustomerSiteID: siteID,
			DailyVolumeID:  volumeID,
			Volume:         *in.Volume,
			Inlet:          in.InletPressure,
			Outlet:         in.OutletPressure,
			Allocation:     in.Allocation,
			Nomination:     in.Nomination,
			OriginalDate:   in.CreatedAt.UTC(),
			Status:         1,
			CreatedBy:      in.CreatedBy,
			ApprovedBy:     in.ApprovedBy,
		})
	}
	return items, nil
}

func totalVolume(items []domain.GccListItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Volume
	}
	return total
}

func deref[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}

func parseCursor(token string) (*pagination.TimeCursor, error) {
	cursor, err := pagination.ParseTimeCursor(token, func(v string) (int64, error) {
		return strconv.ParseInt(v, 10, 64)
	})
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}
	return cursor, nil
}

func parseRequiredID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}
