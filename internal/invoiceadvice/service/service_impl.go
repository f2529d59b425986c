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
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	dailyvolumedomain "github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	"github.com/smallbiznis/gascustody/internal/events"
	gccdomain "github.com/smallbiznis/gascustody/internal/gcc/domain"
	"github.com/smallbiznis/gascustody/internal/invoiceadvice/domain"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
	"github.com/smallbiznis/gascustody/internal/observability/metrics"
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
	Billing    *config.BillingConfigHolder
	Repo       domain.Repository
	Gccs       gccdomain.Repository
	Customers  customerdomain.Service
	Volumes    dailyvolumedomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`
	Dispatcher *events.Dispatcher  `optional:"true"`
	Metrics    *metrics.Metrics    `optional:"true"`
	Guard      *ratelimit.GccGuard `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	billing    *config.BillingConfigHolder
	repo       domain.Repository
	gccs       gccdomain.Repository
	customers  customerdomain.Service
	volumes    dailyvolumedomain.Service
	auditSvc   auditdomain.Service
	dispatcher *events.Dispatcher
	metrics    *metrics.Metrics
	guard      *ratelimit.GccGuard
	validate   *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("invoiceadvice.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		billing:    p.Billing,
		repo:       p.Repo,
		gccs:       p.Gccs,
		customers:  p.Customers,
		volumes:    p.Volumes,
		auditSvc:   p.AuditSvc,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
		guard:      p.Guard,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Create(ctx context.Context, actor int64, req domain.CreateRequest) (domain.Detail, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.Detail{}, err
	}
	if strings.TrimSpace(req.GccID) != "" {
		return s.createFromGcc(ctx, actor, req)
	}
	return s.createDirect(ctx, actor, req)
}

// createFromGcc bills the window persisted on the certificate and moves it to
// INVOICEADVICECREATED. A certificate already at that stage without an advice
// (its advice was deleted) may be billed again.
func (s *Service) createFromGcc(ctx context.Context, actor int64, req domain.CreateRequest) (domain.Detail, error) {
	gccID, err := parseRequiredID(req.GccID, domain.ErrInvalidGcc)
	if err != nil {
		return domain.Detail{}, err
	}

	release, err := s.guard.AcquireTransition(ctx, gccID.String())
	if err != nil {
		return domain.Detail{}, err
	}
	defer release()

	gcc, err := s.gccs.FindByID(ctx, s.db, gccID)
	if err != nil {
		return domain.Detail{}, err
	}
	if gcc == nil {
		return domain.Detail{}, gccdomain.ErrGccNotFound
	}
	if err := billable(gcc.Status); err != nil {
		return domain.Detail{}, err
	}

	window := gcc.Window()
	rows, err := aggregation.Collect(ctx, s.volumes, gcc.CustomerID, gcc.CustomerSiteID, window)
	if err != nil {
		return domain.Detail{}, err
	}

	now := s.clock.Now().UTC()
	createdBy := gcc.GccCreatedBy
	advice := domain.InvoiceAdvice{
		ID:                       s.genID.Generate(),
		GccID:                    &gcc.ID,
		CustomerID:               gcc.CustomerID,
		CustomerSiteID:           gcc.CustomerSiteID,
		WithVat:                  gcc.WithVat,
		CapexRecoveryAmount:      gcc.CapexRecoveryAmount,
		Date:                     dateOr(req.Date, now),
		Status:                   lifecycle.InvoiceAdviceCreated,
		Department:               departmentOr(req.Department, gcc.DepartmentID),
		PeriodStart:              window.Start,
		PeriodEnd:                window.End,
		GccCreatedByID:           &createdBy,
		InvoiceAdviceCreatedByID: actor,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	applyOverrides(&advice, req)
	items := s.summarize(&advice, rows, now)

	from := gcc.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByGccID(ctx, tx, gccID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyExists
		}
		if from == lifecycle.GccApprovedByCustomer {
			if _, err := lifecycle.Advance(ctx, tx, gccID, from, now); err != nil {
				return err
			}
		}
		if err := s.repo.Insert(ctx, tx, &advice); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyExists
			}
			return err
		}
		return s.repo.InsertListItems(ctx, tx, items)
	})
	if err != nil {
		s.log.Error("failed to create invoice advice", zap.String("gcc_id", gccID.String()), zap.Error(err))
		return domain.Detail{}, err
	}

	if from == lifecycle.GccApprovedByCustomer {
		s.metrics.RecordGccTransition(ctx, from.String(), lifecycle.InvoiceAdviceCreated.String())
	}
	return s.created(ctx, actor, advice, items), nil
}

func (s *Service) createDirect(ctx context.Context, actor int64, req domain.CreateRequest) (domain.Detail, error) {
	customerID, err := parseRequiredID(req.CustomerID, domain.ErrInvalidCustomer)
	if err != nil {
		return domain.Detail{}, err
	}
	siteID, err := parseRequiredID(req.CustomerSiteID, domain.ErrInvalidSite)
	if err != nil {
		return domain.Detail{}, err
	}
	if _, _, err := s.customers.ResolveSite(ctx, customerID, siteID); err != nil {
		return domain.Detail{}, err
	}

	billing := s.billing.Get()
	now := s.clock.Now().UTC()
	window := aggregation.PreviousMonth(now, billing.Location())
	rows, err := aggregation.Collect(ctx, s.volumes, customerID, siteID, window)
	if err != nil {
		return domain.Detail{}, err
	}

	advice := domain.InvoiceAdvice{
		ID:                       s.genID.Generate(),
		CustomerID:               customerID,
		CustomerSiteID:           siteID,
		WithVat:                  billing.GccDefaults.WithVat,
		CapexRecoveryAmount:      decimal.NewFromFloat(billing.GccDefaults.CapexRecoveryAmount),
		Date:                     dateOr(req.Date, now),
		Status:                   lifecycle.InvoiceAdviceCreated,
		Department:               departmentOr(req.Department, billing.GccDefaults.DepartmentID),
		PeriodStart:              window.Start,
		PeriodEnd:                window.End,
		InvoiceAdviceCreatedByID: actor,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	applyOverrides(&advice, req)
	items := s.summarize(&advice, rows, now)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &advice); err != nil {
			return err
		}
		return s.repo.InsertListItems(ctx, tx, items)
	})
	if err != nil {
		s.log.Error("failed to create invoice advice",
			zap.String("customer_id", customerID.String()),
			zap.String("customer_site_id", siteID.String()),
			zap.Error(err),
		)
		return domain.Detail{}, err
	}
	return s.created(ctx, actor, advice, items), nil
}

// summarize fills the advice totals from rows and builds its list items.
func (s *Service) summarize(advice *domain.InvoiceAdvice, rows []dailyvolumedomain.DailyVolume, now time.Time) []domain.InvoiceAdviceListItem {
	summary := aggregation.Summarize(rows)
	advice.TotalQuantityOfGas = summary.TotalQuantityOfGas
	advice.FromDate = summary.FromDate
	advice.ToDate = summary.ToDate

	items := make([]domain.InvoiceAdviceListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.InvoiceAdviceListItem{
			ID:              s.genID.Generate(),
			InvoiceAdviceID: advice.ID,
			CustomerID:      advice.CustomerID,
			CustomerSiteID:  advice.CustomerSiteID,
			DailyVolumeID:   row.ID,
			Volume:          row.Volume,
			Date:            row.CreatedAt,
			CreatedAt:       now,
		})
	}
	return items
}

func (s *Service) created(ctx context.Context, actor int64, advice domain.InvoiceAdvice, items []domain.InvoiceAdviceListItem) domain.Detail {
	detail := domain.Detail{InvoiceAdvice: advice, ListItem: items, Approvals: []domain.InvoiceAdviceApproval{}}

	metadata := map[string]any{
		"customer_id":           advice.CustomerID.String(),
		"customer_site_id":      advice.CustomerSiteID.String(),
		"total_quantity_of_gas": advice.TotalQuantityOfGas,
		"list_items":            len(items),
	}
	if advice.GccID != nil {
		metadata["gcc_id"] = advice.GccID.String()
	}
	s.recordAudit(ctx, actor, "invoice_advice.create", advice.ID, metadata)
	s.dispatcher.Dispatch(ctx, events.InvoiceAdviceCreated, advice.ID.String(), detail)
	s.log.Info("invoice advice created",
		zap.String("invoice_advice_id", advice.ID.String()),
		zap.Float64("total_quantity_of_gas", advice.TotalQuantityOfGas),
		zap.Int("list_items", len(items)),
	)
	return detail
}

// Approve records one sign-off. Sign-offs follow checked, confirmed, approved
// and each moves the advice, and its certificate when linked, one stage on.
func (s *Service) Approve(ctx context.Context, actor int64, req domain.ApproveRequest) (domain.Detail, error) {
	req.ApprovalFor = domain.ApprovalFor(strings.ToLower(strings.TrimSpace(string(req.ApprovalFor))))
	if err := s.validate.Struct(req); err != nil {
		return domain.Detail{}, err
	}
	from, to, ok := req.ApprovalFor.Stage()
	if !ok {
		return domain.Detail{}, domain.ErrInvalidApprovalFor
	}
	id, err := parseRequiredID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.Detail{}, err
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Detail{}, err
	}
	if current == nil {
		return domain.Detail{}, domain.ErrNotFound
	}
	if current.GccID != nil {
		release, err := s.guard.AcquireTransition(ctx, current.GccID.String())
		if err != nil {
			return domain.Detail{}, err
		}
		defer release()
	}

	now := s.clock.Now().UTC()
	var detail domain.Detail
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		advice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if advice == nil {
			return domain.ErrNotFound
		}
		if advice.Status.Reached(to) {
			return domain.ErrAlreadyApproved
		}
		if advice.Status != from {
			return domain.ErrApprovalOutOfOrder
		}

		approval := domain.InvoiceAdviceApproval{
			ID:              s.genID.Generate(),
			InvoiceAdviceID: advice.ID,
			UserID:          actor,
			ApprovalFor:     req.ApprovalFor,
			Date:            now,
			CreatedAt:       now,
		}
		if err := s.repo.InsertApproval(ctx, tx, &approval); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyApproved
			}
			return err
		}

		moved, err := s.repo.SetStatus(ctx, tx, advice.ID, from, to, now)
		if err != nil {
			return err
		}
		if !moved {
			return lifecycle.ErrInvalidTransition
		}
		if advice.GccID != nil {
			if _, err := lifecycle.Advance(ctx, tx, *advice.GccID, from, now); err != nil {
				return err
			}
		}
		advice.Status = to
		advice.UpdatedAt = now

		detail, err = s.loadDetail(ctx, tx, *advice)
		return err
	})
	if err != nil {
		return domain.Detail{}, err
	}

	s.metrics.RecordGccTransition(ctx, from.String(), to.String())
	s.recordAudit(ctx, actor, "invoice_advice.approve", id, map[string]any{
		"approval_for": string(req.ApprovalFor),
		"status":       to.String(),
	})
	s.log.Info("invoice advice approved",
		zap.String("invoice_advice_id", id.String()),
		zap.String("approval_for", string(req.ApprovalFor)),
		zap.Int64("actor_id", actor),
	)
	return detail, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Detail, error) {
	adviceID, err := parseRequiredID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.Detail{}, err
	}
	advice, err := s.repo.FindByID(ctx, s.db, adviceID)
	if err != nil {
		return domain.Detail{}, err
	}
	if advice == nil {
		return domain.Detail{}, domain.ErrNotFound
	}
	return s.loadDetail(ctx, s.db, *advice)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{WithVat: req.WithVat, DateFrom: req.DateFrom, DateTo: req.DateTo}
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
	items, pageInfo := pagination.Page(items, limit, func(a *domain.InvoiceAdvice) pagination.Cursor {
		return pagination.Cursor{ID: a.ID.String(), CreatedAt: a.CreatedAt.Format(time.RFC3339Nano)}
	})
	return domain.ListResponse{PageInfo: pageInfo, InvoiceAdvices: deref(items)}, nil
}

func (s *Service) ListItems(ctx context.Context, id string) ([]domain.InvoiceAdviceListItem, error) {
	detail, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail.ListItem, nil
}

func (s *Service) ListApprovals(ctx context.Context, req domain.ListApprovalsRequest) (domain.ListApprovalsResponse, error) {
	filter := domain.ApprovalFilter{UserID: req.UserID}
	if strings.TrimSpace(req.InvoiceAdviceID) != "" {
		id, err := parseRequiredID(req.InvoiceAdviceID, domain.ErrInvalidID)
		if err != nil {
			return domain.ListApprovalsResponse{}, err
		}
		filter.InvoiceAdviceID = id
	}
	if raw := strings.TrimSpace(req.ApprovalFor); raw != "" {
		approvalFor := domain.ApprovalFor(strings.ToLower(raw))
		if _, _, ok := approvalFor.Stage(); !ok {
			return domain.ListApprovalsResponse{}, domain.ErrInvalidApprovalFor
		}
		filter.ApprovalFor = approvalFor
	}
	cursor, err := parseCursor(req.PageToken)
	if err != nil {
		return domain.ListApprovalsResponse{}, err
	}

	limit := req.Limit()
	items, err := s.repo.ListApprovals(ctx, s.db, filter, cursor, limit)
	if err != nil {
		return domain.ListApprovalsResponse{}, err
	}
	items, pageInfo := pagination.Page(items, limit, func(a *domain.InvoiceAdviceApproval) pagination.Cursor {
		return pagination.Cursor{ID: a.ID.String(), CreatedAt: a.CreatedAt.Format(time.RFC3339Nano)}
	})
	return domain.ListApprovalsResponse{PageInfo: pageInfo, Approvals: deref(items)}, nil
}

func (s *Service) GetApproval(ctx context.Context, id string) (domain.InvoiceAdviceApproval, error) {
	approvalID, err := parseRequiredID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.InvoiceAdviceApproval{}, err
	}
	approval, err := s.repo.FindApprovalByID(ctx, s.db, approvalID)
	if err != nil {
		return domain.InvoiceAdviceApproval{}, err
	}
	if approval == nil {
		return domain.InvoiceAdviceApproval{}, domain.ErrApprovalNotFound
	}
	return *approval, nil
}

// Delete removes an advice nobody has signed off yet. A linked certificate stays
// at INVOICEADVICECREATED and can be billed again.
func (s *Service) Delete(ctx context.Context, actor int64, id string) error {
	adviceID, err := parseRequiredID(id, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		advice, err := s.repo.FindByID(ctx, tx, adviceID)
		if err != nil {
			return err
		}
		if advice == nil {
			return domain.ErrNotFound
		}
		approvals, err := s.repo.CountApprovals(ctx, tx, adviceID)
		if err != nil {
			return err
		}
		if approvals > 0 || advice.Status != lifecycle.InvoiceAdviceCreated {
			return domain.ErrNotDeletable
		}
		return s.repo.Delete(ctx, tx, adviceID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actor, "invoice_advice.delete", adviceID, nil)
	s.log.Info("invoice advice deleted", zap.String("invoice_advice_id", adviceID.String()), zap.Int64("actor_id", actor))
	return nil
}

func (s *Service) loadDetail(ctx context.Context, db *gorm.DB, advice domain.InvoiceAdvice) (domain.Detail, error) {
	items, err := s.repo.ListItems(ctx, db, advice.ID)
	if err != nil {
		return domain.Detail{}, err
	}
	approvals, err := s.repo.ApprovalsFor(ctx, db, advice.ID)
	if err != nil {
		return domain.Detail{}, err
	}
	return domain.Detail{InvoiceAdvice: advice, ListItem: items, Approvals: approvals}, nil
}

func (s *Service) recordAudit(ctx context.Context, actor int64, action string, adviceID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	target := adviceID.String()
	var actorID *string
	if actor > 0 {
		v := strconv.FormatInt(actor, 10)
		actorID = &v
	}
	if err := s.auditSvc.AuditLog(ctx, auditdomain.ActorTypeUser, actorID, action, "invoice_advice", &target, metadata); err != nil {
		s.log.Warn("failed to audit invoice advice action", zap.String("action", action), zap.Error(err))
	}
}

// billable accepts a certificate the customer has approved, or one whose
// advice was deleted before any sign-off.
func billable(status lifecycle.Status) error {
	switch {
	case status == lifecycle.GccApprovedByCustomer, status == lifecycle.InvoiceAdviceCreated:
		return nil
	case status.Reached(lifecycle.InvoiceAdviceCheckedBy):
		return domain.ErrAlreadyExists
	default:
		return domain.ErrGccNotReady
	}
}

func applyOverrides(advice *domain.InvoiceAdvice, req domain.CreateRequest) {
	if req.WithVat != nil {
		advice.WithVat = *req.WithVat
	}
	if req.CapexRecoveryAmount != nil {
		advice.CapexRecoveryAmount = req.CapexRecoveryAmount.Round(2)
	}
}

func dateOr(date *time.Time, fallback time.Time) time.Time {
	if date == nil || date.IsZero() {
		return fallback
	}
	return date.UTC()
}

func departmentOr(department string, fallback int64) string {
	if d := strings.TrimSpace(department); d != "" {
		return d
	}
	return strconv.FormatInt(fallback, 10)
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
