package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	"github.com/smallbiznis/gascustody/internal/events"
	gccdomain "github.com/smallbiznis/gascustody/internal/gcc/domain"
	invoicedomain "github.com/smallbiznis/gascustody/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/gascustody/internal/invoice/format"
	invoiceadvicedomain "github.com/smallbiznis/gascustody/internal/invoiceadvice/domain"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
	ngmlaccountdomain "github.com/smallbiznis/gascustody/internal/ngmlaccount/domain"
	"github.com/smallbiznis/gascustody/internal/observability/metrics"
	"github.com/smallbiznis/gascustody/internal/providers/pdf"
	"github.com/smallbiznis/gascustody/internal/ratelimit"
	pkgdb "github.com/smallbiznis/gascustody/pkg/db"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Billing    *config.BillingConfigHolder
	Repo       invoicedomain.Repository
	Advices    invoiceadvicedomain.Repository
	Gccs       gccdomain.Repository
	Customers  customerdomain.Service
	Accounts   ngmlaccountdomain.Service `optional:"true"`
	PDF        pdf.Provider              `optional:"true"`
	AuditSvc   auditdomain.Service       `optional:"true"`
	Dispatcher *events.Dispatcher        `optional:"true"`
	Metrics    *metrics.Metrics          `optional:"true"`
	Guard      *ratelimit.GccGuard       `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	billing    *config.BillingConfigHolder
	repo       invoicedomain.Repository
	advices    invoiceadvicedomain.Repository
	gccs       gccdomain.Repository
	customers  customerdomain.Service
	accounts   ngmlaccountdomain.Service
	pdf        pdf.Provider
	auditSvc   auditdomain.Service
	dispatcher *events.Dispatcher
	metrics    *metrics.Metrics
	guard      *ratelimit.GccGuard
	validate   *validator.Validate
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:      p.GenID,
		clock:      p.Clock,
		billing:    p.Billing,
		repo:       p.Repo,
		advices:    p.Advices,
		gccs:       p.Gccs,
		customers:  p.Customers,
		accounts:   p.Accounts,
		pdf:        p.PDF,
		auditSvc:   p.AuditSvc,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
		guard:      p.Guard,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Create(ctx context.Context, actor int64, req invoicedomain.CreateRequest) (invoicedomain.Invoice, error) {
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	if err := s.validate.Struct(req); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := nonNegative(req.ConsumedVolumeAmountInNaira, req.ConsumedVolumeAmountInDollar,
		req.DollarToNairaConvertionRate, req.VatAmount, req.TotalVolumePaidFor); err != nil {
		return invoicedomain.Invoice{}, err
	}
	adviceID, err := parseRequiredID(req.InvoiceAdviceID, invoicedomain.ErrInvalidInvoiceAdvice)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	advice, err := s.advices.FindByID(ctx, s.db, adviceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if advice == nil {
		return invoicedomain.Invoice{}, invoiceadvicedomain.ErrNotFound
	}
	if advice.Status != lifecycle.InvoiceAdviceApprovedBy {
		return invoicedomain.Invoice{}, invoicedomain.ErrAdviceNotApproved
	}

	// from is the certificate status before issuing; zero for a direct advice.
	var from lifecycle.Status
	if advice.GccID != nil {
		release, err := s.guard.AcquireTransition(ctx, advice.GccID.String())
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		defer release()

		gcc, err := s.gccs.FindByID(ctx, s.db, *advice.GccID)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		if gcc == nil {
			return invoicedomain.Invoice{}, gccdomain.ErrGccNotFound
		}
		if err := invoiceable(gcc.Status); err != nil {
			return invoicedomain.Invoice{}, err
		}
		from = gcc.Status
	}

	billing := s.billing.Get()
	now := s.clock.Now().UTC()
	number := req.InvoiceNumber
	if number == "" {
		template := billing.InvoiceNumberTemplate
		if template == "" {
			template = invoiceformat.DefaultInvoiceNumberTemplate
		}
		number, err = invoiceformat.NewInvoiceNumber(template, now.In(billing.Location()))
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
	}

	invoice := invoicedomain.Invoice{
		ID:                           s.genID.Generate(),
		InvoiceAdviceID:              advice.ID,
		GccID:                        advice.GccID,
		CustomerID:                   advice.CustomerID,
		CustomerSiteID:               advice.CustomerSiteID,
		InvoiceNumber:                number,
		WithVat:                      advice.WithVat,
		ConsumedVolumeAmountInNaira:  req.ConsumedVolumeAmountInNaira.Round(2),
		ConsumedVolumeAmountInDollar: req.ConsumedVolumeAmountInDollar.Round(2),
		DollarToNairaConvertionRate:  req.DollarToNairaConvertionRate.Round(4),
		Status:                       lifecycle.InvoiceCreated,
		IssuedAt:                     now,
		CreatedAt:                    now,
		UpdatedAt:                    now,
	}
	invoice.VatAmount = vatFor(invoice, req.VatAmount, billing.VATRate)
	if req.TotalVolumePaidFor != nil {
		invoice.TotalVolumePaidFor = req.TotalVolumePaidFor.Round(2)
	} else {
		invoice.TotalVolumePaidFor = decimal.NewFromFloat(advice.TotalQuantityOfGas).Round(2)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByAdviceID(ctx, tx, advice.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return invoicedomain.ErrAlreadyExists
		}
		if from == lifecycle.InvoiceAdviceApprovedBy {
			if _, err := lifecycle.Advance(ctx, tx, *advice.GccID, from, now); err != nil {
				return err
			}
		}
		if err := s.repo.Insert(ctx, tx, &invoice); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				if req.InvoiceNumber != "" {
					return invoicedomain.ErrDuplicateNumber
				}
				return invoicedomain.ErrAlreadyExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.log.Error("failed to create invoice", zap.String("invoice_advice_id", adviceID.String()), zap.Error(err))
		return invoicedomain.Invoice{}, err
	}

	if from == lifecycle.InvoiceAdviceApprovedBy {
		s.metrics.RecordGccTransition(ctx, from.String(), lifecycle.InvoiceCreated.String())
	}
	s.emitAudit(ctx, actor, "invoice.create", &invoice, nil)
	s.dispatcher.Dispatch(ctx, events.InvoiceCreated, invoice.ID.String(), invoice)
	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total", invoice.Total().StringFixed(2)),
	)
	return invoice, nil
}

// Update edits amounts and the number of an invoice that has not been approved.
func (s *Service) Update(ctx context.Context, actor int64, req invoicedomain.UpdateRequest) (invoicedomain.Invoice, error) {
	if req.InvoiceNumber != nil {
		trimmed := strings.TrimSpace(*req.InvoiceNumber)
		req.InvoiceNumber = &trimmed
	}
	if err := s.validate.Struct(req); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if err := nonNegative(req.ConsumedVolumeAmountInNaira, req.ConsumedVolumeAmountInDollar,
		req.DollarToNairaConvertionRate, req.VatAmount, req.TotalVolumePaidFor); err != nil {
		return invoicedomain.Invoice{}, err
	}
	id, err := parseRequiredID(req.ID, invoicedomain.ErrInvalidID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	vatRate := s.billing.Get().VATRate
	var updated invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status != lifecycle.InvoiceCreated {
			return invoicedomain.ErrNotEditable
		}

		if req.InvoiceNumber != nil {
			invoice.InvoiceNumber = *req.InvoiceNumber
		}
		if req.ConsumedVolumeAmountInNaira != nil {
			invoice.ConsumedVolumeAmountInNaira = req.ConsumedVolumeAmountInNaira.Round(2)
			if req.VatAmount == nil {
				invoice.VatAmount = vatFor(*invoice, nil, vatRate)
			}
		}
		if req.ConsumedVolumeAmountInDollar != nil {
			invoice.ConsumedVolumeAmountInDollar = req.ConsumedVolumeAmountInDollar.Round(2)
		}
		if req.DollarToNairaConvertionRate != nil {
			invoice.DollarToNairaConvertionRate = req.DollarToNairaConvertionRate.Round(4)
		}
		if req.VatAmount != nil {
			invoice.VatAmount = req.VatAmount.Round(2)
		}
		if req.TotalVolumePaidFor != nil {
			invoice.TotalVolumePaidFor = req.TotalVolumePaidFor.Round(2)
		}
		invoice.UpdatedAt = s.clock.Now().UTC()

		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return invoicedomain.ErrDuplicateNumber
			}
			return err
		}
		updated = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.emitAudit(ctx, actor, "invoice.update", &updated, nil)
	return updated, nil
}

func (s *Service) Approve(ctx context.Context, actor int64, id string) (invoicedomain.Invoice, error) {
	return s.transition(ctx, actor, id, lifecycle.InvoiceCreated, "invoice.approve", "", nil)
}

func (s *Service) RecordPayment(ctx context.Context, actor int64, req invoicedomain.PaymentRequest) (invoicedomain.Invoice, error) {
	return s.transition(ctx, actor, req.ID, lifecycle.InvoiceApprovedBy, "invoice.pay", events.InvoicePaid, func(inv *invoicedomain.Invoice, now time.Time) {
		paidAt := now
		if req.PaidAt != nil && !req.PaidAt.IsZero() {
			paidAt = req.PaidAt.UTC()
		}
		inv.PaidAt = &paidAt
	})
}

func (s *Service) ConfirmPayment(ctx context.Context, actor int64, id string) (invoicedomain.Invoice, error) {
	return s.transition(ctx, actor, id, lifecycle.CustomerInvoicePayment, "invoice.confirm_payment", "", func(inv *invoicedomain.Invoice, now time.Time) {
		inv.PaymentConfirmedAt = &now
	})
}

// transition moves an invoice, and its certificate when linked, from one stage
// to the next. mutate may stamp extra fields before the row is saved.
func (s *Service) transition(ctx context.Context, actor int64, rawID string, from lifecycle.Status, action, eventType string, mutate func(*invoicedomain.Invoice, time.Time)) (invoicedomain.Invoice, error) {
	id, err := parseRequiredID(rawID, invoicedomain.ErrInvalidID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	to, ok := from.Next()
	if !ok {
		return invoicedomain.Invoice{}, lifecycle.ErrInvalidTransition
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if current == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	if current.GccID != nil {
		release, err := s.guard.AcquireTransition(ctx, current.GccID.String())
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		defer release()
	}

	now := s.clock.Now().UTC()
	var out invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status != from {
			return fmt.Errorf("%w: invoice is %s", lifecycle.ErrInvalidTransition, invoice.Status)
		}

		moved, err := s.repo.SetStatus(ctx, tx, id, from, to, now)
		if err != nil {
			return err
		}
		if !moved {
			return lifecycle.ErrInvalidTransition
		}
		if invoice.GccID != nil {
			if _, err := lifecycle.Advance(ctx, tx, *invoice.GccID, from, now); err != nil {
				return err
			}
		}

		invoice.Status = to
		invoice.UpdatedAt = now
		if mutate != nil {
			mutate(invoice, now)
			if err := s.repo.Update(ctx, tx, invoice); err != nil {
				return err
			}
		}
		out = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordGccTransition(ctx, from.String(), to.String())
	s.emitAudit(ctx, actor, action, &out, map[string]any{"status": to.String()})
	if eventType != "" {
		s.dispatcher.Dispatch(ctx, eventType, out.ID.String(), out)
	}
	s.log.Info("invoice transitioned",
		zap.String("invoice_id", out.ID.String()),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	return out, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	filter := invoicedomain.ListFilter{InvoiceNumber: req.InvoiceNumber}
	if strings.TrimSpace(req.Status) != "" {
		status, err := lifecycle.Parse(req.Status)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatus
		}
		filter.Status = &status
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseRequiredID(req.CustomerID, invoicedomain.ErrInvalidID)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		filter.CustomerID = id
	}
	cursor, err := pagination.ParseTimeCursor(req.PageToken, func(v string) (int64, error) {
		return strconv.ParseInt(v, 10, 64)
	})
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidCursor
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, filter, cursor, limit)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	items, pageInfo := pagination.Page(items, limit, func(i *invoicedomain.Invoice) pagination.Cursor {
		return pagination.Cursor{ID: i.ID.String(), CreatedAt: i.CreatedAt.Format(time.RFC3339Nano)}
	})

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item != nil {
			invoices = append(invoices, *item)
		}
	}
	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoiceID, err := parseRequiredID(id, invoicedomain.ErrInvalidID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	invoice, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	return *invoice, nil
}

// Delete removes an invoice that has not been approved. A linked certificate
// stays at INVOICECREATED and can be invoiced again.
func (s *Service) Delete(ctx context.Context, actor int64, id string) error {
	invoiceID, err := parseRequiredID(id, invoicedomain.ErrInvalidID)
	if err != nil {
		return err
	}

	var deleted invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrNotFound
		}
		if invoice.Status != lifecycle.InvoiceCreated {
			return invoicedomain.ErrNotEditable
		}
		deleted = *invoice
		return s.repo.Delete(ctx, tx, invoiceID)
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, actor, "invoice.delete", &deleted, nil)
	return nil
}

func (s *Service) emitAudit(ctx context.Context, actor int64, action string, invoice *invoicedomain.Invoice, extra map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	metadata := map[string]any{
		"invoice_advice_id": invoice.InvoiceAdviceID.String(),
		"customer_id":       invoice.CustomerID.String(),
		"invoice_number":    invoice.InvoiceNumber,
		"total":             invoice.Total().StringFixed(2),
	}
	if invoice.GccID != nil {
		metadata["gcc_id"] = invoice.GccID.String()
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	var actorID *string
	if actor > 0 {
		v := strconv.FormatInt(actor, 10)
		actorID = &v
	}
	targetID := invoice.ID.String()
	if err := s.auditSvc.AuditLog(ctx, auditdomain.ActorTypeUser, actorID, action, "invoice", &targetID, metadata); err != nil {
		s.log.Warn("failed to audit invoice action", zap.String("action", action), zap.Error(err))
	}
}

// invoiceable accepts a certificate whose advice is fully approved, or one whose
// invoice was deleted before approval.
func invoiceable(status lifecycle.Status) error {
	switch {
	case status == lifecycle.InvoiceAdviceApprovedBy, status == lifecycle.InvoiceCreated:
		return nil
	case status.Reached(lifecycle.InvoiceApprovedBy):
		return invoicedomain.ErrAlreadyExists
	default:
		return invoicedomain.ErrAdviceNotApproved
	}
}

// vatFor returns the explicit amount, or the configured rate applied to the
// naira amount when the invoice carries VAT.
func vatFor(invoice invoicedomain.Invoice, explicit *decimal.Decimal, rate float64) decimal.Decimal {
	if explicit != nil {
		return explicit.Round(2)
	}
	if !invoice.WithVat {
		return decimal.Zero
	}
	return invoice.ConsumedVolumeAmountInNaira.
		Mul(decimal.NewFromFloat(rate)).
		Div(decimal.NewFromInt(100)).
		Round(2)
}

func nonNegative(values ...*decimal.Decimal) error {
	for _, v := range values {
		if v != nil && v.IsNegative() {
			return invoicedomain.ErrInvalidAmount
		}
	}
	return nil
}

func parseRequiredID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}
