package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	authdomain "github.com/smallbiznis/gascustody/internal/auth/domain"
	"github.com/smallbiznis/gascustody/internal/events"
	"github.com/smallbiznis/gascustody/internal/gcc/domain"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
	"github.com/smallbiznis/gascustody/internal/providers/email"
	pkgdb "github.com/smallbiznis/gascustody/pkg/db"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) ApproveByAdmin(ctx context.Context, actor int64, gccID string) (domain.Aggregate, error) {
	id, err := parseRequiredID(gccID, domain.ErrInvalidID)
	if err != nil {
		return domain.Aggregate{}, err
	}

	release, err := s.guard.AcquireTransition(ctx, id.String())
	if err != nil {
		return domain.Aggregate{}, err
	}
	defer release()

	now := s.clock.Now().UTC()
	var agg domain.Aggregate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gcc, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if gcc == nil {
			return domain.ErrGccNotFound
		}
		if gcc.Status.Reached(lifecycle.GccApprovedByAdmin) {
			return domain.ErrAlreadyApproved
		}

		approval := domain.GccApprovedByAdmin{
			ID:             s.genID.Generate(),
			GccID:          gcc.ID,
			UserID:         actor,
			CustomerID:     gcc.CustomerID,
			CustomerSiteID: gcc.CustomerSiteID,
			CreatedAt:      now,
		}
		if err := s.repo.InsertAdminApproval(ctx, tx, &approval); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyApproved
			}
			return err
		}

		next, err := lifecycle.Advance(ctx, tx, gcc.ID, gcc.Status, now)
		if err != nil {
			return err
		}
		gcc.Status = next
		gcc.UpdatedAt = now

		agg, err = s.loadAggregate(ctx, tx, *gcc)
		return err
	})
	if err != nil {
		return domain.Aggregate{}, err
	}

	s.metrics.RecordGccTransition(ctx, lifecycle.GccCreated.String(), lifecycle.GccApprovedByAdmin.String())
	s.recordAudit(ctx, auditdomain.ActorTypeUser, strconv.FormatInt(actor, 10), "gcc.approve_admin", id, nil)
	s.dispatcher.Dispatch(ctx, events.GccApprovedByAdmin, id.String(), agg)
	s.log.Info("gcc approved by admin", zap.String("gcc_id", id.String()), zap.Int64("actor_id", actor))
	return agg, nil
}

func (s *Service) IssueCustomerApprovalToken(ctx context.Context, actor int64, gccID string) (domain.ApprovalToken, error) {
	id, err := parseRequiredID(gccID, domain.ErrInvalidID)
	if err != nil {
		return domain.ApprovalToken{}, err
	}
	gcc, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.ApprovalToken{}, err
	}
	if gcc == nil {
		return domain.ApprovalToken{}, domain.ErrGccNotFound
	}
	if err := awaitingCustomer(gcc.Status); err != nil {
		return domain.ApprovalToken{}, err
	}

	token, grant, err := s.auth.IssueApprovalToken(authdomain.ApprovalGrant{
		GccID:          gcc.ID,
		CustomerID:     gcc.CustomerID,
		CustomerSiteID: gcc.CustomerSiteID,
	})
	if err != nil {
		return domain.ApprovalToken{}, err
	}

	out := domain.ApprovalToken{
		GccID:     gcc.ID,
		Token:     token,
		ExpiresAt: grant.ExpiresAt,
		URL:       s.approvalURL(gcc.ID, token),
	}

	s.recordAudit(ctx, auditdomain.ActorTypeUser, strconv.FormatInt(actor, 10), "gcc.approval_token.issue", id, map[string]any{
		"expires_at": grant.ExpiresAt.Format(time.RFC3339),
	})
	s.notifyCustomer(ctx, *gcc, out)
	return out, nil
}

func (s *Service) ApproveByCustomer(ctx context.Context, req domain.CustomerApprovalRequest) (domain.Aggregate, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Signature = strings.TrimSpace(req.Signature)
	if err := s.validate.Struct(req); err != nil {
		return domain.Aggregate{}, err
	}
	id, err := parseRequiredID(req.GccID, domain.ErrInvalidID)
	if err != nil {
		return domain.Aggregate{}, err
	}

	grant, err := s.auth.VerifyApprovalToken(req.ApprovalToken)
	if err != nil {
		return domain.Aggregate{}, s.deny(ctx, id, denialReason(err))
	}
	if grant.GccID != id {
		return domain.Aggregate{}, s.deny(ctx, id, "gcc_mismatch")
	}

	release, err := s.guard.AcquireTransition(ctx, id.String())
	if err != nil {
		return domain.Aggregate{}, err
	}
	defer release()

	now := s.clock.Now().UTC()
	var agg domain.Aggregate
	bindingMismatch := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gcc, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if gcc == nil {
			return domain.ErrGccNotFound
		}
		if gcc.CustomerID != grant.CustomerID || gcc.CustomerSiteID != grant.CustomerSiteID {
			bindingMismatch = true
			return domain.ErrApprovalTokenInvalid
		}
		if err := awaitingCustomer(gcc.Status); err != nil {
			return err
		}

		approval := domain.GccApprovedByCustomer{
			ID:             s.genID.Generate(),
			GccID:          gcc.ID,
			CustomerID:     gcc.CustomerID,
			CustomerSiteID: gcc.CustomerSiteID,
			CustomerName:   req.CustomerName,
			Signature:      req.Signature,
			Date:           now,
			CreatedAt:      now,
		}
		if err := s.repo.InsertCustomerApproval(ctx, tx, &approval); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyApproved
			}
			return err
		}

		next, err := lifecycle.Advance(ctx, tx, gcc.ID, gcc.Status, now)
		if err != nil {
			return err
		}
		gcc.Status = next
		gcc.UpdatedAt = now

		agg, err = s.loadAggregate(ctx, tx, *gcc)
		return err
	})
	if bindingMismatch {
		return domain.Aggregate{}, s.deny(ctx, id, "binding_mismatch")
	}
	if err != nil {
		return domain.Aggregate{}, err
	}

	s.metrics.RecordGccTransition(ctx, lifecycle.GccApprovedByAdmin.String(), lifecycle.GccApprovedByCustomer.String())
	s.recordAudit(ctx, auditdomain.ActorTypeCustomer, grant.CustomerID.String(), "gcc.approve_customer", id, map[string]any{
		"customer_name": req.CustomerName,
		"signature":     req.Signature,
	})
	s.dispatcher.Dispatch(ctx, events.GccApprovedByCustomer, id.String(), agg)
	s.log.Info("gcc approved by customer", zap.String("gcc_id", id.String()))
	return agg, nil
}

func (s *Service) ListAdminApprovals(ctx context.Context, req domain.ListApprovalsRequest) (domain.ListAdminApprovalsResponse, error) {
	filter, err := approvalFilter(req)
	if err != nil {
		return domain.ListAdminApprovalsResponse{}, err
	}
	cursor, err := parseCursor(req.PageToken)
	if err != nil {
		return domain.ListAdminApprovalsResponse{}, err
	}

	limit := req.Limit()
	items, err := s.repo.ListAdminApprovals(ctx, s.db, filter, cursor, limit)
	if err != nil {
		return domain.ListAdminApprovalsResponse{}, err
	}
	items, pageInfo := pagination.Page(items, limit, func(a *domain.GccApprovedByAdmin) pagination.Cursor {
		return pagination.Cursor{ID: a.ID.String(), CreatedAt: a.CreatedAt.Format(time.RFC3339Nano)}
	})
	return domain.ListAdminApprovalsResponse{PageInfo: pageInfo, Approvals: deref(items)}, nil
}

func (s *Service) ListCustomerApprovals(ctx context.Context, req domain.ListApprovalsRequest) (domain.ListCustomerApprovalsResponse, error) {
	filter, err := approvalFilter(req)
	if err != nil {
		return domain.ListCustomerApprovalsResponse{}, err
	}
	cursor, err := parseCursor(req.PageToken)
	if err != nil {
		return domain.ListCustomerApprovalsResponse{}, err
	}

	limit := req.Limit()
	items, err := s.repo.ListCustomerApprovals(ctx, s.db, filter, cursor, limit)
	if err != nil {
		return domain.ListCustomerApprovalsResponse{}, err
	}
	items, pageInfo := pagination.Page(items, limit, func(a *domain.GccApprovedByCustomer) pagination.Cursor {
		return pagination.Cursor{ID: a.ID.String(), CreatedAt: a.CreatedAt.Format(time.RFC3339Nano)}
	})
	return domain.ListCustomerApprovalsResponse{PageInfo: pageInfo, Approvals: deref(items)}, nil
}

func (s *Service) GetAdminApproval(ctx context.Context, id string) (domain.GccApprovedByAdmin, error) {
	approvalID, err := parseRequiredID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.GccApprovedByAdmin{}, err
	}
	approval, err := s.repo.FindAdminApprovalByID(ctx, s.db, approvalID)
	if err != nil {
		return domain.GccApprovedByAdmin{}, err
	}
	if approval == nil {
		return domain.GccApprovedByAdmin{}, domain.ErrApprovalNotFound
	}
	return *approval, nil
}

func (s *Service) GetCustomerApproval(ctx context.Context, id string) (domain.GccApprovedByCustomer, error) {
	approvalID, err := parseRequiredID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.GccApprovedByCustomer{}, err
	}
	approval, err := s.repo.FindCustomerApprovalByID(ctx, s.db, approvalID)
	if err != nil {
		return domain.GccApprovedByCustomer{}, err
	}
	if approval == nil {
		return domain.GccApprovedByCustomer{}, domain.ErrApprovalNotFound
	}
	return *approval, nil
}

// deny records a rejected customer approval and returns the public error.
func (s *Service) deny(ctx context.Context, gccID snowflake.ID, reason string) error {
	s.metrics.RecordApprovalDenied(ctx, reason)
	s.log.Warn("customer approval denied", zap.String("gcc_id", gccID.String()), zap.String("reason", reason))
	return domain.ErrApprovalTokenInvalid
}

func (s *Service) approvalURL(gccID snowflake.ID, token string) string {
	if s.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/gcc-approvals/%s?token=%s", s.baseURL, gccID, url.QueryEscape(token))
}

// notifyCustomer emails the approval link. Failures are logged only.
func (s *Service) notifyCustomer(ctx context.Context, gcc domain.Gcc, token domain.ApprovalToken) {
	if s.mailer == nil {
		return
	}
	customer, site, err := s.customers.ResolveSite(ctx, gcc.CustomerID, gcc.CustomerSiteID)
	if err != nil || customer.Email == "" {
		return
	}
	items, err := s.repo.ListItems(ctx, s.db, gcc.ID)
	if err != nil {
		s.log.Warn("load list items for approval email failed", zap.String("gcc_id", gcc.ID.String()), zap.Error(err))
		return
	}

	loc := s.billing.Get().Location()
	err = s.mailer.SendTemplate(ctx, []string{customer.Email}, email.TemplateGccApprovalRequest, map[string]any{
		"customer_name": customer.Name,
		"site_name":     site.Name,
		"period":        gcc.PeriodStart.In(loc).Format("January 2006"),
		"total_volume":  formatVolume(totalVolume(items)),
		"approval_url":  token.URL,
		"expires_at":    token.ExpiresAt.In(loc).Format("2006-01-02 15:04 MST"),
	})
	if err != nil {
		s.log.Warn("send approval email failed", zap.String("gcc_id", gcc.ID.String()), zap.Error(err))
	}
}

func awaitingCustomer(status lifecycle.Status) error {
	switch {
	case status == lifecycle.GccApprovedByAdmin:
		return nil
	case status.Reached(lifecycle.GccApprovedByCustomer):
		return domain.ErrAlreadyApproved
	default:
		return domain.ErrNotAwaitingApproval
	}
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, authdomain.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, authdomain.ErrTokenExpired):
		return "expired_token"
	default:
		return "invalid_token"
	}
}

func approvalFilter(req domain.ListApprovalsRequest) (domain.ApprovalFilter, error) {
	var filter domain.ApprovalFilter
	if strings.TrimSpace(req.GccID) != "" {
		id, err := parseRequiredID(req.GccID, domain.ErrInvalidID)
		if err != nil {
			return filter, err
		}
		filter.GccID = id
	}
	if strings.TrimSpace(req.CustomerID) != "" {
		id, err := parseRequiredID(req.CustomerID, domain.ErrInvalidCustomer)
		if err != nil {
			return filter, err
		}
		filter.CustomerID = id
	}
	return filter, nil
}
