package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	authdomain "github.com/smallbiznis/gascustody/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectCustomer       = "customer"
	ObjectDailyVolume    = "daily_volume"
	ObjectGcc            = "gcc"
	ObjectGccApproval    = "gcc_approval"
	ObjectInvoiceAdvice  = "invoice_advice"
	ObjectInvoice        = "invoice"
	ObjectNgmlAccount    = "ngml_account"
	ObjectLetterTemplate = "letter_template"
	ObjectAuditLog       = "audit_log"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionGccApproveAdmin       = "gcc.approve_admin"
	ActionGccIssueApprovalToken = "gcc.issue_approval_token"

	ActionInvoiceAdviceApprove = "invoice_advice.approve"

	ActionInvoiceApprove        = "invoice.approve"
	ActionInvoicePay            = "invoice.pay"
	ActionInvoiceConfirmPayment = "invoice.confirm_payment"
)

var crud = []string{ActionView, ActionCreate, ActionUpdate, ActionDelete}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

// NewEnforcer loads the RBAC model and the persisted casbin_rule rows, then
// makes sure every built-in role grant exists.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authorization model: %w", err)
	}
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)

	steps := []func() error{
		enforcer.LoadPolicy,
		func() error { return seedPolicies(enforcer) },
		enforcer.BuildRoleLinks,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, principal authdomain.Principal, object string, action string) error {
	if principal.UserID <= 0 || !authdomain.ValidRole(principal.Role) {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("user:%d", principal.UserID)
	roleName := fmt.Sprintf("role:%s", principal.Role)
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("role", principal.Role),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.audit(ctx, principal, "authorization.denied", object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.audit(ctx, principal, "authorization.granted", object, action)
	}
	return nil
}

// ensureGrouping links the user to the role carried by the token and drops
// any role a previous token granted.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	roles, err := s.enforcer.GetRolesForUser(subject)
	if err != nil {
		return err
	}
	linked := false
	for _, role := range roles {
		if role == roleName {
			linked = true
			continue
		}
		if _, err := s.enforcer.DeleteRoleForUser(subject, role); err != nil {
			s.log.Warn("drop stale role link failed", zap.String("subject", subject), zap.String("role", role), zap.Error(err))
		}
	}
	if linked {
		return nil
	}
	_, err = s.enforcer.AddRoleForUser(subject, roleName)
	return err
}

func (s *ServiceImpl) audit(ctx context.Context, principal authdomain.Principal, action string, object string, capability string) {
	if s.auditSvc == nil {
		return
	}
	actorID := strconv.FormatInt(principal.UserID, 10)
	targetID := capability
	_ = s.auditSvc.AuditLog(ctx, auditdomain.ActorTypeUser, &actorID, action, "authorization", &targetID, map[string]any{
		"object": object,
		"action": capability,
		"role":   principal.Role,
	})
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionGccApproveAdmin, ActionGccIssueApprovalToken, ActionInvoiceConfirmPayment:
		return true
	default:
		return false
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	var policies [][]string
	grant := func(role, object string, actions ...string) {
		for _, action := range actions {
			policies = append(policies, []string{"role:" + role, object, action})
		}
	}

	// Admin manages everything.
	for _, object := range []string{
		ObjectCustomer, ObjectDailyVolume, ObjectGcc, ObjectGccApproval, ObjectInvoiceAdvice,
		ObjectInvoice, ObjectNgmlAccount, ObjectLetterTemplate,
	} {
		grant(authdomain.RoleAdmin, object, crud...)
	}
	grant(authdomain.RoleAdmin, ObjectGcc, ActionGccApproveAdmin, ActionGccIssueApprovalToken)
	grant(authdomain.RoleAdmin, ObjectInvoiceAdvice, ActionInvoiceAdviceApprove)
	grant(authdomain.RoleAdmin, ObjectInvoice, ActionInvoiceApprove, ActionInvoicePay, ActionInvoiceConfirmPayment)
	grant(authdomain.RoleAdmin, ObjectAuditLog, ActionView)

	// Field officers record readings and prepare certificates.
	grant(authdomain.RoleOfficer, ObjectCustomer, ActionView, ActionCreate)
	grant(authdomain.RoleOfficer, ObjectDailyVolume, crud...)
	grant(authdomain.RoleOfficer, ObjectGcc, ActionView, ActionCreate, ActionDelete, ActionGccIssueApprovalToken)
	grant(authdomain.RoleOfficer, ObjectGccApproval, ActionView)
	grant(authdomain.RoleOfficer, ObjectInvoiceAdvice, ActionView, ActionCreate)
	grant(authdomain.RoleOfficer, ObjectLetterTemplate, ActionView)

	// Finance owns advices, invoices and bank details.
	grant(authdomain.RoleFinance, ObjectCustomer, ActionView)
	grant(authdomain.RoleFinance, ObjectDailyVolume, ActionView)
	grant(authdomain.RoleFinance, ObjectGcc, ActionView)
	grant(authdomain.RoleFinance, ObjectGccApproval, ActionView)
	grant(authdomain.RoleFinance, ObjectInvoiceAdvice, ActionView, ActionCreate, ActionDelete, ActionInvoiceAdviceApprove)
	grant(authdomain.RoleFinance, ObjectInvoice, crud...)
	grant(authdomain.RoleFinance, ObjectInvoice, ActionInvoiceApprove, ActionInvoicePay, ActionInvoiceConfirmPayment)
	grant(authdomain.RoleFinance, ObjectNgmlAccount, crud...)
	grant(authdomain.RoleFinance, ObjectLetterTemplate, ActionView)

	for _, object := range []string{
		ObjectCustomer, ObjectDailyVolume, ObjectGcc, ObjectGccApproval, ObjectInvoiceAdvice,
		ObjectInvoice, ObjectNgmlAccount, ObjectLetterTemplate,
	} {
		grant(authdomain.RoleViewer, object, ActionView)
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
