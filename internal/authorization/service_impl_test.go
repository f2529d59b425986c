package authorization

import (
	"context"
	"testing"

	authdomain "github.com/smallbiznis/gascustody/internal/auth/domain"
	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer(dbtest.Open(t))
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeByRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	admin := authdomain.Principal{UserID: 1, Role: authdomain.RoleAdmin}
	officer := authdomain.Principal{UserID: 2, Role: authdomain.RoleOfficer}
	finance := authdomain.Principal{UserID: 3, Role: authdomain.RoleFinance}
	viewer := authdomain.Principal{UserID: 4, Role: authdomain.RoleViewer}

	assert.NoError(t, svc.Authorize(ctx, admin, ObjectGcc, ActionGccApproveAdmin))
	assert.NoError(t, svc.Authorize(ctx, officer, ObjectGcc, ActionCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, officer, ObjectGcc, ActionGccApproveAdmin), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, finance, ObjectInvoice, ActionInvoiceConfirmPayment))
	assert.ErrorIs(t, svc.Authorize(ctx, finance, ObjectDailyVolume, ActionCreate), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, viewer, ObjectInvoice, ActionView))
	assert.ErrorIs(t, svc.Authorize(ctx, viewer, ObjectAuditLog, ActionView), ErrForbidden)
}

func TestAuthorizeFollowsRoleChange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, authdomain.Principal{UserID: 9, Role: authdomain.RoleAdmin}, ObjectAuditLog, ActionView))
	assert.ErrorIs(t,
		svc.Authorize(ctx, authdomain.Principal{UserID: 9, Role: authdomain.RoleViewer}, ObjectAuditLog, ActionView),
		ErrForbidden,
	)
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{Role: authdomain.RoleAdmin}, ObjectGcc, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{UserID: 1, Role: "root"}, ObjectGcc, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{UserID: 1, Role: authdomain.RoleAdmin}, " ", ActionView), ErrInvalidObject)
}
