package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	"github.com/smallbiznis/gascustody/internal/audit/repository"
	obscontext "github.com/smallbiznis/gascustody/internal/observability/context"
	"github.com/smallbiznis/gascustody/pkg/db/dbtest"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuditService(t *testing.T) auditdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(Params{
		DB:    dbtest.Open(t, &auditdomain.AuditLog{}),
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestAuditLogMasksSignatures(t *testing.T) {
	svc := newAuditService(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithClient(ctx, "10.0.0.8", "curl/8.0")

	gccID := "42"
	require.NoError(t, svc.AuditLog(ctx, auditdomain.ActorTypeCustomer, nil, "gcc.approved_by_customer", "gcc", &gccID, map[string]any{
		"customer_name": "Acme Steel",
		"signature":     "data:image/png;base64,AAAABBBBCCCC",
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetType: "gcc"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, auditdomain.ActorTypeCustomer, entry.ActorType)
	assert.Equal(t, "Acme Steel", entry.Metadata["customer_name"])
	assert.NotContains(t, entry.Metadata["signature"], "AAAABBBB")
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.8", *entry.IPAddress)
}

func TestAuditLogFallsBackToContextActor(t *testing.T) {
	svc := newAuditService(t)
	ctx := obscontext.WithActor(context.Background(), auditdomain.ActorTypeUser, "7")

	require.NoError(t, svc.AuditLog(ctx, "", nil, "gcc.created", "gcc", nil, nil))
	assert.ErrorIs(t, svc.AuditLog(ctx, "", nil, " ", "gcc", nil, nil), auditdomain.ErrInvalidAction)

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, auditdomain.ActorTypeUser, resp.AuditLogs[0].ActorType)
	require.NotNil(t, resp.AuditLogs[0].ActorID)
	assert.Equal(t, "7", *resp.AuditLogs[0].ActorID)
}

func TestListRejectsBadToken(t *testing.T) {
	svc := newAuditService(t)
	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageToken: "not-base64!"},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}

func TestListFiltersByActionPrefixAndActor(t *testing.T) {
	svc := newAuditService(t)
	ctx := context.Background()
	admin, officer := "1", "2"
	gccID, invoiceID := "42", "43"

	require.NoError(t, svc.AuditLog(ctx, auditdomain.ActorTypeUser, &officer, "gcc.created", "gcc", &gccID, nil))
	require.NoError(t, svc.AuditLog(ctx, auditdomain.ActorTypeUser, &admin, "gcc.approved_by_admin", "gcc", &gccID, nil))
	require.NoError(t, svc.AuditLog(ctx, auditdomain.ActorTypeUser, &admin, "invoice.created", "invoice", &invoiceID, nil))

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "gcc.*"})
	require.NoError(t, err)
	assert.Len(t, resp.AuditLogs, 2)

	resp, err = svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "gcc.*", ActorID: admin})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "gcc.approved_by_admin", resp.AuditLogs[0].Action)

	resp, err = svc.List(ctx, auditdomain.ListAuditLogRequest{Action: "gcc.created"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	require.NotNil(t, resp.AuditLogs[0].ActorID)
	assert.Equal(t, officer, *resp.AuditLogs[0].ActorID)
}
