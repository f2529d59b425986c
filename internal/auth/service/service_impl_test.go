package service

import (
	"testing"
	"time"

	"github.com/smallbiznis/gascustody/internal/auth/domain"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, fake *clock.FakeClock, approvalSecret string) domain.Service {
	t.Helper()
	svc, err := New(Params{
		Cfg: config.Config{
			AuthJWTSecret:       "staff-secret",
			ApprovalTokenSecret: approvalSecret,
			ApprovalTokenTTL:    time.Hour,
		},
		Log:   zap.NewNop(),
		Clock: fake,
	})
	require.NoError(t, err)
	return svc
}

func TestStaffTokenRoundTrip(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake, "")

	token, err := svc.IssueStaffToken(domain.Principal{UserID: 7, Role: domain.RoleOfficer}, time.Hour)
	require.NoError(t, err)

	principal, err := svc.ParseStaffToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Principal{UserID: 7, Role: domain.RoleOfficer}, principal)

	fake.Advance(2 * time.Hour)
	_, err = svc.ParseStaffToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	_, err = svc.ParseStaffToken("")
	assert.ErrorIs(t, err, domain.ErrMissingToken)

	_, err = svc.IssueStaffToken(domain.Principal{UserID: 7, Role: "root"}, time.Hour)
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestApprovalTokenIsNotAStaffToken(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake, "")

	token, grant, err := svc.IssueApprovalToken(domain.ApprovalGrant{GccID: 1, CustomerID: 2, CustomerSiteID: 3})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), grant.ExpiresAt)

	verified, err := svc.VerifyApprovalToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 1, verified.GccID)
	assert.EqualValues(t, 2, verified.CustomerID)
	assert.EqualValues(t, 3, verified.CustomerSiteID)

	_, err = svc.ParseStaffToken(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestApprovalTokenRejectsForeignSecret(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	issuer := newTestService(t, fake, "approval-a")
	verifier := newTestService(t, fake, "approval-b")

	token, _, err := issuer.IssueApprovalToken(domain.ApprovalGrant{GccID: 1, CustomerID: 2, CustomerSiteID: 3})
	require.NoError(t, err)

	_, err = verifier.VerifyApprovalToken(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	fake.Advance(2 * time.Hour)
	_, err = issuer.VerifyApprovalToken(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}
