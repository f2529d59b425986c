// Package domain contains the token types for staff and customer approval auth.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleAdmin   = "admin"
	RoleOfficer = "officer"
	RoleFinance = "finance"
	RoleViewer  = "viewer"
)

// Principal is the authenticated staff user behind a request.
type Principal struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// ApprovalGrant binds a customer approval to one GCC and its owner.
type ApprovalGrant struct {
	GccID          snowflake.ID `json:"gcc_id"`
	CustomerID     snowflake.ID `json:"customer_id"`
	CustomerSiteID snowflake.ID `json:"customer_site_id"`
	ExpiresAt      time.Time    `json:"expires_at"`
}

type Service interface {
	IssueStaffToken(principal Principal, ttl time.Duration) (string, error)
	ParseStaffToken(token string) (Principal, error)

	IssueApprovalToken(grant ApprovalGrant) (string, ApprovalGrant, error)
	VerifyApprovalToken(token string) (ApprovalGrant, error)
}

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrTokenExpired = errors.New("token_expired")
	ErrInvalidRole  = errors.New("invalid_role")
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleOfficer, RoleFinance, RoleViewer:
		return true
	default:
		return false
	}
}
