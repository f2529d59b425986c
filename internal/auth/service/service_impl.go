package service

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/gascustody/internal/auth/domain"
	"github.com/smallbiznis/gascustody/internal/clock"
	"github.com/smallbiznis/gascustody/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	issuer           = "gascustody"
	staffAudience    = "gascustody-api"
	approvalAudience = "gcc-customer-approval"

	defaultApprovalTTL = 72 * time.Hour
)

type staffClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type approvalClaims struct {
	GccID          string `json:"gcc_id"`
	CustomerID     string `json:"customer_id"`
	CustomerSiteID string `json:"customer_site_id"`
	jwt.RegisteredClaims
}

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	log            *zap.Logger
	clock          clock.Clock
	staffSecret    []byte
	approvalSecret []byte
	approvalTTL    time.Duration
}

func New(p Params) (domain.Service, error) {
	staffSecret := strings.TrimSpace(p.Cfg.AuthJWTSecret)
	if staffSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	approvalSecret := strings.TrimSpace(p.Cfg.ApprovalTokenSecret)
	if approvalSecret == "" {
		approvalSecret = staffSecret
	}
	ttl := p.Cfg.ApprovalTokenTTL
	if ttl <= 0 {
		ttl = defaultApprovalTTL
	}
	return &Service{
		log:            p.Log.Named("auth.service"),
		clock:          p.Clock,
		staffSecret:    []byte(staffSecret),
		approvalSecret: []byte(approvalSecret),
		approvalTTL:    ttl,
	}, nil
}

func (s *Service) IssueStaffToken(principal domain.Principal, ttl time.Duration) (string, error) {
	if !domain.ValidRole(principal.Role) {
		return "", domain.ErrInvalidRole
	}
	now := s.clock.Now()
	claims := staffClaims{
		UserID: principal.UserID,
		Role:   principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(principal.UserID, 10),
			Audience:  jwt.ClaimStrings{staffAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.staffSecret)
}

func (s *Service) ParseStaffToken(token string) (domain.Principal, error) {
	var claims staffClaims
	if err := s.parse(token, staffAudience, s.staffSecret, &claims); err != nil {
		return domain.Principal{}, err
	}
	if claims.UserID <= 0 || !domain.ValidRole(claims.Role) {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	return domain.Principal{UserID: claims.UserID, Role: claims.Role}, nil
}

func (s *Service) IssueApprovalToken(grant domain.ApprovalGrant) (string, domain.ApprovalGrant, error) {
	if grant.GccID == 0 || grant.CustomerID == 0 || grant.CustomerSiteID == 0 {
		return "", domain.ApprovalGrant{}, domain.ErrInvalidToken
	}
	now := s.clock.Now()
	grant.ExpiresAt = now.Add(s.approvalTTL).UTC().Truncate(time.Second)

	claims := approvalClaims{
		GccID:          grant.GccID.String(),
		CustomerID:     grant.CustomerID.String(),
		CustomerSiteID: grant.CustomerSiteID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   grant.GccID.String(),
			Audience:  jwt.ClaimStrings{approvalAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(grant.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.approvalSecret)
	if err != nil {
		return "", domain.ApprovalGrant{}, err
	}
	return token, grant, nil
}

func (s *Service) VerifyApprovalToken(token string) (domain.ApprovalGrant, error) {
	var claims approvalClaims
	if err := s.parse(token, approvalAudience, s.approvalSecret, &claims); err != nil {
		return domain.ApprovalGrant{}, err
	}

	gccID, err1 := snowflake.ParseString(claims.GccID)
	customerID, err2 := snowflake.ParseString(claims.CustomerID)
	siteID, err3 := snowflake.ParseString(claims.CustomerSiteID)
	if err := errors.Join(err1, err2, err3); err != nil {
		return domain.ApprovalGrant{}, domain.ErrInvalidToken
	}

	grant := domain.ApprovalGrant{
		GccID:          gccID,
		CustomerID:     customerID,
		CustomerSiteID: siteID,
	}
	if claims.ExpiresAt != nil {
		grant.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return grant, nil
}

func (s *Service) parse(token, audience string, secret []byte, claims jwt.Claims) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrMissingToken
	}

	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.ErrTokenExpired
		}
		s.log.Debug("token rejected", zap.String("audience", audience), zap.Error(err))
		return domain.ErrInvalidToken
	}
	return nil
}
