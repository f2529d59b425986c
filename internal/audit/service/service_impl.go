package service

import (
	"cmp"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	"github.com/smallbiznis/gascustody/internal/audit/masking"
	"github.com/smallbiznis/gascustody/internal/clock"
	obscontext "github.com/smallbiznis/gascustody/internal/observability/context"
	"github.com/smallbiznis/gascustody/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var sensitiveKeys = []string{"signature", "approval_token", "token"}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	c := p.Clock
	if c == nil {
		c = clock.NewSystem()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: c,
	}
}

// AuditLog appends one entry. An empty actorType falls back to the actor on
// ctx and then to system; secrets in metadata are masked first.
func (s *Service) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		Action:     action,
		TargetType: cmp.Or(strings.TrimSpace(targetType), "unknown"),
		TargetID:   trimmedOrNil(targetID),
		Metadata:   datatypes.JSONMap(s.metadata(ctx, metadata)),
		CreatedAt:  s.clock.Now().UTC(),
	}
	entry.ActorType, entry.ActorID = resolveActor(ctx, strings.TrimSpace(actorType), actorID)
	if ip := obscontext.IPAddressFromContext(ctx); ip != "" {
		entry.IPAddress = &ip
	}
	if ua := obscontext.UserAgentFromContext(ctx); ua != "" {
		entry.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("audit insert failed",
			zap.String("action", action),
			zap.String("target_type", entry.TargetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) metadata(ctx context.Context, in map[string]any) map[string]any {
	out := masking.MaskKeys(in, sensitiveKeys...)
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		out["request_id"] = requestID
	}
	return out
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	cursor, err := pagination.ParseTimeCursor(req.PageToken, func(v string) (int64, error) {
		return strconv.ParseInt(v, 10, 64)
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
	}

	limit := req.Limit()
	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		ActorID:    req.ActorID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      limit,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	items, pageInfo := pagination.Page(items, limit, func(item *auditdomain.AuditLog) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.String(), CreatedAt: item.CreatedAt.Format(time.RFC3339Nano)}
	})

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	return auditdomain.ListAuditLogResponse{PageInfo: pageInfo, AuditLogs: logs}, nil
}

func resolveActor(ctx context.Context, actorType string, actorID *string) (string, *string) {
	if actorType != "" {
		return actorType, trimmedOrNil(actorID)
	}
	ctxType, ctxID := obscontext.ActorFromContext(ctx)
	if ctxType == "" {
		return auditdomain.ActorTypeSystem, trimmedOrNil(actorID)
	}
	if id := trimmedOrNil(actorID); id != nil {
		return ctxType, id
	}
	return ctxType, trimmedOrNil(&ctxID)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	if trimmed := strings.TrimSpace(*value); trimmed != "" {
		return &trimmed
	}
	return nil
}
