package service

import (
	"context"

	"github.com/yskhub/TaskVault/internal/model"
	"github.com/yskhub/TaskVault/internal/policy"
	"github.com/yskhub/TaskVault/internal/repository"
	"github.com/yskhub/TaskVault/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 100
)

type AuditService struct {
	audit repository.AuditRepository
}

func NewAuditService() *AuditService {
	return &AuditService{}
}

// ListLogs is admin-only; the actor role comes from the request and the
// check mirrors the team-management gate.
func (a *AuditService) ListLogs(ctx context.Context, actorRole model.Role, limit int) ([]*model.AuditLog, *Error) {
	l := logger.FromContext(ctx)

	if !policy.CanManageTeam(actorRole) {
		l.Warn("actor may not view audit logs", zap.String("actor_role", string(actorRole)))
		return nil, NewError(ErrorCodeNotAuthorized, "only admins can view audit logs")
	}

	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	entries, err := a.audit.List(ctx, limit)
	if err != nil {
		l.Error("failed to list audit logs", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list audit logs")
	}

	res := make([]*model.AuditLog, 0, len(entries))
	for _, e := range entries {
		res = append(res, &model.AuditLog{
			ID:        e.ID,
			ActorID:   e.ActorID,
			ActorRole: e.ActorRole,
			Action:    e.Action,
			Target:    e.Target,
			CreatedAt: e.CreatedAt,
		})
	}

	return res, nil
}

func (a *AuditService) WithAuditRepo(r repository.AuditRepository) *AuditService {
	a.audit = r
	return a
}
