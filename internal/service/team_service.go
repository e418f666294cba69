package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/yskhub/TaskVault/internal/db"
	"github.com/yskhub/TaskVault/internal/model"
	"github.com/yskhub/TaskVault/internal/policy"
	"github.com/yskhub/TaskVault/internal/repository"
	"github.com/yskhub/TaskVault/pkg/logger"
	"go.uber.org/zap"
)

type TeamService struct {
	tx db.Transactor

	team  repository.TeamRepository
	audit repository.AuditRepository
	usage UsageRecorder
}

func NewTeamService(tx db.Transactor) *TeamService {
	return &TeamService{
		tx:    tx,
		usage: NopUsageRecorder(),
	}
}

func (t *TeamService) ListMembers(ctx context.Context) ([]*model.TeamMember, *Error) {
	l := logger.FromContext(ctx)

	members, err := t.team.List(ctx)
	if err != nil {
		l.Error("failed to list team members", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list team members")
	}

	res := make([]*model.TeamMember, 0, len(members))
	for _, m := range members {
		res = append(res, &model.TeamMember{
			ID:    m.ID,
			Email: m.Email,
			Role:  model.Role(m.Role),
		})
	}

	return res, nil
}

// AddMember enforces the plan cap authoritatively. The cap check and the
// insert run in one transaction so concurrent adds cannot overshoot it.
func (t *TeamService) AddMember(ctx context.Context, email string, role model.Role, plan model.Plan) (*model.TeamMember, *Error) {
	l := logger.FromContext(ctx)
	l.Info("adding team member", zap.String("email", email), zap.String("role", string(role)))

	limit, limErr := policy.MemberLimit(plan)
	if limErr != nil {
		l.Warn("unknown plan in add request", zap.String("plan", string(plan)))
		return nil, NewError(ErrorCodeInvalidBody, "unknown subscription plan")
	}

	member := &model.TeamMember{}

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		count, err := t.team.Count(txCtx)
		if err != nil {
			l.Error("failed to count team members", zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to count team members")
		}

		if count >= limit {
			l.Warn("plan limit reached", zap.String("plan", string(plan)), zap.Int("count", count))
			return NewError(ErrorCodePlanLimit,
				fmt.Sprintf("%s plan is limited to %d team members.", capitalize(string(plan)), limit))
		}

		created, err := t.team.Create(txCtx, &repository.TeamMember{
			Email: email,
			Role:  string(role),
		})
		if errors.Is(err, repository.ErrAlreadyExists) {
			l.Warn("member already on the roster", zap.String("email", email))
			return NewError(ErrorCodeMemberExists, "email is already on the roster")
		}
		if err != nil {
			l.Error("failed to create team member", zap.String("email", email), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to add team member")
		}

		member.ID = created.ID
		member.Email = created.Email
		member.Role = model.Role(created.Role)

		target := created.Email
		if err = t.audit.Insert(txCtx, &repository.AuditLog{
			Action: "team.member_added",
			Target: &target,
		}); err != nil {
			l.Error("failed to write audit entry", zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to add team member")
		}

		return nil
	})

	var res *Error
	if errors.As(err, &res) {
		return nil, res
	}
	if err != nil {
		l.Error("add member transaction failed", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to add team member")
	}

	t.usage.RecordEvent(ctx, "team.member_added", map[string]any{"role": string(role), "plan": string(plan)})

	return member, nil
}

func (t *TeamService) UpdateMemberRole(ctx context.Context, actorRole model.Role, memberID int64, role model.Role) (*model.TeamMember, *Error) {
	l := logger.FromContext(ctx)
	l.Info("updating member role", zap.Int64("member_id", memberID), zap.String("role", string(role)))

	if !policy.CanManageTeam(actorRole) {
		l.Warn("actor may not manage the team", zap.String("actor_role", string(actorRole)))
		return nil, NewError(ErrorCodeNotAuthorized, "only admins can change roles")
	}

	member := &model.TeamMember{}

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		updated, err := t.team.UpdateRole(txCtx, memberID, string(role))
		if errors.Is(err, repository.ErrNotFound) {
			l.Warn("member not found", zap.Int64("member_id", memberID))
			return NewError(ErrorCodeNotFound, "team member not found")
		}
		if err != nil {
			l.Error("failed to update member role", zap.Int64("member_id", memberID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to update member role")
		}

		member.ID = updated.ID
		member.Email = updated.Email
		member.Role = model.Role(updated.Role)

		actor := string(actorRole)
		target := updated.Email
		if err = t.audit.Insert(txCtx, &repository.AuditLog{
			ActorRole: &actor,
			Action:    "team.role_updated",
			Target:    &target,
		}); err != nil {
			l.Error("failed to write audit entry", zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to update member role")
		}

		return nil
	})

	var res *Error
	if errors.As(err, &res) {
		return nil, res
	}
	if err != nil {
		l.Error("role update transaction failed", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update member role")
	}

	t.usage.RecordEvent(ctx, "team.role_updated", map[string]any{"member_id": memberID, "role": string(role)})

	return member, nil
}

func (t *TeamService) RemoveMember(ctx context.Context, actorRole model.Role, memberID int64) *Error {
	l := logger.FromContext(ctx)
	l.Info("removing team member", zap.Int64("member_id", memberID))

	if !policy.CanManageTeam(actorRole) {
		l.Warn("actor may not manage the team", zap.String("actor_role", string(actorRole)))
		return NewError(ErrorCodeNotAuthorized, "only admins can remove members")
	}

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		err := t.team.Delete(txCtx, memberID)
		if errors.Is(err, repository.ErrNotFound) {
			l.Warn("member not found", zap.Int64("member_id", memberID))
			return NewError(ErrorCodeNotFound, "team member not found")
		}
		if err != nil {
			l.Error("failed to remove team member", zap.Int64("member_id", memberID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to remove team member")
		}

		actor := string(actorRole)
		target := "member:" + strconv.FormatInt(memberID, 10)
		if err = t.audit.Insert(txCtx, &repository.AuditLog{
			ActorRole: &actor,
			Action:    "team.member_removed",
			Target:    &target,
		}); err != nil {
			l.Error("failed to write audit entry", zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to remove team member")
		}

		return nil
	})

	var res *Error
	if errors.As(err, &res) {
		return res
	}
	if err != nil {
		l.Error("remove member transaction failed", zap.Error(err))
		return NewError(ErrorCodeUnspecified, "failed to remove team member")
	}

	t.usage.RecordEvent(ctx, "team.member_removed", map[string]any{"member_id": memberID})

	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (t *TeamService) WithTeamRepo(r repository.TeamRepository) *TeamService {
	t.team = r
	return t
}

func (t *TeamService) WithAuditRepo(r repository.AuditRepository) *TeamService {
	t.audit = r
	return t
}

func (t *TeamService) WithUsageRecorder(u UsageRecorder) *TeamService {
	t.usage = u
	return t
}
