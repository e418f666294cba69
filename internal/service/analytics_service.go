package service

import (
	"context"

	"github.com/yskhub/TaskVault/internal/model"
	"github.com/yskhub/TaskVault/internal/repository"
	"github.com/yskhub/TaskVault/pkg/logger"
	"go.uber.org/zap"
)

type AnalyticsService struct {
	team      repository.TeamRepository
	workflows repository.WorkflowRepository
}

func NewAnalyticsService() *AnalyticsService {
	return &AnalyticsService{}
}

func (a *AnalyticsService) Overview(ctx context.Context) (*model.AnalyticsOverview, *Error) {
	l := logger.FromContext(ctx)

	members, err := a.team.List(ctx)
	if err != nil {
		l.Error("failed to list team members", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to build analytics overview")
	}

	workflows, err := a.workflows.List(ctx)
	if err != nil {
		l.Error("failed to list workflows", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to build analytics overview")
	}

	steps, err := a.workflows.ListAllSteps(ctx)
	if err != nil {
		l.Error("failed to list workflow steps", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to build analytics overview")
	}

	overview := &model.AnalyticsOverview{}
	overview.Workflows.Total = len(workflows)
	overview.Team.TotalMembers = len(members)

	for _, m := range members {
		if model.Role(m.Role) == model.RoleAdmin {
			overview.Team.Admins++
		} else {
			overview.Team.Members++
		}
	}

	withSteps := make(map[int64]bool)
	for _, s := range steps {
		withSteps[s.WorkflowID] = true
		overview.Workflows.TotalSteps++

		switch model.StepStatus(s.Status) {
		case model.StepStatusInProgress:
			overview.Workflows.InProgressSteps++
		case model.StepStatusCompleted:
			overview.Workflows.CompletedSteps++
		default:
			overview.Workflows.PendingSteps++
		}
	}

	overview.Workflows.WithSteps = len(withSteps)
	overview.Workflows.WithoutSteps = overview.Workflows.Total - overview.Workflows.WithSteps

	return overview, nil
}

func (a *AnalyticsService) WithTeamRepo(r repository.TeamRepository) *AnalyticsService {
	a.team = r
	return a
}

func (a *AnalyticsService) WithWorkflowRepo(r repository.WorkflowRepository) *AnalyticsService {
	a.workflows = r
	return a
}
