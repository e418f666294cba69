package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/yskhub/TaskVault/internal/db"
	"github.com/yskhub/TaskVault/internal/model"
	"github.com/yskhub/TaskVault/internal/repository"
	"github.com/yskhub/TaskVault/pkg/logger"
	"go.uber.org/zap"
)

type WorkflowService struct {
	tx db.Transactor

	workflows repository.WorkflowRepository
	audit     repository.AuditRepository
	usage     UsageRecorder
}

func NewWorkflowService(tx db.Transactor) *WorkflowService {
	return &WorkflowService{
		tx:    tx,
		usage: NopUsageRecorder(),
	}
}

func (w *WorkflowService) ListWorkflows(ctx context.Context) ([]*model.Workflow, *Error) {
	l := logger.FromContext(ctx)

	repoWorkflows, err := w.workflows.List(ctx)
	if err != nil {
		l.Error("failed to list workflows", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list workflows")
	}

	repoSteps, err := w.workflows.ListAllSteps(ctx)
	if err != nil {
		l.Error("failed to list workflow steps", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to list workflows")
	}

	stepsByWorkflow := make(map[int64][]model.Step, len(repoWorkflows))
	for _, s := range repoSteps {
		stepsByWorkflow[s.WorkflowID] = append(stepsByWorkflow[s.WorkflowID], model.Step{
			Title:      s.Title,
			AssignedTo: s.AssignedTo,
			Status:     model.StepStatus(s.Status),
		})
	}

	res := make([]*model.Workflow, 0, len(repoWorkflows))
	for _, wf := range repoWorkflows {
		steps := stepsByWorkflow[wf.ID]
		if steps == nil {
			steps = []model.Step{}
		}
		res = append(res, &model.Workflow{
			ID:    wf.ID,
			Title: wf.Title,
			Steps: steps,
		})
	}

	return res, nil
}

// CreateWorkflow drops step rows missing a title or assignee and defaults
// the status of the rest to pending. Step order is fixed here; later
// updates address steps by index only.
func (w *WorkflowService) CreateWorkflow(ctx context.Context, title string, steps []model.Step) (*model.Workflow, *Error) {
	l := logger.FromContext(ctx)
	l.Info("creating workflow", zap.String("title", title), zap.Int("steps", len(steps)))

	if strings.TrimSpace(title) == "" {
		return nil, NewError(ErrorCodeInvalidBody, "workflow title is required")
	}

	kept := make([]model.Step, 0, len(steps))
	for _, s := range steps {
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.AssignedTo) == "" {
			continue
		}
		if s.Status == "" {
			s.Status = model.StepStatusPending
		}
		if !s.Status.Valid() {
			return nil, NewError(ErrorCodeInvalidBody, "invalid step status")
		}
		kept = append(kept, s)
	}

	workflow := &model.Workflow{}

	err := w.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		created, err := w.workflows.Create(txCtx, &repository.Workflow{Title: title})
		if err != nil {
			l.Error("failed to create workflow", zap.String("title", title), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to create workflow")
		}

		repoSteps := make([]*repository.Step, 0, len(kept))
		for i, s := range kept {
			repoSteps = append(repoSteps, &repository.Step{
				WorkflowID: created.ID,
				Idx:        i,
				Title:      s.Title,
				AssignedTo: s.AssignedTo,
				Status:     string(s.Status),
			})
		}

		if err = w.workflows.InsertSteps(txCtx, repoSteps); err != nil {
			l.Error("failed to insert workflow steps", zap.Int64("workflow_id", created.ID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to create workflow")
		}

		target := created.Title
		if err = w.audit.Insert(txCtx, &repository.AuditLog{
			Action: "workflow.created",
			Target: &target,
		}); err != nil {
			l.Error("failed to write audit entry", zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to create workflow")
		}

		workflow.ID = created.ID
		workflow.Title = created.Title
		workflow.Steps = kept

		return nil
	})

	var res *Error
	if errors.As(err, &res) {
		return nil, res
	}
	if err != nil {
		l.Error("create workflow transaction failed", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to create workflow")
	}

	w.usage.RecordEvent(ctx, "workflow.created", map[string]any{"workflow_id": workflow.ID, "steps": len(kept)})

	return workflow, nil
}

// UpdateStep applies a partial update to one step and returns the whole
// workflow as stored, which is what optimistic clients reconcile against.
func (w *WorkflowService) UpdateStep(ctx context.Context, workflowID int64, stepIndex int, patch *model.StepPatch) (*model.Workflow, *Error) {
	l := logger.FromContext(ctx)
	l.Info("updating workflow step", zap.Int64("workflow_id", workflowID), zap.Int("step_index", stepIndex))

	if patch.Status != nil && !patch.Status.Valid() {
		return nil, NewError(ErrorCodeInvalidBody, "invalid step status")
	}

	workflow := &model.Workflow{}

	err := w.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		repoWf, err := w.workflows.Get(txCtx, workflowID)
		if errors.Is(err, repository.ErrNotFound) {
			l.Warn("workflow not found", zap.Int64("workflow_id", workflowID))
			return NewError(ErrorCodeNotFound, "workflow not found")
		}
		if err != nil {
			l.Error("failed to get workflow", zap.Int64("workflow_id", workflowID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to update step")
		}

		repoSteps, err := w.workflows.ListSteps(txCtx, workflowID)
		if err != nil {
			l.Error("failed to list workflow steps", zap.Int64("workflow_id", workflowID), zap.Error(err))
			return NewError(ErrorCodeUnspecified, "failed to update step")
		}

		if stepIndex < 0 || stepIndex >= len(repoSteps) {
			l.Warn("step index out of range", zap.Int64("workflow_id", workflowID), zap.Int("step_index", stepIndex))
			return NewError(ErrorCodeNotFound, "step not found")
		}

		if patch.Title != nil || patch.AssignedTo != nil || patch.Status != nil {
			repoPatch := &repository.StepPatch{
				WorkflowID: workflowID,
				Idx:        stepIndex,
				Title:      patch.Title,
				AssignedTo: patch.AssignedTo,
			}
			if patch.Status != nil {
				status := string(*patch.Status)
				repoPatch.Status = &status
			}

			if err = w.workflows.PatchStep(txCtx, repoPatch); err != nil {
				l.Error("failed to patch step",
					zap.Int64("workflow_id", workflowID),
					zap.Int("step_index", stepIndex),
					zap.Error(err))
				return NewError(ErrorCodeUnspecified, "failed to update step")
			}

			step := repoSteps[stepIndex]
			if patch.Title != nil {
				step.Title = *patch.Title
			}
			if patch.AssignedTo != nil {
				step.AssignedTo = *patch.AssignedTo
			}
			if patch.Status != nil {
				step.Status = string(*patch.Status)
			}

			target := fmt.Sprintf("workflow:%d/step:%d", workflowID, stepIndex)
			if err = w.audit.Insert(txCtx, &repository.AuditLog{
				Action: "workflow.step_updated",
				Target: &target,
			}); err != nil {
				l.Error("failed to write audit entry", zap.Error(err))
				return NewError(ErrorCodeUnspecified, "failed to update step")
			}
		}

		steps := make([]model.Step, 0, len(repoSteps))
		for _, s := range repoSteps {
			steps = append(steps, model.Step{
				Title:      s.Title,
				AssignedTo: s.AssignedTo,
				Status:     model.StepStatus(s.Status),
			})
		}

		workflow.ID = repoWf.ID
		workflow.Title = repoWf.Title
		workflow.Steps = steps

		return nil
	})

	var res *Error
	if errors.As(err, &res) {
		return nil, res
	}
	if err != nil {
		l.Error("step update transaction failed", zap.Error(err))
		return nil, NewError(ErrorCodeUnspecified, "failed to update step")
	}

	w.usage.RecordEvent(ctx, "workflow.step_updated", map[string]any{"workflow_id": workflowID, "step_index": stepIndex})

	return workflow, nil
}

func (w *WorkflowService) WithWorkflowRepo(r repository.WorkflowRepository) *WorkflowService {
	w.workflows = r
	return w
}

func (w *WorkflowService) WithAuditRepo(r repository.AuditRepository) *WorkflowService {
	w.audit = r
	return w
}

func (w *WorkflowService) WithUsageRecorder(u UsageRecorder) *WorkflowService {
	w.usage = u
	return w
}
