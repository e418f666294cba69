package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/yskhub/TaskVault/internal/model"
	"go.uber.org/zap"
)

type createWorkflowRequest struct {
	Title string       `json:"title"`
	Steps []model.Step `json:"steps"`
}

type stepStatusRequest struct {
	Status model.StepStatus `json:"status"`
}

// LoadWorkflows fetches all workflows and replaces the cache entirely.
// On failure the prior cache is left untouched.
func (c *Client) LoadWorkflows(ctx context.Context) ([]model.Workflow, error) {
	var workflows []model.Workflow
	if err := c.doJSON(ctx, http.MethodGet, "/workflows", nil, &workflows); err != nil {
		c.logger.Warn("workflow load failed, keeping cached view", zap.Error(err))
		return nil, NewError(LoadFailed, err.Error())
	}
	if workflows == nil {
		workflows = []model.Workflow{}
	}

	c.mu.Lock()
	c.workflows = workflows
	c.mu.Unlock()
	return c.Workflows(), nil
}

// CreateWorkflow submits a new workflow. Step rows missing a title or an
// assignee are dropped before submission rather than rejected.
func (c *Client) CreateWorkflow(ctx context.Context, title string, steps []model.Step) (*model.Workflow, error) {
	if strings.TrimSpace(title) == "" {
		return nil, NewError(RequestFailed, "title is required")
	}

	filtered := make([]model.Step, 0, len(steps))
	for _, s := range steps {
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.AssignedTo) == "" {
			continue
		}
		if s.Status == "" {
			s.Status = model.StepStatusPending
		}
		filtered = append(filtered, s)
	}

	var created model.Workflow
	req := createWorkflowRequest{Title: title, Steps: filtered}
	if err := c.doJSON(ctx, http.MethodPost, "/workflows", req, &created); err != nil {
		return nil, err
	}

	if _, err := c.LoadWorkflows(ctx); err != nil {
		c.logger.Warn("post-create workflow reload failed", zap.Error(err))
	}
	return &created, nil
}

// SetStepStatus applies the status to the cached step immediately, then
// confirms it with the server. On success the whole workflow is replaced
// with the server's representation; on failure the optimistic write is
// discarded by re-fetching all workflows. Each step carries a monotonic
// sequence number so that the outcome of a superseded request never
// clobbers a newer mutation.
func (c *Client) SetStepStatus(ctx context.Context, workflowID int64, stepIndex int, status model.StepStatus) (*model.Workflow, error) {
	if !status.Valid() {
		return nil, NewError(RequestFailed, fmt.Sprintf("invalid step status %q", status))
	}

	seq, err := c.applyOptimistic(workflowID, stepIndex, status)
	if err != nil {
		return nil, err
	}

	var updated model.Workflow
	path := fmt.Sprintf("/workflows/%d/steps/%d", workflowID, stepIndex)
	reqErr := c.doJSON(ctx, http.MethodPatch, path, stepStatusRequest{Status: status}, &updated)

	key := stepKey{workflowID: workflowID, index: stepIndex}
	if reqErr != nil {
		if c.isLatest(key, seq) {
			if _, loadErr := c.LoadWorkflows(ctx); loadErr != nil {
				c.logger.Warn("rollback reload failed, cache may be ahead of server", zap.Error(loadErr))
			}
		} else {
			c.logger.Debug("dropping rollback for superseded step mutation",
				zap.Int64("workflow_id", workflowID), zap.Int("step", stepIndex))
		}
		return nil, reqErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stepSeq[key] != seq {
		// A newer mutation owns this step now; its outcome wins.
		return &updated, nil
	}
	for i := range c.workflows {
		if c.workflows[i].ID == updated.ID {
			c.workflows[i] = copyWorkflow(updated)
			break
		}
	}
	return &updated, nil
}

func (c *Client) applyOptimistic(workflowID int64, stepIndex int, status model.StepStatus) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.workflows {
		if c.workflows[i].ID != workflowID {
			continue
		}
		if stepIndex < 0 || stepIndex >= len(c.workflows[i].Steps) {
			return 0, NewError(RequestFailed, fmt.Sprintf("workflow %d has no step %d", workflowID, stepIndex))
		}
		key := stepKey{workflowID: workflowID, index: stepIndex}
		c.stepSeq[key]++
		c.workflows[i].Steps[stepIndex].Status = status
		return c.stepSeq[key], nil
	}
	return 0, NewError(RequestFailed, fmt.Sprintf("unknown workflow %d", workflowID))
}

func (c *Client) isLatest(key stepKey, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stepSeq[key] == seq
}
