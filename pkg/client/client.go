// Package client is the in-process SDK for the TaskVault API. It keeps
// read-through caches of the team roster and the workflow list, mediates
// every mutation through the remote endpoints, and reconciles optimistic
// step-status updates against server truth.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yskhub/TaskVault/internal/model"
	"github.com/yskhub/TaskVault/internal/policy"
	"go.uber.org/zap"
)

type stepKey struct {
	workflowID int64
	index      int
}

// Client owns the in-memory caches exclusively. All mutation goes
// through its operations; accessors return copies.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	plan      model.Plan
	actorRole model.Role

	mu        sync.Mutex
	members   []model.TeamMember
	workflows []model.Workflow
	stepSeq   map[stepKey]uint64
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 10 * time.Second},
		logger:    zap.NewNop(),
		plan:      model.PlanFree,
		actorRole: model.RoleMember,
		stepSeq:   make(map[stepKey]uint64),
	}
}

func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) WithLogger(l *zap.Logger) *Client {
	c.logger = l
	return c
}

// WithSession sets the plan and role the client acts under. Both gate
// operations locally; the server re-checks authoritatively.
func (c *Client) WithSession(plan model.Plan, role model.Role) *Client {
	c.plan = plan
	c.actorRole = role
	return c
}

// Members returns a copy of the cached roster.
func (c *Client) Members() []model.TeamMember {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.TeamMember, len(c.members))
	copy(out, c.members)
	return out
}

// Workflows returns a copy of the cached workflow list.
func (c *Client) Workflows() []model.Workflow {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Workflow, len(c.workflows))
	for i, w := range c.workflows {
		out[i] = copyWorkflow(w)
	}
	return out
}

// RemainingSlots computes how many members the current plan still
// allows given the cached roster. May be negative when server state
// exceeds the nominal limit.
func (c *Client) RemainingSlots() int {
	c.mu.Lock()
	count := len(c.members)
	c.mu.Unlock()
	slots, err := policy.RemainingSlots(c.plan, count)
	if err != nil {
		return 0
	}
	return slots
}

// CanAddMember is the advisory UI gate. The server stays the authority.
func (c *Client) CanAddMember() bool {
	return c.RemainingSlots() > 0
}

func copyWorkflow(w model.Workflow) model.Workflow {
	out := w
	out.Steps = make([]model.Step, len(w.Steps))
	copy(out.Steps, w.Steps)
	return out
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return NewError(RequestFailed, fmt.Sprintf("encode request: %v", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return NewError(RequestFailed, fmt.Sprintf("build request: %v", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return NewError(RequestFailed, fmt.Sprintf("%s %s: %v", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return NewError(RateLimited, fmt.Sprintf("%s %s rate limited", method, path))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return NewError(RequestFailed, fmt.Sprintf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewError(RequestFailed, fmt.Sprintf("%s %s: decode response: %v", method, path, err))
	}
	return nil
}
