package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/yskhub/TaskVault/internal/model"
	"github.com/yskhub/TaskVault/internal/policy"
	"go.uber.org/zap"
)

type addMemberRequest struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	Plan  model.Plan `json:"plan"`
}

type updateRoleRequest struct {
	Role model.Role `json:"role"`
}

// LoadRoster fetches the full roster and replaces the cache entirely.
// On failure the prior cache is left untouched and a LoadFailed error
// is returned.
func (c *Client) LoadRoster(ctx context.Context) ([]model.TeamMember, error) {
	var members []model.TeamMember
	if err := c.doJSON(ctx, http.MethodGet, "/team", nil, &members); err != nil {
		c.logger.Warn("roster load failed, keeping cached view", zap.Error(err))
		return nil, NewError(LoadFailed, err.Error())
	}
	if members == nil {
		members = []model.TeamMember{}
	}

	c.mu.Lock()
	c.members = members
	c.mu.Unlock()
	return c.Members(), nil
}

// AddMember submits a new roster entry. The plan-limit check is the
// server's; RemainingSlots only gates the UI action.
func (c *Client) AddMember(ctx context.Context, email string, role model.Role) (*model.TeamMember, error) {
	if strings.TrimSpace(email) == "" {
		return nil, NewError(RequestFailed, "email is required")
	}

	var created model.TeamMember
	req := addMemberRequest{Email: email, Role: role, Plan: c.plan}
	if err := c.doJSON(ctx, http.MethodPost, "/team/add", req, &created); err != nil {
		return nil, err
	}

	if _, err := c.LoadRoster(ctx); err != nil {
		c.logger.Warn("post-add roster reload failed", zap.Error(err))
	}
	return &created, nil
}

// UpdateMemberRole changes a member's role. Role management is pro-only
// and admin-only; both are rejected locally before any network call.
func (c *Client) UpdateMemberRole(ctx context.Context, memberID int64, role model.Role) error {
	if err := c.authorizeTeamManagement(); err != nil {
		return err
	}

	path := fmt.Sprintf("/team/%d/role?actor_role=%s", memberID, url.QueryEscape(string(c.actorRole)))
	if err := c.doJSON(ctx, http.MethodPatch, path, updateRoleRequest{Role: role}, nil); err != nil {
		return err
	}

	_, err := c.LoadRoster(ctx)
	return err
}

// RemoveMember deletes a roster entry, with the same local pre-checks
// as UpdateMemberRole.
func (c *Client) RemoveMember(ctx context.Context, memberID int64) error {
	if err := c.authorizeTeamManagement(); err != nil {
		return err
	}

	path := fmt.Sprintf("/team/%d?actor_role=%s", memberID, url.QueryEscape(string(c.actorRole)))
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	_, err := c.LoadRoster(ctx)
	return err
}

func (c *Client) authorizeTeamManagement() error {
	if c.plan != model.PlanPro {
		return NewError(NotAuthorized, "role management requires the pro plan")
	}
	if !policy.CanManageTeam(c.actorRole) {
		return NewError(NotAuthorized, "only admins can manage the team")
	}
	return nil
}
