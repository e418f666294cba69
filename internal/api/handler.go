package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/yskhub/TaskVault/internal/model"
	"github.com/yskhub/TaskVault/internal/service"
	"github.com/yskhub/TaskVault/pkg/logger"
	"go.uber.org/zap"
)

// Requests per minute against the mutating endpoints; list endpoints are
// left unlimited, the dashboard polls them.
const (
	teamWriteLimit     = 30
	workflowWriteLimit = 60
)

// PlanSource derives the caller's subscription plan from a bearer token,
// so authenticated requests cannot understate their plan.
type PlanSource interface {
	ResolvePlan(ctx context.Context, token string) (model.Plan, error)
}

type Handler struct {
	team      *service.TeamService
	workflows *service.WorkflowService
	audit     *service.AuditService
	analytics *service.AnalyticsService

	healthChecker HealthChecker
	limiter       RateLimiter
	plans         PlanSource

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithRateLimiter(rl RateLimiter) *Handler {
	h.limiter = rl
	return h
}

func (h *Handler) WithPlanSource(p PlanSource) *Handler {
	h.plans = p
	return h
}

func (h *Handler) WithTeamService(team *service.TeamService) *Handler {
	h.team = team
	return h
}

func (h *Handler) WithWorkflowService(workflows *service.WorkflowService) *Handler {
	h.workflows = workflows
	return h
}

func (h *Handler) WithAuditService(audit *service.AuditService) *Handler {
	h.audit = audit
	return h
}

func (h *Handler) WithAnalyticsService(analytics *service.AnalyticsService) *Handler {
	h.analytics = analytics
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", h.healthChecker.HealthCheck())

	e.GET("/team", h.ListTeam)
	e.GET("/workflows", h.ListWorkflows)
	e.GET("/audit-logs", h.ListAuditLogs)
	e.GET("/analytics/overview", h.AnalyticsOverview)

	teamWrites := e.Group("", RateLimitMiddleware(h.limiter, "team:write", teamWriteLimit, time.Minute))
	teamWrites.POST("/team/add", h.AddTeamMember)
	teamWrites.PATCH("/team/:id/role", h.UpdateMemberRole)
	teamWrites.DELETE("/team/:id", h.RemoveMember)

	workflowWrites := e.Group("", RateLimitMiddleware(h.limiter, "workflow:write", workflowWriteLimit, time.Minute))
	workflowWrites.POST("/workflows", h.CreateWorkflow)
	workflowWrites.PATCH("/workflows/:id/steps/:index", h.UpdateStep)
}

func (h *Handler) ListTeam(e echo.Context) error {
	members, err := h.team.ListMembers(e.Request().Context())
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, members)
}

func (h *Handler) AddTeamMember(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Email string     `json:"email" validate:"required"`
		Role  model.Role `json:"role" validate:"required,oneof=admin member"`
		Plan  model.Plan `json:"plan" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	// Authenticated callers get their plan from the profile store; the
	// declared plan is only trusted for anonymous demo traffic.
	if token := bearerToken(e.Request()); token != "" && h.plans != nil {
		plan, pErr := h.plans.ResolvePlan(e.Request().Context(), token)
		if pErr != nil {
			l.Warn("plan resolution failed, using declared plan", zap.Error(pErr))
		} else {
			req.Plan = plan
		}
	}

	l.Info("adding team member", zap.String("email", req.Email), zap.String("role", string(req.Role)))

	member, err := h.team.AddMember(e.Request().Context(), req.Email, req.Role, req.Plan)
	if err != nil {
		l.Error("failed to add team member", zap.String("email", req.Email), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, member)
}

func (h *Handler) UpdateMemberRole(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	memberID, err := strconv.ParseInt(e.Param("id"), 10, 64)
	if err != nil {
		return h.transportError(e, service.NewError(service.ErrorCodeInvalidBody, "invalid member id"))
	}

	var req struct {
		Role model.Role `json:"role" validate:"required,oneof=admin member"`
	}

	if sErr := h.decodeRequest(e, &req); sErr != nil {
		l.Error("invalid request", zap.Any("error", sErr))
		return h.transportError(e, sErr)
	}

	actorRole := model.Role(e.QueryParam("actor_role"))

	l.Info("updating member role",
		zap.Int64("member_id", memberID),
		zap.String("role", string(req.Role)),
		zap.String("actor_role", string(actorRole)))

	member, sErr := h.team.UpdateMemberRole(e.Request().Context(), actorRole, memberID, req.Role)
	if sErr != nil {
		l.Error("failed to update member role", zap.Int64("member_id", memberID), zap.Any("error", sErr))
		return h.transportError(e, sErr)
	}

	return e.JSON(http.StatusOK, member)
}

func (h *Handler) RemoveMember(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	memberID, err := strconv.ParseInt(e.Param("id"), 10, 64)
	if err != nil {
		return h.transportError(e, service.NewError(service.ErrorCodeInvalidBody, "invalid member id"))
	}

	actorRole := model.Role(e.QueryParam("actor_role"))

	l.Info("removing team member",
		zap.Int64("member_id", memberID),
		zap.String("actor_role", string(actorRole)))

	if sErr := h.team.RemoveMember(e.Request().Context(), actorRole, memberID); sErr != nil {
		l.Error("failed to remove team member", zap.Int64("member_id", memberID), zap.Any("error", sErr))
		return h.transportError(e, sErr)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) ListWorkflows(e echo.Context) error {
	workflows, err := h.workflows.ListWorkflows(e.Request().Context())
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, workflows)
}

func (h *Handler) CreateWorkflow(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Title string       `json:"title" validate:"required"`
		Steps []model.Step `json:"steps"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	l.Info("creating workflow", zap.String("title", req.Title), zap.Int("steps", len(req.Steps)))

	workflow, err := h.workflows.CreateWorkflow(e.Request().Context(), req.Title, req.Steps)
	if err != nil {
		l.Error("failed to create workflow", zap.String("title", req.Title), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, workflow)
}

func (h *Handler) UpdateStep(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	workflowID, err := strconv.ParseInt(e.Param("id"), 10, 64)
	if err != nil {
		return h.transportError(e, service.NewError(service.ErrorCodeInvalidBody, "invalid workflow id"))
	}

	stepIndex, err := strconv.Atoi(e.Param("index"))
	if err != nil {
		return h.transportError(e, service.NewError(service.ErrorCodeInvalidBody, "invalid step index"))
	}

	patch := &model.StepPatch{}
	if sErr := h.decodeRequest(e, patch); sErr != nil {
		l.Error("invalid request", zap.Any("error", sErr))
		return h.transportError(e, sErr)
	}

	l.Info("updating workflow step",
		zap.Int64("workflow_id", workflowID),
		zap.Int("step_index", stepIndex))

	workflow, sErr := h.workflows.UpdateStep(e.Request().Context(), workflowID, stepIndex, patch)
	if sErr != nil {
		l.Error("failed to update workflow step",
			zap.Int64("workflow_id", workflowID),
			zap.Int("step_index", stepIndex),
			zap.Any("error", sErr))
		return h.transportError(e, sErr)
	}

	return e.JSON(http.StatusOK, workflow)
}

func (h *Handler) ListAuditLogs(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	actorRole := model.Role(e.QueryParam("actor_role"))

	limit := 0
	if raw := e.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return h.transportError(e, service.NewError(service.ErrorCodeInvalidBody, "invalid limit"))
		}
		limit = parsed
	}

	logs, err := h.audit.ListLogs(e.Request().Context(), actorRole, limit)
	if err != nil {
		l.Error("failed to list audit logs", zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, logs)
}

func (h *Handler) AnalyticsOverview(e echo.Context) error {
	overview, err := h.analytics.Overview(e.Request().Context())
	if err != nil {
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, overview)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	if auth := r.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, prefix) {
		return auth[len(prefix):]
	}
	return ""
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, "invalid request body")
	}

	if err := e.Validate(req); err != nil {
		return service.NewError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := struct {
		Error  *service.Error `json:"error"`
		Detail string         `json:"detail"`
	}{Error: err, Detail: err.Message}

	switch err.Code {
	case service.ErrorCodeNotFound:
		return e.JSON(http.StatusNotFound, response)
	case service.ErrorCodePlanLimit, service.ErrorCodeNotAuthorized:
		return e.JSON(http.StatusForbidden, response)
	case service.ErrorCodeInvalidBody, service.ErrorCodeMemberExists:
		return e.JSON(http.StatusBadRequest, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}
