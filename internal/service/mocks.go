package service

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/yskhub/TaskVault/internal/repository"
)

type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) WithinTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) List(ctx context.Context) ([]*repository.TeamMember, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.TeamMember), args.Error(1)
}

func (m *MockTeamRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTeamRepository) Create(ctx context.Context, member *repository.TeamMember) (*repository.TeamMember, error) {
	args := m.Called(ctx, member)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TeamMember), args.Error(1)
}

func (m *MockTeamRepository) UpdateRole(ctx context.Context, memberID int64, role string) (*repository.TeamMember, error) {
	args := m.Called(ctx, memberID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.TeamMember), args.Error(1)
}

func (m *MockTeamRepository) Delete(ctx context.Context, memberID int64) error {
	args := m.Called(ctx, memberID)
	return args.Error(0)
}

type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) List(ctx context.Context) ([]*repository.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Get(ctx context.Context, workflowID int64) (*repository.Workflow, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Create(ctx context.Context, workflow *repository.Workflow) (*repository.Workflow, error) {
	args := m.Called(ctx, workflow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListSteps(ctx context.Context, workflowID int64) ([]*repository.Step, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Step), args.Error(1)
}

func (m *MockWorkflowRepository) ListAllSteps(ctx context.Context) ([]*repository.Step, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Step), args.Error(1)
}

func (m *MockWorkflowRepository) InsertSteps(ctx context.Context, steps []*repository.Step) error {
	args := m.Called(ctx, steps)
	return args.Error(0)
}

func (m *MockWorkflowRepository) PatchStep(ctx context.Context, patch *repository.StepPatch) error {
	args := m.Called(ctx, patch)
	return args.Error(0)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, entry *repository.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, limit int) ([]*repository.AuditLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.AuditLog), args.Error(1)
}

type MockUsageRecorder struct {
	mock.Mock
}

func (m *MockUsageRecorder) RecordEvent(ctx context.Context, event string, metadata map[string]any) {
	m.Called(ctx, event, metadata)
}
