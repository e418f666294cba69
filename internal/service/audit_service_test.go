package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/yskhub/TaskVault/internal/model"
	"github.com/yskhub/TaskVault/internal/repository"
)

func TestAuditService_ListLogs(t *testing.T) {
	tests := []struct {
		name          string
		actorRole     model.Role
		limit         int
		expectedLimit int
		setupMocks    func(*MockAuditRepository, int)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:          "success with default limit",
			actorRole:     model.RoleAdmin,
			limit:         0,
			expectedLimit: 50,
			setupMocks: func(ar *MockAuditRepository, limit int) {
				ar.On("List", mock.Anything, limit).Return([]*repository.AuditLog{
					{ID: "a1", Action: "team.member_added"},
				}, nil)
			},
		},
		{
			name:          "limit is clamped",
			actorRole:     model.RoleAdmin,
			limit:         5000,
			expectedLimit: 100,
			setupMocks: func(ar *MockAuditRepository, limit int) {
				ar.On("List", mock.Anything, limit).Return([]*repository.AuditLog{}, nil)
			},
		},
		{
			name:          "non-admin is rejected without repository calls",
			actorRole:     model.RoleMember,
			limit:         50,
			setupMocks:    func(ar *MockAuditRepository, limit int) {},
			expectedError: true,
			errorCode:     ErrorCodeNotAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockAuditRepo := new(MockAuditRepository)
			tt.setupMocks(mockAuditRepo, tt.expectedLimit)

			svc := NewAuditService().WithAuditRepo(mockAuditRepo)

			got, err := svc.ListLogs(context.Background(), tt.actorRole, tt.limit)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Nil(t, got)
			} else {
				assert.Nil(t, err)
				assert.NotNil(t, got)
			}

			mockAuditRepo.AssertExpectations(t)
		})
	}
}
