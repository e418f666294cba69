// Package policy holds the pure plan/role gating rules shared by the API
// and the client SDK. Limits here are advisory on the client side; the
// server enforces them authoritatively.
package policy

import (
	"github.com/pkg/errors"
	"github.com/yskhub/TaskVault/internal/model"
)

const (
	FreeMemberLimit = 2
	ProMemberLimit  = 10
)

var ErrUnknownPlan = errors.New("unknown plan")

// MemberLimit returns the roster cap for a plan. An unrecognized plan is a
// programmer error and fails fast instead of defaulting.
func MemberLimit(plan model.Plan) (int, error) {
	switch plan {
	case model.PlanFree:
		return FreeMemberLimit, nil
	case model.PlanPro:
		return ProMemberLimit, nil
	}
	return 0, errors.Wrap(ErrUnknownPlan, string(plan))
}

func CanManageTeam(role model.Role) bool {
	return role == model.RoleAdmin
}

func CanEditWorkflow(role model.Role) bool {
	return role == model.RoleAdmin
}

// RemainingSlots may be negative when server state already exceeds the
// nominal limit.
func RemainingSlots(plan model.Plan, currentCount int) (int, error) {
	limit, err := MemberLimit(plan)
	if err != nil {
		return 0, err
	}
	return limit - currentCount, nil
}
