package identity

import (
	"context"

	"github.com/pkg/errors"
	"github.com/yskhub/TaskVault/internal/model"
)

// PlanResolver derives an account's subscription plan from its access
// token: verify the token, then read the plan off the profile record the
// token's subject points at.
type PlanResolver struct {
	verifier *TokenVerifier
	client   *Client
}

func NewPlanResolver(verifier *TokenVerifier, client *Client) *PlanResolver {
	return &PlanResolver{verifier: verifier, client: client}
}

func (r *PlanResolver) ResolvePlan(ctx context.Context, token string) (model.Plan, error) {
	claims, err := r.verifier.Verify(token)
	if err != nil {
		return "", errors.Wrap(err, "verify access token")
	}

	profile, err := r.client.GetProfile(ctx, claims.Subject)
	if err != nil {
		return "", errors.Wrap(err, "resolve profile")
	}

	if !profile.SubscriptionPlan.Valid() {
		return "", errors.Wrapf(ErrInvalidPlan, "%q", profile.SubscriptionPlan)
	}

	return profile.SubscriptionPlan, nil
}
