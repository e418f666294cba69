package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yskhub/TaskVault/internal/model"
)

func TestPlanResolver_ResolvePlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.acct-1", r.URL.Query().Get("id"))
		_ = json.NewEncoder(w).Encode([]Profile{
			{ID: "acct-1", Email: "owner@acme.io", SubscriptionPlan: model.PlanPro},
		})
	}))
	defer srv.Close()

	verifier := NewTokenVerifier("secret")
	token, err := verifier.Sign("acct-1", "owner@acme.io", "admin", time.Hour)
	require.NoError(t, err)

	resolver := NewPlanResolver(verifier, NewClient(srv.URL, "service-key"))

	plan, err := resolver.ResolvePlan(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, plan)
}

func TestPlanResolver_BadToken(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	resolver := NewPlanResolver(NewTokenVerifier("secret"), NewClient(srv.URL, "service-key"))

	_, err := resolver.ResolvePlan(context.Background(), "garbage")
	require.Error(t, err)
	assert.Zero(t, hits)
}

func TestPlanResolver_InvalidStoredPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Profile{
			{ID: "acct-1", SubscriptionPlan: model.Plan("enterprise")},
		})
	}))
	defer srv.Close()

	verifier := NewTokenVerifier("secret")
	token, err := verifier.Sign("acct-1", "owner@acme.io", "admin", time.Hour)
	require.NoError(t, err)

	resolver := NewPlanResolver(verifier, NewClient(srv.URL, "service-key"))

	_, err = resolver.ResolvePlan(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidPlan)
}
