package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yskhub/TaskVault/internal/model"
)

func TestClient_GetProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "eq.acct-1", r.URL.Query().Get("id"))

		_ = json.NewEncoder(w).Encode([]Profile{
			{ID: "acct-1", Email: "owner@acme.io", SubscriptionPlan: model.PlanPro, OnboardingSeen: true},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "service-key")

	profile, err := c.GetProfile(context.Background(), "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "owner@acme.io", profile.Email)
	assert.Equal(t, model.PlanPro, profile.SubscriptionPlan)
}

func TestClient_GetProfile_Missing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "service-key")

	_, err := c.GetProfile(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestClient_UpsertProfile(t *testing.T) {
	var got Profile
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		assert.Equal(t, "resolution=merge-duplicates,return=minimal", r.Header.Get("Prefer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "service-key")

	err := c.UpsertProfile(context.Background(), &Profile{
		ID: "acct-1", Email: "owner@acme.io", SubscriptionPlan: model.PlanFree, OnboardingSeen: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "acct-1", got.ID)
	assert.Equal(t, model.PlanFree, got.SubscriptionPlan)
}

func TestClient_InsertUsageEvent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/usage_events", r.URL.Path)
		assert.Equal(t, "return=minimal", r.Header.Get("Prefer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "service-key")

	err := c.InsertUsageEvent(context.Background(), "team.member_added", map[string]any{"plan": "free"})
	require.NoError(t, err)
	assert.Equal(t, "team.member_added", got["event_type"])
}

func TestClient_CheckHealth_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "service-key")
	assert.Error(t, c.CheckHealth(context.Background()))
}
