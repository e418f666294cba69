package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yskhub/TaskVault/internal/model"
)

func seedWorkflows(c *Client, workflows ...model.Workflow) {
	c.mu.Lock()
	c.workflows = workflows
	c.mu.Unlock()
}

func TestCreateWorkflow_FiltersRowsAndDefaultsStatus(t *testing.T) {
	var submitted createWorkflowRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/workflows":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(model.Workflow{ID: 7, Title: submitted.Title, Steps: submitted.Steps})
		case r.Method == http.MethodGet && r.URL.Path == "/workflows":
			json.NewEncoder(w).Encode([]model.Workflow{{ID: 7, Title: submitted.Title, Steps: submitted.Steps}})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	created, err := c.CreateWorkflow(context.Background(), "Release", []model.Step{
		{Title: "A", AssignedTo: "x"},
		{Title: "", AssignedTo: "x"},
		{Title: "B", AssignedTo: "  "},
		{Title: "C", AssignedTo: "y", Status: model.StepStatusInProgress},
	})

	assert.Nil(t, err)
	require.NotNil(t, created)
	require.Len(t, submitted.Steps, 2)
	assert.Equal(t, "A", submitted.Steps[0].Title)
	assert.Equal(t, model.StepStatusPending, submitted.Steps[0].Status)
	assert.Equal(t, "C", submitted.Steps[1].Title)
	assert.Equal(t, model.StepStatusInProgress, submitted.Steps[1].Status)

	// Round trip: the reloaded cache preserves step order and the
	// defaulted status.
	cached := c.Workflows()
	require.Len(t, cached, 1)
	require.Len(t, cached[0].Steps, 2)
	assert.Equal(t, "A", cached[0].Steps[0].Title)
	assert.Equal(t, model.StepStatusPending, cached[0].Steps[0].Status)
}

func TestCreateWorkflow_EmptyTitleMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.CreateWorkflow(context.Background(), "  ", nil)

	require.Error(t, err)
	assert.Equal(t, RequestFailed, KindOf(err))
	assert.Equal(t, int32(0), hits.Load())
}

func TestLoadWorkflows_FailureKeepsPriorCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	prior := model.Workflow{ID: 1, Title: "Release", Steps: []model.Step{
		{Title: "S1", AssignedTo: "a", Status: model.StepStatusPending},
	}}
	c := NewClient(srv.URL)
	seedWorkflows(c, prior)

	_, err := c.LoadWorkflows(context.Background())

	require.Error(t, err)
	assert.Equal(t, LoadFailed, KindOf(err))
	assert.Equal(t, []model.Workflow{prior}, c.Workflows())
}

func TestSetStepStatus_SuccessAdoptsServerRepresentation(t *testing.T) {
	// The server response carries a concurrent title change too; the
	// whole workflow must be replaced, not just the patched field.
	serverCopy := model.Workflow{ID: 1, Title: "Release v2", Steps: []model.Step{
		{Title: "S1", AssignedTo: "a", Status: model.StepStatusCompleted},
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/workflows/1/steps/0", r.URL.Path)
		var req stepStatusRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, model.StepStatusCompleted, req.Status)
		json.NewEncoder(w).Encode(serverCopy)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	seedWorkflows(c, model.Workflow{ID: 1, Title: "Release", Steps: []model.Step{
		{Title: "S1", AssignedTo: "a", Status: model.StepStatusPending},
	}})

	updated, err := c.SetStepStatus(context.Background(), 1, 0, model.StepStatusCompleted)

	assert.Nil(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, serverCopy, *updated)
	assert.Equal(t, []model.Workflow{serverCopy}, c.Workflows())
}

func TestSetStepStatus_FailureDiscardsOptimisticWrite(t *testing.T) {
	canonical := []model.Workflow{{ID: 1, Title: "Release", Steps: []model.Step{
		{Title: "S1", AssignedTo: "a", Status: model.StepStatusPending},
	}}}
	var reloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch:
			w.WriteHeader(http.StatusInternalServerError)
		case r.Method == http.MethodGet && r.URL.Path == "/workflows":
			reloads.Add(1)
			json.NewEncoder(w).Encode(canonical)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	seedWorkflows(c, copyWorkflow(canonical[0]))

	_, err := c.SetStepStatus(context.Background(), 1, 0, model.StepStatusCompleted)

	require.Error(t, err)
	assert.Equal(t, RequestFailed, KindOf(err))
	assert.Equal(t, int32(1), reloads.Load())
	assert.Equal(t, canonical, c.Workflows())
}

func TestSetStepStatus_RateLimitedIsDistinct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode([]model.Workflow{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	seedWorkflows(c, model.Workflow{ID: 1, Title: "Release", Steps: []model.Step{
		{Title: "S1", AssignedTo: "a", Status: model.StepStatusPending},
	}})

	_, err := c.SetStepStatus(context.Background(), 1, 0, model.StepStatusCompleted)

	require.Error(t, err)
	assert.Equal(t, RateLimited, KindOf(err))
}

func TestSetStepStatus_UnknownTargetMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	seedWorkflows(c, model.Workflow{ID: 1, Title: "Release", Steps: []model.Step{
		{Title: "S1", AssignedTo: "a", Status: model.StepStatusPending},
	}})

	_, err := c.SetStepStatus(context.Background(), 2, 0, model.StepStatusCompleted)
	require.Error(t, err)
	_, err = c.SetStepStatus(context.Background(), 1, 5, model.StepStatusCompleted)
	require.Error(t, err)
	_, err = c.SetStepStatus(context.Background(), 1, 0, model.StepStatus("done"))
	require.Error(t, err)

	assert.Equal(t, int32(0), hits.Load())
}

func TestSetStepStatus_SupersededFailureKeepsNewerWrite(t *testing.T) {
	firstReceived := make(chan struct{})
	releaseFirst := make(chan struct{})
	var reloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch:
			var req stepStatusRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Status == model.StepStatusInProgress {
				close(firstReceived)
				<-releaseFirst
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(model.Workflow{ID: 1, Title: "Release", Steps: []model.Step{
				{Title: "S1", AssignedTo: "a", Status: model.StepStatusCompleted},
			}})
		case r.Method == http.MethodGet && r.URL.Path == "/workflows":
			reloads.Add(1)
			json.NewEncoder(w).Encode([]model.Workflow{})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	seedWorkflows(c, model.Workflow{ID: 1, Title: "Release", Steps: []model.Step{
		{Title: "S1", AssignedTo: "a", Status: model.StepStatusPending},
	}})

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.SetStepStatus(context.Background(), 1, 0, model.StepStatusInProgress)
		firstDone <- err
	}()

	select {
	case <-firstReceived:
	case <-time.After(2 * time.Second):
		t.Fatal("first mutation never reached the server")
	}

	_, err := c.SetStepStatus(context.Background(), 1, 0, model.StepStatusCompleted)
	assert.Nil(t, err)

	close(releaseFirst)
	select {
	case err = <-firstDone:
		require.Error(t, err)
		assert.Equal(t, RequestFailed, KindOf(err))
	case <-time.After(2 * time.Second):
		t.Fatal("first mutation never resolved")
	}

	// The stale failure must not roll back the newer completed write.
	assert.Equal(t, int32(0), reloads.Load())
	cached := c.Workflows()
	require.Len(t, cached, 1)
	assert.Equal(t, model.StepStatusCompleted, cached[0].Steps[0].Status)
}
