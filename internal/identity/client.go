// Package identity talks to the hosted auth/profile service. The backend
// treats it as a key-value profile store plus a session oracle; nothing
// here owns authentication flows.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yskhub/TaskVault/internal/model"
)

type Profile struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	SubscriptionPlan model.Plan `json:"subscription_plan"`
	OnboardingSeen   bool       `json:"onboarding_seen"`
}

type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

func NewClient(baseURL, serviceKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, prefer string, out any) error {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("identity %s %s -> %d: %s", method, url, resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CheckHealth pings the auth health endpoint, verifying both connectivity
// and credentials.
func (c *Client) CheckHealth(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, c.baseURL+"/auth/v1/health", nil, "", nil)
}

func (c *Client) GetProfile(ctx context.Context, accountID string) (*Profile, error) {
	url := fmt.Sprintf("%s/rest/v1/profiles?id=eq.%s&select=id,email,subscription_plan,onboarding_seen", c.baseURL, accountID)

	var profiles []Profile
	if err := c.doJSON(ctx, http.MethodGet, url, nil, "", &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, ErrProfileNotFound
	}

	return &profiles[0], nil
}

func (c *Client) UpsertProfile(ctx context.Context, profile *Profile) error {
	body, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/rest/v1/profiles",
		body, "resolution=merge-duplicates,return=minimal", nil)
}

// InsertUsageEvent is best-effort: failures are reported to the caller but
// callers are expected to drop them (see UsageRecorder).
func (c *Client) InsertUsageEvent(ctx context.Context, event string, metadata map[string]any) error {
	payload := map[string]any{"event_type": event}
	if metadata != nil {
		payload["metadata"] = metadata
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/rest/v1/usage_events",
		body, "return=minimal", nil)
}
