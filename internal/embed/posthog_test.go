package embed

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gamelearn/analytics/internal/models"
)

func posthogTestSigner() *PostHogSigner {
	return NewPostHogSigner(PostHogConfig{
		Host:         "https://us.posthog.com",
		ProjectID:    "123",
		SharedSecret: "shh",
	})
}

func TestPostHogSignInsight(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	resp, err := posthogTestSigner().Sign(&models.EmbedRequest{
		InsightID: "ins-9",
		Filters:   map[string]any{"date_from": "2024-01-01"},
	}, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	parsed, err := url.Parse(resp.URL)
	if err != nil {
		t.Fatalf("invalid URL %q: %v", resp.URL, err)
	}
	if !strings.HasPrefix(parsed.Path, "/embedded/123/insight/ins-9") {
		t.Errorf("path = %q, want project/kind/resource", parsed.Path)
	}
	query := parsed.Query()
	if query.Get("token") == "" {
		t.Error("URL missing access token")
	}
	if query.Get("filters") == "" {
		t.Error("URL missing filters payload")
	}
	if query.Get("refresh") != "" {
		t.Error("refresh param present without Refresh set")
	}
}

func TestPostHogSignDeterministic(t *testing.T) {
	req := &models.EmbedRequest{
		DashboardID: "d-1",
		Filters:     map[string]any{"a": "1", "b": "2"},
	}
	now := time.Now().UTC()

	first, err := posthogTestSigner().Sign(req, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	second, err := posthogTestSigner().Sign(req, now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if first.URL != second.URL {
		t.Errorf("repeated mints differ:\n%s\n%s", first.URL, second.URL)
	}
}

func TestPostHogSignRefresh(t *testing.T) {
	resp, err := posthogTestSigner().Sign(&models.EmbedRequest{DashboardID: "d-1", Refresh: true}, time.Now())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !strings.Contains(resp.URL, "refresh=true") {
		t.Errorf("URL = %q, want refresh=true", resp.URL)
	}
}

func TestPostHogSignUnconfigured(t *testing.T) {
	signer := NewPostHogSigner(PostHogConfig{Host: "https://us.posthog.com"})
	_, err := signer.Sign(&models.EmbedRequest{InsightID: "i"}, time.Now())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestPostHogSignMissingResource(t *testing.T) {
	if _, err := posthogTestSigner().Sign(&models.EmbedRequest{}, time.Now()); err == nil {
		t.Fatal("expected error for request without insightId or dashboardId")
	}
}
