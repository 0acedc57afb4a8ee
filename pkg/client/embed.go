package client

import (
	"context"
	"fmt"
	"time"

	"github.com/gamelearn/analytics/internal/models"
	"github.com/gamelearn/analytics/pkg/embedcache"
	"github.com/gamelearn/analytics/pkg/filters"
)

// Embed is a minted, possibly cached, embed URL.
type Embed struct {
	URL       string
	IframeURL string
	ExpiresAt time.Time
	Cached    bool
}

// EmbedRequest identifies a dashboard resource and the filter state to
// embed it under.
type EmbedRequest struct {
	Provider filters.Provider

	// Exactly one resource ID per provider kind.
	InsightID   string // posthog
	DashboardID string // posthog or metabase
	QuestionID  string // metabase

	Filters    map[string]any
	Parameters map[string]any

	// Refresh bypasses the cache and forces a new mint.
	Refresh bool
}

func (r *EmbedRequest) resourceID() string {
	switch {
	case r.InsightID != "":
		return r.InsightID
	case r.QuestionID != "":
		return r.QuestionID
	default:
		return r.DashboardID
	}
}

func (r *EmbedRequest) mintPath() (string, error) {
	switch r.Provider {
	case filters.PostHog:
		return "/api/analytics/posthog/embed", nil
	case filters.Metabase:
		return "/api/analytics/metabase/embed", nil
	}
	return "", fmt.Errorf("unknown embed provider: %q", r.Provider)
}

// MintEmbed returns a signed embed URL, serving from the local cache while
// a previous mint for the same (provider, resource, filters) is still
// valid. The cache is check-then-fetch, not single-flight: simultaneous
// mints for one key may both hit the backend, which is harmless since the
// result is idempotent.
func (c *Client) MintEmbed(ctx context.Context, req EmbedRequest) (*Embed, error) {
	path, err := req.mintPath()
	if err != nil {
		return nil, err
	}
	if req.resourceID() == "" {
		return nil, fmt.Errorf("embed request missing resource ID")
	}

	key := embedcache.Key(string(req.Provider), req.resourceID(), req.Filters)
	if !req.Refresh {
		if entry, ok := c.cache.Get(key); ok {
			return &Embed{
				URL:       entry.URL,
				IframeURL: entry.IframeURL,
				ExpiresAt: entry.ExpiresAt,
				Cached:    true,
			}, nil
		}
	}

	body := models.EmbedRequest{
		InsightID:   req.InsightID,
		DashboardID: req.DashboardID,
		QuestionID:  req.QuestionID,
		Filters:     req.Filters,
		Parameters:  req.Parameters,
		Refresh:     req.Refresh,
	}
	var resp models.EmbedResponse
	if err := c.doJSON(ctx, "POST", path, &body, &resp); err != nil {
		return nil, err
	}

	c.cache.Set(key, embedcache.Entry{
		URL:       resp.URL,
		IframeURL: resp.IframeURL,
		ExpiresAt: resp.ExpiresAt,
	})
	return &Embed{
		URL:       resp.URL,
		IframeURL: resp.IframeURL,
		ExpiresAt: resp.ExpiresAt,
	}, nil
}
