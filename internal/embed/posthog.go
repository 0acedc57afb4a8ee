package embed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gamelearn/analytics/internal/models"
)

// PostHogConfig holds PostHog shared-embed settings.
type PostHogConfig struct {
	Host         string // e.g. https://us.posthog.com
	ProjectID    string
	SharedSecret string // secret used to sign embed access tokens
}

// PostHogSigner mints shared insight/dashboard URLs carrying an HMAC access
// token over (project, resource, filters, expiry). The token is a bare MAC,
// not a JWT; the filter payload travels as a query parameter.
type PostHogSigner struct {
	config PostHogConfig
}

func NewPostHogSigner(config PostHogConfig) *PostHogSigner {
	return &PostHogSigner{config: config}
}

func (s *PostHogSigner) Provider() Provider { return PostHog }

// Configured reports whether signing credentials are present.
func (s *PostHogSigner) Configured() bool {
	return s.config.Host != "" && s.config.ProjectID != "" && s.config.SharedSecret != ""
}

// Sign mints an embedded insight or dashboard URL.
func (s *PostHogSigner) Sign(req *models.EmbedRequest, now time.Time) (*models.EmbedResponse, error) {
	if !s.Configured() {
		return nil, fmt.Errorf("posthog integration %w", ErrNotConfigured)
	}

	kind := "insight"
	resourceID := req.InsightID
	if resourceID == "" {
		kind = "dashboard"
		resourceID = req.DashboardID
	}
	if resourceID == "" {
		return nil, fmt.Errorf("embed request missing insightId or dashboardId")
	}

	filtersJSON, err := canonicalJSON(req.Filters)
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(TTL)
	token := s.accessToken(kind, resourceID, filtersJSON, expiresAt)

	query := url.Values{}
	query.Set("filters", string(filtersJSON))
	query.Set("exp", strconv.FormatInt(expiresAt.Unix(), 10))
	query.Set("token", token)
	if req.Refresh {
		query.Set("refresh", "true")
	}

	embedURL := fmt.Sprintf("%s/embedded/%s/%s/%s?%s",
		s.config.Host, s.config.ProjectID, kind, resourceID, query.Encode())
	return &models.EmbedResponse{
		URL:       embedURL,
		IframeURL: embedURL,
		ExpiresAt: expiresAt,
	}, nil
}

// accessToken computes HMAC-SHA256 over the token's scope. Deterministic
// for identical (resource, filters, expiry) so repeated mints within a
// cache window produce identical URLs.
func (s *PostHogSigner) accessToken(kind, resourceID string, filtersJSON []byte, expiresAt time.Time) string {
	mac := hmac.New(sha256.New, []byte(s.config.SharedSecret))
	fmt.Fprintf(mac, "%s:%s:%s:%s:%d", s.config.ProjectID, kind, resourceID, filtersJSON, expiresAt.Unix())
	return hex.EncodeToString(mac.Sum(nil))
}
