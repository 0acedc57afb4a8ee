// Package embed mints signed iframe URLs for hosted analytics dashboards.
// Each provider has its own signing scheme behind a common Signer interface;
// handlers dispatch on the provider constant rather than branching ad hoc.
package embed

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gamelearn/analytics/internal/models"
)

// Provider identifies an analytics dashboard host.
type Provider string

const (
	PostHog  Provider = "posthog"
	Metabase Provider = "metabase"
)

// ErrNotConfigured indicates the provider's signing credentials are absent.
// The API maps this to a 503 whose message the client recognizes by the
// "not configured" substring.
var ErrNotConfigured = errors.New("not configured")

// TTL is how long a minted embed URL stays valid.
const TTL = 30 * time.Minute

// Signer mints a signed embed for a resource and filter set.
type Signer interface {
	Provider() Provider
	Sign(req *models.EmbedRequest, now time.Time) (*models.EmbedResponse, error)
}

// canonicalJSON marshals a filter map deterministically. encoding/json
// sorts map keys, so equal maps yield identical bytes; this keeps signed
// tokens stable for identical filter state.
func canonicalJSON(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filters: %w", err)
	}
	return data, nil
}
