package embedcache

import (
	"strings"
	"testing"
	"time"
)

func TestKeyStableAndDistinct(t *testing.T) {
	filters := map[string]any{"date_from": "2024-01-01", "course_ids": []string{"c1"}}

	a := Key("posthog", "dash-1", filters)
	b := Key("posthog", "dash-1", map[string]any{"course_ids": []string{"c1"}, "date_from": "2024-01-01"})
	if a != b {
		t.Errorf("same filters in different insertion order produced different keys:\n%s\n%s", a, b)
	}

	if Key("posthog", "dash-1", filters) == Key("metabase", "dash-1", filters) {
		t.Error("different providers produced the same key")
	}
	if Key("posthog", "dash-1", filters) == Key("posthog", "dash-2", filters) {
		t.Error("different resources produced the same key")
	}
	if a == Key("posthog", "dash-1", map[string]any{"date_from": "2024-02-01"}) {
		t.Error("different filters produced the same key")
	}

	if !strings.HasPrefix(a, "posthog:dash-1:") {
		t.Errorf("key %q missing provider/resource prefix", a)
	}
}

func TestKeyNilFilters(t *testing.T) {
	if Key("posthog", "d", nil) != Key("posthog", "d", map[string]any{}) {
		t.Error("nil and empty filters should hash identically")
	}
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := NewWithClock(func() time.Time { return now })

	key := Key("metabase", "q-7", nil)
	cache.Set(key, Entry{URL: "https://example.com/embed", ExpiresAt: now.Add(30 * time.Minute)})

	if _, ok := cache.Get(key); !ok {
		t.Fatal("fresh entry reported as miss")
	}

	// Exactly at expiry is a miss
	now = now.Add(30 * time.Minute)
	if _, ok := cache.Get(key); ok {
		t.Error("entry at expiry instant reported as hit")
	}
	if cache.Len() != 0 {
		t.Errorf("expired entry not evicted on read, len = %d", cache.Len())
	}
}

func TestCacheMiss(t *testing.T) {
	cache := New()
	if _, ok := cache.Get("no-such-key"); ok {
		t.Error("miss reported as hit")
	}
}

func TestCacheReplace(t *testing.T) {
	now := time.Now()
	cache := NewWithClock(func() time.Time { return now })

	cache.Set("k", Entry{URL: "old", ExpiresAt: now.Add(time.Minute)})
	cache.Set("k", Entry{URL: "new", ExpiresAt: now.Add(time.Hour)})

	entry, ok := cache.Get("k")
	if !ok || entry.URL != "new" {
		t.Errorf("got %+v, want replaced entry", entry)
	}
}
