package filters

import (
	"encoding/json"
	"testing"
	"time"
)

func testFilters() Filters {
	return Filters{
		CourseIDs: []string{"c1", "c2"},
		DateRange: DateRange{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		IncludeArchived: false,
	}
}

func TestPlatformFiltersMetabase(t *testing.T) {
	out := PlatformFilters(Metabase, testFilters(), nil)

	if got := out["date_from"]; got != "2024-01-01" {
		t.Errorf("date_from = %v, want 2024-01-01", got)
	}
	if got := out["date_to"]; got != "2024-01-31" {
		t.Errorf("date_to = %v, want 2024-01-31", got)
	}
	if got := out["include_archived"]; got != false {
		t.Errorf("include_archived = %v, want false", got)
	}
	courseIDs, ok := out["course_ids"].([]string)
	if !ok || len(courseIDs) != 2 || courseIDs[0] != "c1" || courseIDs[1] != "c2" {
		t.Errorf("course_ids = %v, want [c1 c2]", out["course_ids"])
	}
}

func TestPlatformFiltersMetabaseExtra(t *testing.T) {
	out := PlatformFilters(Metabase, testFilters(), map[string]any{"instructor_id": "inst-1"})
	if got := out["instructor_id"]; got != "inst-1" {
		t.Errorf("instructor_id = %v, want inst-1", got)
	}
}

func TestPlatformFiltersDeterministic(t *testing.T) {
	for _, provider := range []Provider{Metabase, PostHog} {
		a, err := json.Marshal(PlatformFilters(provider, testFilters(), map[string]any{"instructor_id": "i1"}))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		b, err := json.Marshal(PlatformFilters(provider, testFilters(), map[string]any{"instructor_id": "i1"}))
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(a) != string(b) {
			t.Errorf("%s output not deterministic:\n%s\n%s", provider, a, b)
		}
	}
}

func TestPlatformFiltersPostHog(t *testing.T) {
	out := PlatformFilters(PostHog, testFilters(), nil)

	if got := out["date_from"]; got != "2024-01-01" {
		t.Errorf("date_from = %v, want 2024-01-01", got)
	}
	properties, ok := out["properties"].([]map[string]any)
	if !ok {
		t.Fatalf("properties missing or wrong type: %T", out["properties"])
	}
	// course filter plus archived exclusion
	if len(properties) != 2 {
		t.Fatalf("got %d properties, want 2", len(properties))
	}
	if properties[0]["key"] != "course_id" {
		t.Errorf("first property key = %v, want course_id", properties[0]["key"])
	}
	if properties[1]["key"] != "course_archived" || properties[1]["value"] != false {
		t.Errorf("second property = %v, want course_archived=false", properties[1])
	}
}

func TestPlatformFiltersPostHogIncludeArchived(t *testing.T) {
	f := testFilters()
	f.IncludeArchived = true
	f.CourseIDs = nil

	out := PlatformFilters(PostHog, f, nil)
	if _, ok := out["properties"]; ok {
		t.Errorf("expected no properties when archived included and no course filter, got %v", out["properties"])
	}
}

func TestPlatformFiltersUnknownProvider(t *testing.T) {
	if out := PlatformFilters(Provider("tableau"), testFilters(), nil); out != nil {
		t.Errorf("expected nil for unknown provider, got %v", out)
	}
}
