// Package filters holds the global analytics filter state shared by every
// embed on a dashboard page, plus the translation of that state into
// provider-specific filter vocabularies.
package filters

import (
	"time"
)

// DateRange bounds report and embed queries. Preset, when set, records the
// quick-pick the range came from ("7d", "30d", "90d", "custom"); it is
// informational and never overrides Start/End.
type DateRange struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Preset string    `json:"preset,omitempty"`
}

// Comparison configures baseline-vs-cohort comparison mode.
type Comparison struct {
	Enabled             bool     `json:"enabled"`
	BaselineCourseID    string   `json:"baselineCourseId,omitempty"`
	ComparisonCourseIDs []string `json:"comparisonCourseIds,omitempty"`
}

// Filters is the canonical filter state. CourseIDs is an ordered set; order
// is preserved through to provider payloads so equal states shape
// identically.
type Filters struct {
	CourseIDs       []string       `json:"courseIds,omitempty"`
	DateRange       DateRange      `json:"dateRange"`
	IncludeArchived bool           `json:"includeArchived"`
	Comparison      Comparison     `json:"comparison"`
	Custom          map[string]any `json:"customFilters,omitempty"`
}

// Patch is a partial update to Filters. Nil fields are left unchanged;
// non-nil fields replace the current value wholesale (shallow merge).
type Patch struct {
	CourseIDs       *[]string
	DateRange       *DateRange
	IncludeArchived *bool
	Comparison      *Comparison
	Custom          *map[string]any
}

// Default returns the filter state a dashboard mounts with: last 30 days,
// all courses, archived hidden, comparison off.
func Default(now time.Time) Filters {
	end := now.UTC().Truncate(24 * time.Hour)
	return Filters{
		DateRange: DateRange{
			Start:  end.AddDate(0, 0, -30),
			End:    end,
			Preset: "30d",
		},
	}
}

// clone deep-copies f so snapshots can be handed out without aliasing the
// store's state.
func (f Filters) clone() Filters {
	out := f
	if f.CourseIDs != nil {
		out.CourseIDs = append([]string(nil), f.CourseIDs...)
	}
	if f.Comparison.ComparisonCourseIDs != nil {
		out.Comparison.ComparisonCourseIDs = append([]string(nil), f.Comparison.ComparisonCourseIDs...)
	}
	if f.Custom != nil {
		out.Custom = make(map[string]any, len(f.Custom))
		for k, v := range f.Custom {
			out.Custom[k] = v
		}
	}
	return out
}

// normalize enforces the comparison invariant: the baseline course never
// appears in the comparison set. The baseline wins; the duplicate is
// removed from the comparison list.
func (f *Filters) normalize() {
	baseline := f.Comparison.BaselineCourseID
	if baseline == "" || len(f.Comparison.ComparisonCourseIDs) == 0 {
		return
	}
	kept := f.Comparison.ComparisonCourseIDs[:0]
	for _, id := range f.Comparison.ComparisonCourseIDs {
		if id != baseline {
			kept = append(kept, id)
		}
	}
	f.Comparison.ComparisonCourseIDs = kept
}
