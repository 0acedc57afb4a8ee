package filters

// Provider identifies an analytics dashboard host for filter shaping.
type Provider string

const (
	PostHog  Provider = "posthog"
	Metabase Provider = "metabase"
)

type shapeFunc func(f Filters, extra map[string]any) map[string]any

// shapers dispatches filter shaping per provider. Adding a provider means
// adding an entry here, not branching at call sites.
var shapers = map[Provider]shapeFunc{
	Metabase: shapeMetabase,
	PostHog:  shapePostHog,
}

// PlatformFilters translates canonical filter state into a provider's
// filter vocabulary. The output feeds embed cache keys, so it must be
// deterministic: equal inputs yield maps that marshal to identical JSON
// (map keys marshal sorted; slice order follows CourseIDs).
func PlatformFilters(p Provider, f Filters, extra map[string]any) map[string]any {
	shape, ok := shapers[p]
	if !ok {
		return nil
	}
	return shape(f, extra)
}

// shapeMetabase emits Metabase locked-parameter names. Dates are day
// precision; the range is inclusive on both ends.
func shapeMetabase(f Filters, extra map[string]any) map[string]any {
	out := map[string]any{
		"date_from":        f.DateRange.Start.UTC().Format("2006-01-02"),
		"date_to":          f.DateRange.End.UTC().Format("2006-01-02"),
		"include_archived": f.IncludeArchived,
	}
	if len(f.CourseIDs) > 0 {
		out["course_ids"] = append([]string(nil), f.CourseIDs...)
	}
	for k, v := range f.Custom {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// shapePostHog emits PostHog's native insight filter shape: a date range
// plus a properties list of event filters.
func shapePostHog(f Filters, extra map[string]any) map[string]any {
	out := map[string]any{
		"date_from": f.DateRange.Start.UTC().Format("2006-01-02"),
		"date_to":   f.DateRange.End.UTC().Format("2006-01-02"),
	}

	var properties []map[string]any
	if len(f.CourseIDs) > 0 {
		properties = append(properties, map[string]any{
			"key":      "course_id",
			"operator": "exact",
			"value":    append([]string(nil), f.CourseIDs...),
		})
	}
	if !f.IncludeArchived {
		properties = append(properties, map[string]any{
			"key":      "course_archived",
			"operator": "exact",
			"value":    false,
		})
	}
	if len(properties) > 0 {
		out["properties"] = properties
	}

	for k, v := range f.Custom {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
