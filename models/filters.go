package models

import (
	"sort"
	"time"
)

// ContentType selects which media types the discover feed samples from.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
	ContentTypeBoth   ContentType = "both"
)

// Valid reports whether the content type is one of the known values.
func (c ContentType) Valid() bool {
	return c == ContentTypeMovie || c == ContentTypeSeries || c == ContentTypeBoth
}

// MediaTypes expands the content type into the concrete media types it covers,
// movies first. The order is load-bearing: same-round results are merged in
// this order before shuffling.
func (c ContentType) MediaTypes() []MediaType {
	switch c {
	case ContentTypeMovie:
		return []MediaType{MediaTypeMovie}
	case ContentTypeSeries:
		return []MediaType{MediaTypeSeries}
	default:
		return []MediaType{MediaTypeMovie, MediaTypeSeries}
	}
}

// FilterCriteria captures the user's discover constraints. A given id or
// country code never appears in both the include and exclude set of the same
// facet; Normalize enforces that regardless of how the criteria were built.
type FilterCriteria struct {
	Type             ContentType `json:"type"`
	IncludeGenres    []int64     `json:"includeGenres,omitempty"`
	ExcludeGenres    []int64     `json:"excludeGenres,omitempty"`
	IncludeProviders []int64     `json:"includeProviders,omitempty"`
	ExcludeProviders []int64     `json:"excludeProviders,omitempty"`
	IncludeCountries []string    `json:"includeCountries,omitempty"`
	ExcludeCountries []string    `json:"excludeCountries,omitempty"`
	YearMin          int         `json:"yearMin"`
	YearMax          int         `json:"yearMax"`
	RuntimeMin       int         `json:"runtimeMin"`
	RuntimeMax       int         `json:"runtimeMax"`
	MinRating        float64     `json:"minRating"`
}

// DefaultFilterCriteria returns the session-start criteria: both media types,
// no facet selections, wide year and runtime ranges.
func DefaultFilterCriteria() FilterCriteria {
	return FilterCriteria{
		Type:       ContentTypeBoth,
		YearMin:    1980,
		YearMax:    time.Now().Year(),
		RuntimeMin: 0,
		RuntimeMax: 240,
		MinRating:  0,
	}
}

// Normalize enforces the criteria invariants in place: unknown content type
// falls back to both, facet sets are deduplicated and kept disjoint (the
// include set wins), ranges are ordered and the rating clamped to [0,10].
func (f *FilterCriteria) Normalize() {
	if !f.Type.Valid() {
		f.Type = ContentTypeBoth
	}

	f.IncludeGenres = dedupeIDs(f.IncludeGenres)
	f.ExcludeGenres = subtractIDs(dedupeIDs(f.ExcludeGenres), f.IncludeGenres)
	f.IncludeProviders = dedupeIDs(f.IncludeProviders)
	f.ExcludeProviders = subtractIDs(dedupeIDs(f.ExcludeProviders), f.IncludeProviders)
	f.IncludeCountries = dedupeStrings(f.IncludeCountries)
	f.ExcludeCountries = subtractStrings(dedupeStrings(f.ExcludeCountries), f.IncludeCountries)

	if f.YearMin > f.YearMax {
		f.YearMin, f.YearMax = f.YearMax, f.YearMin
	}
	if f.RuntimeMin > f.RuntimeMax {
		f.RuntimeMin, f.RuntimeMax = f.RuntimeMax, f.RuntimeMin
	}
	if f.MinRating < 0 {
		f.MinRating = 0
	}
	if f.MinRating > 10 {
		f.MinRating = 10
	}
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func subtractIDs(ids, remove []int64) []int64 {
	if len(ids) == 0 || len(remove) == 0 {
		return ids
	}
	drop := make(map[int64]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	out := ids[:0]
	for _, id := range ids {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func subtractStrings(values, remove []string) []string {
	if len(values) == 0 || len(remove) == 0 {
		return values
	}
	drop := make(map[string]struct{}, len(remove))
	for _, v := range remove {
		drop[v] = struct{}{}
	}
	out := values[:0]
	for _, v := range values {
		if _, ok := drop[v]; !ok {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
