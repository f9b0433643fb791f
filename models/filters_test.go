package models

import (
	"reflect"
	"testing"
)

func TestNormalizeKeepsFacetSetsDisjoint(t *testing.T) {
	criteria := FilterCriteria{
		Type:             ContentTypeBoth,
		IncludeGenres:    []int64{35, 18, 35},
		ExcludeGenres:    []int64{18, 27, 27},
		IncludeProviders: []int64{8},
		ExcludeProviders: []int64{8, 9},
		IncludeCountries: []string{"US", "US"},
		ExcludeCountries: []string{"US", "KR"},
		YearMin:          1990,
		YearMax:          2020,
		RuntimeMin:       60,
		RuntimeMax:       180,
	}
	criteria.Normalize()

	if !reflect.DeepEqual(criteria.IncludeGenres, []int64{18, 35}) {
		t.Fatalf("include genres: %v", criteria.IncludeGenres)
	}
	// 18 is included, so only 27 survives the exclusion set.
	if !reflect.DeepEqual(criteria.ExcludeGenres, []int64{27}) {
		t.Fatalf("exclude genres: %v", criteria.ExcludeGenres)
	}
	if !reflect.DeepEqual(criteria.ExcludeProviders, []int64{9}) {
		t.Fatalf("exclude providers: %v", criteria.ExcludeProviders)
	}
	if !reflect.DeepEqual(criteria.ExcludeCountries, []string{"KR"}) {
		t.Fatalf("exclude countries: %v", criteria.ExcludeCountries)
	}
}

func TestNormalizeOrdersRangesAndClampsRating(t *testing.T) {
	criteria := FilterCriteria{
		Type:       ContentTypeMovie,
		YearMin:    2020,
		YearMax:    1999,
		RuntimeMin: 200,
		RuntimeMax: 90,
		MinRating:  14,
	}
	criteria.Normalize()

	if criteria.YearMin != 1999 || criteria.YearMax != 2020 {
		t.Fatalf("year range: %d-%d", criteria.YearMin, criteria.YearMax)
	}
	if criteria.RuntimeMin != 90 || criteria.RuntimeMax != 200 {
		t.Fatalf("runtime range: %d-%d", criteria.RuntimeMin, criteria.RuntimeMax)
	}
	if criteria.MinRating != 10 {
		t.Fatalf("rating clamp: %f", criteria.MinRating)
	}
}

func TestNormalizeFallsBackToBothForUnknownType(t *testing.T) {
	criteria := FilterCriteria{Type: ContentType("anything")}
	criteria.Normalize()
	if criteria.Type != ContentTypeBoth {
		t.Fatalf("expected fallback to both, got %q", criteria.Type)
	}
}

func TestMediaTypesOrder(t *testing.T) {
	got := ContentTypeBoth.MediaTypes()
	if len(got) != 2 || got[0] != MediaTypeMovie || got[1] != MediaTypeSeries {
		t.Fatalf("expected movies before series, got %v", got)
	}
	if got := ContentTypeSeries.MediaTypes(); len(got) != 1 || got[0] != MediaTypeSeries {
		t.Fatalf("series expansion: %v", got)
	}
}
