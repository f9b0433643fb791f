package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"movemovies/models"
)

// discoverParams translates filter criteria into the upstream discover query
// vocabulary. Include sets use OR semantics (pipe-joined), exclude sets must
// all be absent (comma-joined for genres and countries; the provider exclude
// parameter is pipe-joined upstream).
func discoverParams(mediaType models.MediaType, page int, criteria models.FilterCriteria, region string) url.Values {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("sort_by", "popularity.desc")
	params.Set("vote_average.gte", formatRating(criteria.MinRating))
	if region != "" {
		params.Set("watch_region", region)
	}

	if len(criteria.IncludeGenres) > 0 {
		params.Set("with_genres", joinIDs(criteria.IncludeGenres, "|"))
	}
	if len(criteria.ExcludeGenres) > 0 {
		params.Set("without_genres", joinIDs(criteria.ExcludeGenres, ","))
	}

	if len(criteria.IncludeProviders) > 0 {
		params.Set("with_watch_providers", joinIDs(criteria.IncludeProviders, "|"))
	}
	if len(criteria.ExcludeProviders) > 0 {
		params.Set("without_watch_providers", joinIDs(criteria.ExcludeProviders, "|"))
	}

	if len(criteria.IncludeCountries) > 0 {
		params.Set("with_origin_country", strings.Join(criteria.IncludeCountries, "|"))
	}
	if len(criteria.ExcludeCountries) > 0 {
		params.Set("without_origin_country", strings.Join(criteria.ExcludeCountries, ","))
	}

	if mediaType == models.MediaTypeMovie {
		// Runtime bounds apply to movies only.
		params.Set("with_runtime.gte", strconv.Itoa(criteria.RuntimeMin))
		params.Set("with_runtime.lte", strconv.Itoa(criteria.RuntimeMax))
		params.Set("primary_release_date.gte", fmt.Sprintf("%d-01-01", criteria.YearMin))
		params.Set("primary_release_date.lte", fmt.Sprintf("%d-12-31", criteria.YearMax))
	} else {
		params.Set("first_air_date.gte", fmt.Sprintf("%d-01-01", criteria.YearMin))
		params.Set("first_air_date.lte", fmt.Sprintf("%d-12-31", criteria.YearMax))
	}

	return params
}

func joinIDs(ids []int64, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, sep)
}

func formatRating(rating float64) string {
	return strconv.FormatFloat(rating, 'f', -1, 64)
}
