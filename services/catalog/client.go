package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"movemovies/models"
	"movemovies/services/ratelimit"

	"golang.org/x/text/language"
)

const (
	tmdbBaseURL = "https://api.themoviedb.org/3"

	// The upstream API refuses pages beyond 500 regardless of what
	// total_pages reports, so the reported count is capped to match.
	maxTotalPages = 500
)

var ErrAPIKeyMissing = errors.New("catalog api key not configured")

// FetchError is a typed failure for a single catalog request. Callers treat
// any FetchError as "this page yielded zero usable items" rather than a
// fatal condition; retrying is the caller's own business.
type FetchError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog fetch %s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("catalog fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client talks to the TMDB v3 API. Every call passes through the shared
// outbound rate limiter and carries the configured display language unless a
// call-site override is given.
type Client struct {
	httpc   *http.Client
	limiter *ratelimit.Limiter

	mu       sync.RWMutex
	apiKey   string
	language string
	region   string
}

// NewClient creates a catalog client. The language is a BCP 47 display
// language tag such as "it-IT"; the watch region is derived from it.
func NewClient(apiKey, displayLanguage string, limiter *ratelimit.Limiter, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	c := &Client{httpc: httpc, limiter: limiter}
	c.SetAPIKey(apiKey)
	c.SetLanguage(displayLanguage)
	return c
}

// SetAPIKey swaps the credential used on subsequent requests.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = strings.TrimSpace(key)
	c.mu.Unlock()
}

// SetLanguage changes the display language and re-derives the watch region.
func (c *Client) SetLanguage(displayLanguage string) {
	lang := strings.TrimSpace(displayLanguage)
	if lang == "" {
		lang = "en-US"
	}
	c.mu.Lock()
	c.language = lang
	c.region = regionForLanguage(lang)
	c.mu.Unlock()
}

// Language returns the configured display language tag.
func (c *Client) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// Region returns the watch region derived from the display language.
func (c *Client) Region() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.region
}

func (c *Client) credentials() (apiKey, lang string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey, c.language
}

// regionForLanguage maps a display language tag to an upstream region code,
// falling back to US when the tag carries no usable region.
func regionForLanguage(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return "US"
	}
	region, conf := t.Region()
	if conf == language.No || !region.IsCountry() {
		return "US"
	}
	return region.String()
}

// langOverride marks an explicit per-call language. The empty string means
// "use the client default"; langNone suppresses the parameter entirely
// (an "all languages" fetch).
const langNone = "-"

// doGET performs one rate-limited GET against the API and decodes the JSON
// body into v. There is no retry here; transient failures surface as a
// FetchError for the caller's own loop to absorb.
func (c *Client) doGET(ctx context.Context, endpoint string, params url.Values, langOverride string, v any) error {
	apiKey, lang := c.credentials()
	if apiKey == "" {
		return ErrAPIKeyMissing
	}

	u, err := url.Parse(tmdbBaseURL + endpoint)
	if err != nil {
		return err
	}

	q := u.Query()
	for key, values := range params {
		for _, value := range values {
			q.Add(key, value)
		}
	}
	q.Set("api_key", apiKey)
	switch langOverride {
	case "":
		q.Set("language", lang)
	case langNone:
		// no language parameter at all
	default:
		q.Set("language", langOverride)
	}
	u.RawQuery = q.Encode()

	return c.limiter.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			return &FetchError{Endpoint: endpoint, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &FetchError{Endpoint: endpoint, Status: resp.StatusCode}
		}

		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return &FetchError{Endpoint: endpoint, Err: err}
		}
		return nil
	})
}

// apiPath maps the internal media type onto the upstream path segment.
func apiPath(mediaType models.MediaType) string {
	if mediaType == models.MediaTypeMovie {
		return "movie"
	}
	return "tv"
}

type listItemPayload struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	Name             string  `json:"name"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	FirstAirDate     string  `json:"first_air_date"`
	GenreIDs         []int64 `json:"genre_ids"`
	VoteAverage      float64 `json:"vote_average"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	OriginalLanguage string  `json:"original_language"`
	MediaType        string  `json:"media_type"`
}

type listResponse struct {
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Results    []listItemPayload `json:"results"`
}

func (p listItemPayload) toItem(mediaType models.MediaType) models.CatalogItem {
	title := p.Title
	releaseDate := p.ReleaseDate
	if mediaType == models.MediaTypeSeries {
		title = p.Name
		releaseDate = p.FirstAirDate
	}
	if title == "" {
		if p.Name != "" {
			title = p.Name
		} else {
			title = p.Title
		}
	}
	if releaseDate == "" {
		if p.FirstAirDate != "" {
			releaseDate = p.FirstAirDate
		} else {
			releaseDate = p.ReleaseDate
		}
	}
	return models.CatalogItem{
		ID:               p.ID,
		MediaType:        mediaType,
		Title:            title,
		Overview:         p.Overview,
		ReleaseDate:      releaseDate,
		GenreIDs:         p.GenreIDs,
		Rating:           p.VoteAverage,
		PosterPath:       p.PosterPath,
		BackdropPath:     p.BackdropPath,
		OriginalLanguage: p.OriginalLanguage,
	}
}

// Discover fetches one page of the filtered discover listing for a media
// type and reports the capped total page count.
func (c *Client) Discover(ctx context.Context, mediaType models.MediaType, page int, criteria models.FilterCriteria) (models.CatalogPage, error) {
	params := discoverParams(mediaType, page, criteria, c.Region())

	var payload listResponse
	if err := c.doGET(ctx, "/discover/"+apiPath(mediaType), params, "", &payload); err != nil {
		return models.CatalogPage{}, err
	}

	totalPages := payload.TotalPages
	if totalPages > maxTotalPages {
		totalPages = maxTotalPages
	}

	items := make([]models.CatalogItem, 0, len(payload.Results))
	for _, r := range payload.Results {
		items = append(items, r.toItem(mediaType))
	}

	return models.CatalogPage{Items: items, Page: payload.Page, TotalPages: totalPages}, nil
}

type detailPayload struct {
	listItemPayload
	Tagline         string         `json:"tagline"`
	Runtime         int            `json:"runtime"`
	NumberOfSeasons int            `json:"number_of_seasons"`
	Status          string         `json:"status"`
	Homepage        string         `json:"homepage"`
	Genres          []models.Genre `json:"genres"`
	ExternalIDs     struct {
		IMDBID string `json:"imdb_id"`
	} `json:"external_ids"`
}

// Details fetches a single title. A non-empty language overrides the client
// default, which callers use to fall back to the original-language text when
// the localized overview is empty or untranslated.
func (c *Client) Details(ctx context.Context, mediaType models.MediaType, id int64, lang string) (models.CatalogDetail, error) {
	params := url.Values{}
	params.Set("append_to_response", "release_dates,external_ids")

	var payload detailPayload
	endpoint := fmt.Sprintf("/%s/%d", apiPath(mediaType), id)
	if err := c.doGET(ctx, endpoint, params, lang, &payload); err != nil {
		return models.CatalogDetail{}, err
	}

	detail := models.CatalogDetail{
		CatalogItem:     payload.toItem(mediaType),
		Tagline:         payload.Tagline,
		RuntimeMinutes:  payload.Runtime,
		NumberOfSeasons: payload.NumberOfSeasons,
		Status:          payload.Status,
		Homepage:        payload.Homepage,
		Genres:          payload.Genres,
		IMDBID:          payload.ExternalIDs.IMDBID,
	}
	if len(detail.GenreIDs) == 0 && len(payload.Genres) > 0 {
		ids := make([]int64, 0, len(payload.Genres))
		for _, g := range payload.Genres {
			ids = append(ids, g.ID)
		}
		detail.GenreIDs = ids
	}
	return detail, nil
}

// DetailsWithFallback fetches a title in the display language and backfills
// the title, overview and tagline from the English record when the localized
// text is missing. A failed fallback fetch keeps the localized record.
func (c *Client) DetailsWithFallback(ctx context.Context, mediaType models.MediaType, id int64) (models.CatalogDetail, error) {
	detail, err := c.Details(ctx, mediaType, id, "")
	if err != nil {
		return models.CatalogDetail{}, err
	}
	if detail.Title != "" && detail.Overview != "" {
		return detail, nil
	}
	if strings.EqualFold(c.Language(), "en-US") {
		return detail, nil
	}

	fallback, err := c.Details(ctx, mediaType, id, "en-US")
	if err != nil {
		return detail, nil
	}
	if detail.Title == "" {
		detail.Title = fallback.Title
	}
	if detail.Overview == "" {
		detail.Overview = fallback.Overview
	}
	if detail.Tagline == "" {
		detail.Tagline = fallback.Tagline
	}
	return detail, nil
}

// Credits fetches cast and crew for a title.
func (c *Client) Credits(ctx context.Context, mediaType models.MediaType, id int64) (models.Credits, error) {
	var payload struct {
		Cast []struct {
			ID          int64  `json:"id"`
			Name        string `json:"name"`
			Character   string `json:"character"`
			ProfilePath string `json:"profile_path"`
			Order       int    `json:"order"`
		} `json:"cast"`
		Crew []struct {
			ID          int64  `json:"id"`
			Name        string `json:"name"`
			Job         string `json:"job"`
			Department  string `json:"department"`
			ProfilePath string `json:"profile_path"`
		} `json:"crew"`
	}

	endpoint := fmt.Sprintf("/%s/%d/credits", apiPath(mediaType), id)
	if err := c.doGET(ctx, endpoint, nil, "", &payload); err != nil {
		return models.Credits{}, err
	}

	credits := models.Credits{
		Cast: make([]models.CastMember, 0, len(payload.Cast)),
		Crew: make([]models.CrewMember, 0, len(payload.Crew)),
	}
	for _, m := range payload.Cast {
		credits.Cast = append(credits.Cast, models.CastMember{
			ID: m.ID, Name: m.Name, Character: m.Character, ProfilePath: m.ProfilePath, Order: m.Order,
		})
	}
	for _, m := range payload.Crew {
		credits.Crew = append(credits.Crew, models.CrewMember{
			ID: m.ID, Name: m.Name, Job: m.Job, Department: m.Department, ProfilePath: m.ProfilePath,
		})
	}
	return credits, nil
}

type providerPayload struct {
	ProviderID      int64  `json:"provider_id"`
	ProviderName    string `json:"provider_name"`
	LogoPath        string `json:"logo_path"`
	DisplayPriority int    `json:"display_priority"`
}

func (p providerPayload) toInfo() models.ProviderInfo {
	return models.ProviderInfo{ID: p.ProviderID, Name: p.ProviderName, LogoPath: p.LogoPath, Priority: p.DisplayPriority}
}

// WatchProviders fetches availability for one title in the configured
// region. A title with no listing in the region returns nil, not an error.
func (c *Client) WatchProviders(ctx context.Context, mediaType models.MediaType, id int64) (*models.WatchProviders, error) {
	var payload struct {
		Results map[string]struct {
			Link     string            `json:"link"`
			Flatrate []providerPayload `json:"flatrate"`
			Rent     []providerPayload `json:"rent"`
			Buy      []providerPayload `json:"buy"`
		} `json:"results"`
	}

	endpoint := fmt.Sprintf("/%s/%d/watch/providers", apiPath(mediaType), id)
	if err := c.doGET(ctx, endpoint, nil, langNone, &payload); err != nil {
		return nil, err
	}

	regional, ok := payload.Results[c.Region()]
	if !ok {
		return nil, nil
	}

	out := &models.WatchProviders{Link: regional.Link}
	for _, p := range regional.Flatrate {
		out.Flatrate = append(out.Flatrate, p.toInfo())
	}
	for _, p := range regional.Rent {
		out.Rent = append(out.Rent, p.toInfo())
	}
	for _, p := range regional.Buy {
		out.Buy = append(out.Buy, p.toInfo())
	}
	return out, nil
}

// AvailableProviders lists the provider directory for the configured region.
func (c *Client) AvailableProviders(ctx context.Context) ([]models.ProviderInfo, error) {
	params := url.Values{}
	params.Set("watch_region", c.Region())

	var payload struct {
		Results []providerPayload `json:"results"`
	}
	if err := c.doGET(ctx, "/watch/providers/movie", params, "", &payload); err != nil {
		return nil, err
	}

	providers := make([]models.ProviderInfo, 0, len(payload.Results))
	for _, p := range payload.Results {
		providers = append(providers, p.toInfo())
	}
	return providers, nil
}

// Images fetches alternate artwork, preferring English and language-neutral
// entries the way the original card UI expects.
func (c *Client) Images(ctx context.Context, mediaType models.MediaType, id int64) (models.TitleImages, error) {
	params := url.Values{}
	params.Set("include_image_language", "en,null")

	var payload struct {
		Backdrops []models.ImageRef `json:"backdrops"`
		Posters   []models.ImageRef `json:"posters"`
	}
	endpoint := fmt.Sprintf("/%s/%d/images", apiPath(mediaType), id)
	if err := c.doGET(ctx, endpoint, params, langNone, &payload); err != nil {
		return models.TitleImages{}, err
	}
	return models.TitleImages{Backdrops: payload.Backdrops, Posters: payload.Posters}, nil
}

// Recommendations fetches titles related to the given one.
func (c *Client) Recommendations(ctx context.Context, mediaType models.MediaType, id int64) ([]models.CatalogItem, error) {
	var payload listResponse
	endpoint := fmt.Sprintf("/%s/%d/recommendations", apiPath(mediaType), id)
	if err := c.doGET(ctx, endpoint, nil, "", &payload); err != nil {
		return nil, err
	}

	items := make([]models.CatalogItem, 0, len(payload.Results))
	for _, r := range payload.Results {
		items = append(items, r.toItem(mediaType))
	}
	return items, nil
}

// Reviews fetches user reviews for a title. An empty lang falls back to the
// client default; langNone fetches reviews in every language.
func (c *Client) Reviews(ctx context.Context, mediaType models.MediaType, id int64, lang string) ([]models.Review, error) {
	var payload struct {
		Results []struct {
			ID            string `json:"id"`
			Author        string `json:"author"`
			Content       string `json:"content"`
			CreatedAt     string `json:"created_at"`
			URL           string `json:"url"`
			AuthorDetails struct {
				Rating float64 `json:"rating"`
			} `json:"author_details"`
		} `json:"results"`
	}

	endpoint := fmt.Sprintf("/%s/%d/reviews", apiPath(mediaType), id)
	if err := c.doGET(ctx, endpoint, nil, lang, &payload); err != nil {
		return nil, err
	}

	reviews := make([]models.Review, 0, len(payload.Results))
	for _, r := range payload.Results {
		reviews = append(reviews, models.Review{
			ID: r.ID, Author: r.Author, Content: r.Content,
			Rating: r.AuthorDetails.Rating, CreatedAt: r.CreatedAt, URL: r.URL,
		})
	}
	return reviews, nil
}

// Videos fetches trailer and clip references for a title.
func (c *Client) Videos(ctx context.Context, mediaType models.MediaType, id int64, lang string) ([]models.Video, error) {
	var payload struct {
		Results []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Key      string `json:"key"`
			Site     string `json:"site"`
			Type     string `json:"type"`
			Official bool   `json:"official"`
			ISO6391  string `json:"iso_639_1"`
		} `json:"results"`
	}

	endpoint := fmt.Sprintf("/%s/%d/videos", apiPath(mediaType), id)
	if err := c.doGET(ctx, endpoint, nil, lang, &payload); err != nil {
		return nil, err
	}

	videos := make([]models.Video, 0, len(payload.Results))
	for _, v := range payload.Results {
		if strings.TrimSpace(v.Key) == "" {
			continue
		}
		videos = append(videos, models.Video{
			ID: v.ID, Name: v.Name, Key: v.Key, Site: v.Site,
			Type: v.Type, Official: v.Official, Language: v.ISO6391,
		})
	}
	return videos, nil
}

// Search runs a multi search and keeps only movie and series results.
func (c *Client) Search(ctx context.Context, query string) ([]models.CatalogItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("page", "1")

	var payload listResponse
	if err := c.doGET(ctx, "/search/multi", params, "", &payload); err != nil {
		return nil, err
	}

	items := make([]models.CatalogItem, 0, len(payload.Results))
	for _, r := range payload.Results {
		var mediaType models.MediaType
		switch r.MediaType {
		case "movie":
			mediaType = models.MediaTypeMovie
		case "tv":
			mediaType = models.MediaTypeSeries
		default:
			continue // people and other result kinds
		}
		items = append(items, r.toItem(mediaType))
	}
	return items, nil
}

// Trending fetches the daily trending list for a media type.
func (c *Client) Trending(ctx context.Context, mediaType models.MediaType) ([]models.CatalogItem, error) {
	return c.simpleList(ctx, "/trending/"+apiPath(mediaType)+"/day", mediaType)
}

// TopRated fetches the all-time top rated list for a media type.
func (c *Client) TopRated(ctx context.Context, mediaType models.MediaType) ([]models.CatalogItem, error) {
	return c.simpleList(ctx, "/"+apiPath(mediaType)+"/top_rated", mediaType)
}

// Popular fetches the current popularity list for a media type.
func (c *Client) Popular(ctx context.Context, mediaType models.MediaType) ([]models.CatalogItem, error) {
	return c.simpleList(ctx, "/"+apiPath(mediaType)+"/popular", mediaType)
}

func (c *Client) simpleList(ctx context.Context, endpoint string, mediaType models.MediaType) ([]models.CatalogItem, error) {
	var payload listResponse
	if err := c.doGET(ctx, endpoint, nil, "", &payload); err != nil {
		return nil, err
	}
	items := make([]models.CatalogItem, 0, len(payload.Results))
	for _, r := range payload.Results {
		items = append(items, r.toItem(mediaType))
	}
	return items, nil
}

// ValidateKey probes the configuration endpoint with the candidate key. It
// reports false on any non-2xx status; only transport failures are errors.
func (c *Client) ValidateKey(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, nil
	}

	endpoint := tmdbBaseURL + "/configuration?api_key=" + url.QueryEscape(key)
	var ok bool
	err := c.limiter.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		ok = resp.StatusCode >= 200 && resp.StatusCode <= 299
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}
