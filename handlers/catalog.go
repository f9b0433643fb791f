package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"movemovies/models"
	"movemovies/services/catalog"

	"github.com/gorilla/mux"
)

type catalogService interface {
	DetailsWithFallback(ctx context.Context, mediaType models.MediaType, id int64) (models.CatalogDetail, error)
	Credits(ctx context.Context, mediaType models.MediaType, id int64) (models.Credits, error)
	AvailableProviders(ctx context.Context) ([]models.ProviderInfo, error)
	Images(ctx context.Context, mediaType models.MediaType, id int64) (models.TitleImages, error)
	Recommendations(ctx context.Context, mediaType models.MediaType, id int64) ([]models.CatalogItem, error)
	Reviews(ctx context.Context, mediaType models.MediaType, id int64, lang string) ([]models.Review, error)
	Videos(ctx context.Context, mediaType models.MediaType, id int64, lang string) ([]models.Video, error)
	Search(ctx context.Context, query string) ([]models.CatalogItem, error)
	Trending(ctx context.Context, mediaType models.MediaType) ([]models.CatalogItem, error)
	TopRated(ctx context.Context, mediaType models.MediaType) ([]models.CatalogItem, error)
	Popular(ctx context.Context, mediaType models.MediaType) ([]models.CatalogItem, error)
}

var _ catalogService = (*catalog.Client)(nil)

type providerLookup interface {
	Get(ctx context.Context, mediaType models.MediaType, id int64) (*models.WatchProviders, error)
}

var _ providerLookup = (*catalog.ProviderCache)(nil)

// CatalogHandler proxies title metadata from the upstream catalog.
type CatalogHandler struct {
	Service   catalogService
	Providers providerLookup
}

func NewCatalogHandler(service catalogService, providers providerLookup) *CatalogHandler {
	return &CatalogHandler{Service: service, Providers: providers}
}

func (h *CatalogHandler) Details(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := requireTitle(w, r)
	if !ok {
		return
	}
	detail, err := h.Service.DetailsWithFallback(r.Context(), mediaType, id)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, detail)
}

func (h *CatalogHandler) Credits(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := requireTitle(w, r)
	if !ok {
		return
	}
	credits, err := h.Service.Credits(r.Context(), mediaType, id)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, credits)
}

// WatchProviders serves the region-scoped streaming availability for a
// title. A title with no listings returns an empty object, not an error.
func (h *CatalogHandler) WatchProviders(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := requireTitle(w, r)
	if !ok {
		return
	}
	providers, err := h.Providers.Get(r.Context(), mediaType, id)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	if providers == nil {
		providers = &models.WatchProviders{}
	}
	writeJSON(w, providers)
}

func (h *CatalogHandler) AvailableProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.Service.AvailableProviders(r.Context())
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, providers)
}

func (h *CatalogHandler) Images(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := requireTitle(w, r)
	if !ok {
		return
	}
	images, err := h.Service.Images(r.Context(), mediaType, id)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, images)
}

func (h *CatalogHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := requireTitle(w, r)
	if !ok {
		return
	}
	items, err := h.Service.Recommendations(r.Context(), mediaType, id)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, items)
}

func (h *CatalogHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := requireTitle(w, r)
	if !ok {
		return
	}
	reviews, err := h.Service.Reviews(r.Context(), mediaType, id, "")
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, reviews)
}

func (h *CatalogHandler) Videos(w http.ResponseWriter, r *http.Request) {
	mediaType, id, ok := requireTitle(w, r)
	if !ok {
		return
	}
	videos, err := h.Service.Videos(r.Context(), mediaType, id, "")
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, videos)
}

func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "search query is required", http.StatusBadRequest)
		return
	}
	items, err := h.Service.Search(r.Context(), query)
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, items)
}

// Browse serves the fixed editorial lists for a media type.
func (h *CatalogHandler) Browse(w http.ResponseWriter, r *http.Request) {
	mediaType, ok := requireMediaType(w, r)
	if !ok {
		return
	}

	var (
		items []models.CatalogItem
		err   error
	)
	switch mux.Vars(r)["list"] {
	case "trending":
		items, err = h.Service.Trending(r.Context(), mediaType)
	case "top-rated":
		items, err = h.Service.TopRated(r.Context(), mediaType)
	case "popular":
		items, err = h.Service.Popular(r.Context(), mediaType)
	default:
		http.Error(w, "unknown list", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), catalogStatus(err))
		return
	}
	writeJSON(w, items)
}

func (h *CatalogHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func requireMediaType(w http.ResponseWriter, r *http.Request) (models.MediaType, bool) {
	mediaType := models.MediaType(strings.TrimSpace(mux.Vars(r)["mediaType"]))
	if !mediaType.Valid() {
		http.Error(w, "unknown media type", http.StatusBadRequest)
		return "", false
	}
	return mediaType, true
}

func requireTitle(w http.ResponseWriter, r *http.Request) (models.MediaType, int64, bool) {
	mediaType, ok := requireMediaType(w, r)
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(mux.Vars(r)["id"]), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "title id must be numeric", http.StatusBadRequest)
		return "", 0, false
	}
	return mediaType, id, true
}

func catalogStatus(err error) int {
	if errors.Is(err, catalog.ErrAPIKeyMissing) {
		return http.StatusUnauthorized
	}
	var fetchErr *catalog.FetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
