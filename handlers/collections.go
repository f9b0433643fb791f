package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"movemovies/models"
	"movemovies/services/collections"

	"github.com/gorilla/mux"
)

type collectionsService interface {
	List(kind collections.Kind) ([]models.CatalogItem, error)
	Add(kind collections.Kind, item models.CatalogItem) error
	Remove(kind collections.Kind, id int64) (bool, error)
	Contains(kind collections.Kind, id int64) bool
}

var _ collectionsService = (*collections.Service)(nil)

// CollectionsHandler serves the favorites and watched lists.
type CollectionsHandler struct {
	Service collectionsService
}

func NewCollectionsHandler(service collectionsService) *CollectionsHandler {
	return &CollectionsHandler{Service: service}
}

func (h *CollectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.requireKind(w, r)
	if !ok {
		return
	}

	items, err := h.Service.List(kind)
	if err != nil {
		http.Error(w, err.Error(), collectionStatus(err))
		return
	}
	writeJSON(w, items)
}

func (h *CollectionsHandler) Add(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.requireKind(w, r)
	if !ok {
		return
	}

	var item models.CatalogItem
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if item.ID == 0 {
		http.Error(w, "item id is required", http.StatusBadRequest)
		return
	}
	if !item.MediaType.Valid() {
		http.Error(w, "unknown media type", http.StatusBadRequest)
		return
	}

	if err := h.Service.Add(kind, item); err != nil {
		http.Error(w, err.Error(), collectionStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CollectionsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.requireKind(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(mux.Vars(r)["id"]), 10, 64)
	if err != nil {
		http.Error(w, "item id must be numeric", http.StatusBadRequest)
		return
	}

	removed, err := h.Service.Remove(kind, id)
	if err != nil {
		http.Error(w, err.Error(), collectionStatus(err))
		return
	}
	if !removed {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Contains reports membership, used to render the toggle state on detail
// views without shipping the whole list.
func (h *CollectionsHandler) Contains(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.requireKind(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(mux.Vars(r)["id"]), 10, 64)
	if err != nil {
		http.Error(w, "item id must be numeric", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]bool{"present": h.Service.Contains(kind, id)})
}

func (h *CollectionsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *CollectionsHandler) requireKind(w http.ResponseWriter, r *http.Request) (collections.Kind, bool) {
	kind := collections.Kind(strings.TrimSpace(mux.Vars(r)["kind"]))
	if !kind.Valid() {
		http.Error(w, "unknown collection", http.StatusBadRequest)
		return "", false
	}
	return kind, true
}

func collectionStatus(err error) int {
	if errors.Is(err, collections.ErrUnknownKind) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
