package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"movemovies/models"
	"movemovies/services/collections"

	"github.com/gorilla/mux"
)

type stubCollections struct {
	items map[collections.Kind][]models.CatalogItem
}

func newStubCollections() *stubCollections {
	return &stubCollections{items: map[collections.Kind][]models.CatalogItem{}}
}

func (s *stubCollections) List(kind collections.Kind) ([]models.CatalogItem, error) {
	if !kind.Valid() {
		return nil, collections.ErrUnknownKind
	}
	return s.items[kind], nil
}

func (s *stubCollections) Add(kind collections.Kind, item models.CatalogItem) error {
	if !kind.Valid() {
		return collections.ErrUnknownKind
	}
	s.items[kind] = append(s.items[kind], item)
	return nil
}

func (s *stubCollections) Remove(kind collections.Kind, id int64) (bool, error) {
	if !kind.Valid() {
		return false, collections.ErrUnknownKind
	}
	for i, item := range s.items[kind] {
		if item.ID == id {
			s.items[kind] = append(s.items[kind][:i], s.items[kind][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *stubCollections) Contains(kind collections.Kind, id int64) bool {
	for _, item := range s.items[kind] {
		if item.ID == id {
			return true
		}
	}
	return false
}

func TestCollectionsAddAndList(t *testing.T) {
	svc := newStubCollections()
	h := NewCollectionsHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/collections/favorites", strings.NewReader(`{"id":42,"mediaType":"movie","title":"Heat"}`))
	req = mux.SetURLVars(req, map[string]string{"kind": "favorites"})
	rec := httptest.NewRecorder()
	h.Add(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/collections/favorites", nil)
	req = mux.SetURLVars(req, map[string]string{"kind": "favorites"})
	rec = httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"Heat"`) {
		t.Fatalf("expected item in list, got %s", rec.Body.String())
	}
}

func TestCollectionsAddValidatesPayload(t *testing.T) {
	h := NewCollectionsHandler(newStubCollections())

	req := httptest.NewRequest(http.MethodPost, "/api/collections/favorites", strings.NewReader(`{"mediaType":"movie"}`))
	req = mux.SetURLVars(req, map[string]string{"kind": "favorites"})
	rec := httptest.NewRecorder()
	h.Add(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/collections/favorites", strings.NewReader(`{"id":1,"mediaType":"podcast"}`))
	req = mux.SetURLVars(req, map[string]string{"kind": "favorites"})
	rec = httptest.NewRecorder()
	h.Add(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad media type, got %d", rec.Code)
	}
}

func TestCollectionsUnknownKind(t *testing.T) {
	h := NewCollectionsHandler(newStubCollections())

	req := httptest.NewRequest(http.MethodGet, "/api/collections/maybe", nil)
	req = mux.SetURLVars(req, map[string]string{"kind": "maybe"})
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCollectionsRemove(t *testing.T) {
	svc := newStubCollections()
	svc.items[collections.KindWatched] = []models.CatalogItem{{ID: 9, MediaType: models.MediaTypeSeries}}
	h := NewCollectionsHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/collections/watched/9", nil)
	req = mux.SetURLVars(req, map[string]string{"kind": "watched", "id": "9"})
	rec := httptest.NewRecorder()
	h.Remove(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/collections/watched/9", nil)
	req = mux.SetURLVars(req, map[string]string{"kind": "watched", "id": "9"})
	rec = httptest.NewRecorder()
	h.Remove(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}
