package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"movemovies/models"
	"movemovies/services/feed"
)

type stubSession struct {
	window      models.FeedWindow
	advanceErr  error
	advancedTo  int
	continued   bool
	restarted   bool
	criteria    models.FilterCriteria
	language    string
	criteriaSet bool
}

func (s *stubSession) Window() models.FeedWindow { return s.window }

func (s *stubSession) Advance(_ context.Context, index int) (models.FeedWindow, error) {
	if s.advanceErr != nil {
		return models.FeedWindow{}, s.advanceErr
	}
	s.advancedTo = index
	s.window.ActiveIndex = index
	return s.window, nil
}

func (s *stubSession) ContinueSearching(context.Context) models.FeedWindow {
	s.continued = true
	return s.window
}

func (s *stubSession) Restart(context.Context) models.FeedWindow {
	s.restarted = true
	return s.window
}

func (s *stubSession) ApplyCriteria(_ context.Context, criteria models.FilterCriteria) models.FeedWindow {
	s.criteria = criteria
	s.criteriaSet = true
	return s.window
}

func (s *stubSession) ApplyLanguage(_ context.Context, language string) models.FeedWindow {
	s.language = language
	return s.window
}

func TestFeedGetReturnsWindow(t *testing.T) {
	session := &stubSession{window: models.FeedWindow{
		SessionID:   "abc",
		QueueLength: 4,
		State:       models.FeedStateLoading,
		Items:       []models.CatalogItem{{ID: 1}},
	}}
	h := NewFeedHandler(session)

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"sessionId":"abc"`) {
		t.Fatalf("expected session id in body, got %s", rec.Body.String())
	}
}

func TestFeedAdvanceForwardsIndex(t *testing.T) {
	session := &stubSession{}
	h := NewFeedHandler(session)

	req := httptest.NewRequest(http.MethodPost, "/api/feed/advance", strings.NewReader(`{"index":7}`))
	rec := httptest.NewRecorder()
	h.Advance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if session.advancedTo != 7 {
		t.Fatalf("expected advance to 7, got %d", session.advancedTo)
	}
}

func TestFeedAdvanceRejectsBadPayload(t *testing.T) {
	h := NewFeedHandler(&stubSession{})

	req := httptest.NewRequest(http.MethodPost, "/api/feed/advance", strings.NewReader(`{"index":"three"}`))
	rec := httptest.NewRecorder()
	h.Advance(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFeedAdvanceMapsRangeError(t *testing.T) {
	h := NewFeedHandler(&stubSession{advanceErr: feed.ErrIndexOutOfRange})

	req := httptest.NewRequest(http.MethodPost, "/api/feed/advance", strings.NewReader(`{"index":99}`))
	rec := httptest.NewRecorder()
	h.Advance(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range index, got %d", rec.Code)
	}
}

func TestFeedContinueAndRestart(t *testing.T) {
	session := &stubSession{}
	h := NewFeedHandler(session)

	rec := httptest.NewRecorder()
	h.Continue(rec, httptest.NewRequest(http.MethodPost, "/api/feed/continue", nil))
	if rec.Code != http.StatusOK || !session.continued {
		t.Fatalf("expected continue to reach session, code=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Restart(rec, httptest.NewRequest(http.MethodPost, "/api/feed/restart", nil))
	if rec.Code != http.StatusOK || !session.restarted {
		t.Fatalf("expected restart to reach session, code=%d", rec.Code)
	}
}

func TestFiltersPutNormalizesAndAppliesCriteria(t *testing.T) {
	session := &stubSession{}
	prefs := &stubFilterPrefs{}
	h := NewFiltersHandler(prefs, session)

	body := `{"type":"movie","includeGenres":[35,18,35],"excludeGenres":[18],"yearMin":2010,"yearMax":1999,"runtimeMin":0,"runtimeMax":240,"minRating":6.5}`
	req := httptest.NewRequest(http.MethodPut, "/api/filters", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Put(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !session.criteriaSet {
		t.Fatal("expected criteria applied to session")
	}
	got := session.criteria
	if len(got.IncludeGenres) != 2 || len(got.ExcludeGenres) != 0 {
		t.Fatalf("expected normalized genre sets, got include=%v exclude=%v", got.IncludeGenres, got.ExcludeGenres)
	}
	if got.YearMin != 1999 || got.YearMax != 2010 {
		t.Fatalf("expected ordered year range, got %d-%d", got.YearMin, got.YearMax)
	}
}

func TestFiltersPutRejectsUnknownFields(t *testing.T) {
	h := NewFiltersHandler(&stubFilterPrefs{}, &stubSession{})

	req := httptest.NewRequest(http.MethodPut, "/api/filters", strings.NewReader(`{"bogus":true}`))
	rec := httptest.NewRecorder()
	h.Put(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

type stubFilterPrefs struct {
	criteria models.FilterCriteria
}

func (p *stubFilterPrefs) Criteria() models.FilterCriteria { return p.criteria }

func (p *stubFilterPrefs) SetCriteria(criteria models.FilterCriteria) (models.FilterCriteria, error) {
	criteria.Normalize()
	p.criteria = criteria
	return criteria, nil
}
