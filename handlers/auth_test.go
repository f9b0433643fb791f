package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubAuthCatalog struct {
	validKey string
	applied  string
}

func (c *stubAuthCatalog) ValidateKey(_ context.Context, key string) (bool, error) {
	return key == c.validKey, nil
}

func (c *stubAuthCatalog) SetAPIKey(key string) { c.applied = key }

type stubAuthPrefs struct {
	key string
}

func (p *stubAuthPrefs) APIKey() string { return p.key }

func (p *stubAuthPrefs) SetAPIKey(key string) error {
	p.key = key
	return nil
}

func TestLoginPersistsValidKey(t *testing.T) {
	catalog := &stubAuthCatalog{validKey: "good-key"}
	prefs := &stubAuthPrefs{}
	h := NewAuthHandler(catalog, prefs)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"apiKey":"good-key"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if prefs.key != "good-key" {
		t.Fatalf("expected key persisted, got %q", prefs.key)
	}
	if catalog.applied != "good-key" {
		t.Fatalf("expected key applied to client, got %q", catalog.applied)
	}
}

func TestLoginRejectsInvalidKey(t *testing.T) {
	catalog := &stubAuthCatalog{validKey: "good-key"}
	prefs := &stubAuthPrefs{}
	h := NewAuthHandler(catalog, prefs)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"apiKey":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if prefs.key != "" {
		t.Fatalf("invalid key must not be persisted, got %q", prefs.key)
	}
}

func TestLoginRequiresKey(t *testing.T) {
	h := NewAuthHandler(&stubAuthCatalog{}, &stubAuthPrefs{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"apiKey":"  "}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatusReportsConfiguration(t *testing.T) {
	h := NewAuthHandler(&stubAuthCatalog{}, &stubAuthPrefs{key: "stored"})

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))

	if !strings.Contains(rec.Body.String(), `"configured":true`) {
		t.Fatalf("expected configured=true, got %s", rec.Body.String())
	}
}

func TestLogoutClearsKey(t *testing.T) {
	catalog := &stubAuthCatalog{}
	prefs := &stubAuthPrefs{key: "stored"}
	h := NewAuthHandler(catalog, prefs)

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if prefs.key != "" {
		t.Fatalf("expected key cleared, got %q", prefs.key)
	}
}
