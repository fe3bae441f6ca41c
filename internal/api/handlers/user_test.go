package handlers

import (
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegisterEndpoint(t *testing.T) {
	f := newFixture(t)
	h := &UserHandler{Users: f.service}

	body := `{"username": "reader", "email": "reader@example.com", "password": "secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	snapshot := wantToken(t, f, rec)
	if snapshot.Username != "reader" {
		t.Errorf("username = %q", snapshot.Username)
	}
}

func TestRegisterEndpointValidation(t *testing.T) {
	f := newFixture(t)
	h := &UserHandler{Users: f.service}

	req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	wantError(t, rec, http.StatusBadRequest, "Invalid JSON format")

	req = httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(`{"username": "reader"}`))
	rec = httptest.NewRecorder()
	h.Handle(rec, req)
	wantError(t, rec, http.StatusBadRequest, "All fields are required.")
}

func TestLoginEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedUser("reader", "secret123")
	h := &UserHandler{Users: f.service}

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Credentials", base64.StdEncoding.EncodeToString([]byte("reader:secret123")))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	snapshot := wantToken(t, f, rec)
	if snapshot.Username != "reader" {
		t.Errorf("username = %q", snapshot.Username)
	}
}

func TestLoginEndpointHeaderErrors(t *testing.T) {
	f := newFixture(t)
	f.seedUser("reader", "secret123")
	h := &UserHandler{Users: f.service}

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"missing header", "", http.StatusBadRequest, "Missing credentials"},
		{"bad base64", "!!!not-base64!!!", http.StatusBadRequest, "Invalid Base64 encoding"},
		{"no separator", base64.StdEncoding.EncodeToString([]byte("readersecret")), http.StatusBadRequest, "Invalid credentials format"},
		{"wrong password", base64.StdEncoding.EncodeToString([]byte("reader:nope")), http.StatusUnauthorized, "Invalid credentials"},
		{"unknown user", base64.StdEncoding.EncodeToString([]byte("ghost:pw")), http.StatusNotFound, "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/user", nil)
			if tt.header != "" {
				req.Header.Set("Credentials", tt.header)
			}
			rec := httptest.NewRecorder()
			h.Handle(rec, req)
			wantError(t, rec, tt.status, tt.message)
		})
	}
}

func multipartBody(t *testing.T, fields map[string]string) (*strings.Reader, string) {
	t.Helper()
	var sb strings.Builder
	w := multipart.NewWriter(&sb)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return strings.NewReader(sb.String()), w.FormDataContentType()
}

func TestUpdateEndpointPasswordMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedUser("reader", "secret123")
	h := &UserHandler{Users: f.service}

	body, contentType := multipartBody(t, map[string]string{
		"username":        "reader",
		"password":        "new-password",
		"confirmPassword": "different",
	})
	req := httptest.NewRequest(http.MethodPut, "/user", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	wantError(t, rec, http.StatusBadRequest, "Passwords do not match")
}

func TestUpdateEndpoint(t *testing.T) {
	f := newFixture(t)
	f.seedUser("reader", "secret123")
	h := &UserHandler{Users: f.service}

	body, contentType := multipartBody(t, map[string]string{
		"username": "reader",
		"email":    "new@example.com",
	})
	req := httptest.NewRequest(http.MethodPut, "/user", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestUserEndpointMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	h := &UserHandler{Users: f.service}

	req := httptest.NewRequest(http.MethodDelete, "/user", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
