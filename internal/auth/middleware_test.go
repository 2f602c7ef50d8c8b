package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// echoOwner writes the owner found in the context.
var echoOwner = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())
	w.Write([]byte(owner))
})

func TestRequireOwner_DefaultOwnerWithoutSecret(t *testing.T) {
	h := RequireOwner(nil, "local")(echoOwner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "local" {
		t.Errorf("owner = %q, want %q", rec.Body.String(), "local")
	}
}

func TestRequireOwner_WithTokens(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Generate("alice")

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
		wantOwner  string
	}{
		{
			name:       "bearer header",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			wantStatus: http.StatusOK,
			wantOwner:  "alice",
		},
		{
			name:       "lowercase scheme",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "bearer "+token) },
			wantStatus: http.StatusOK,
			wantOwner:  "alice",
		},
		{
			name:       "cookie",
			prepare:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) },
			wantStatus: http.StatusOK,
			wantOwner:  "alice",
		},
		{
			name: "header wins over cookie",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer bogus")
				r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic scheme",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Basic YWxpY2U6cHc=") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no credentials",
			prepare:    func(*http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequireOwner(ts, "local")(echoOwner)
			req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
			tt.prepare(req)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && rec.Body.String() != tt.wantOwner {
				t.Errorf("owner = %q, want %q", rec.Body.String(), tt.wantOwner)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 response should carry WWW-Authenticate")
			}
		})
	}
}

func TestOwnerFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := OwnerFromContext(req.Context()); ok {
		t.Error("OwnerFromContext() should report false without RequireOwner")
	}
}
