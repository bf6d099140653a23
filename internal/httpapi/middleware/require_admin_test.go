package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequireAdmin(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}}
	cases := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"admin via X-API-Key", "X-API-Key", "adm_key", http.StatusOK},
		{"admin via bearer", "Authorization", "Bearer adm_key", http.StatusOK},
		{"public key", "X-API-Key", "pub_key", http.StatusForbidden},
		{"missing key", "", "", http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/apply", nil)
			if c.header != "" {
				req.Header.Set(c.header, c.value)
			}
			rec := httptest.NewRecorder()
			RequireAdmin(keys)(okHandler).ServeHTTP(rec, req)
			if rec.Code != c.want {
				t.Fatalf("got %d want %d", rec.Code, c.want)
			}
		})
	}
}

func TestRequireAny(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}}
	for key, want := range map[string]int{
		"pub_key": http.StatusOK,
		"adm_key": http.StatusOK,
		"nope":    http.StatusUnauthorized,
		"":        http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/test", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		RequireAny(keys)(okHandler).ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("key %q: got %d want %d", key, rec.Code, want)
		}
	}
}

func TestNoKeysConfigured_AllowsAll(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/apply", nil)
	for _, mw := range []func(http.Handler) http.Handler{RequireAny(Keys{}), RequireAdmin(Keys{})} {
		rec := httptest.NewRecorder()
		mw(okHandler).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d", rec.Code)
		}
	}
}
