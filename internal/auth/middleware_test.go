package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// captureClaims is a terminal handler that records what OptionalAuth put in
// the request context.
func captureClaims(got **Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := ClaimsFromContext(r.Context()); ok {
			*got = c
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Issue("acct-42", "admin")
	expired, _ := ts.IssueWithDuration("acct-42", "admin", -time.Minute)

	cases := []struct {
		name       string
		header     string
		wantClaims bool
	}{
		{"no header", "", false},
		{"valid bearer", "Bearer " + valid, true},
		{"lowercase scheme", "bearer " + valid, true},
		{"expired token", "Bearer " + expired, false},
		{"wrong scheme", "Basic " + valid, false},
		{"garbage", "Bearer nope", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got *Claims
			h := OptionalAuth(ts)(captureClaims(&got))

			req := httptest.NewRequest(http.MethodGet, "/blogs", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			// The request always goes through, authenticated or not.
			if rr.Code != http.StatusNoContent {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
			}
			if (got != nil) != tc.wantClaims {
				t.Fatalf("claims present = %v, want %v", got != nil, tc.wantClaims)
			}
			if got != nil && got.AccountID != "acct-42" {
				t.Errorf("AccountID = %q, want %q", got.AccountID, "acct-42")
			}
		})
	}
}
