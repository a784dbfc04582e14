package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChecker_Has(t *testing.T) {
	c := NewChecker(map[string][]string{
		"bot":     {PermTestsRead, PermResponsesWrite},
		"auditor": {"responses:*"},
		"admin":   {"*"},
	})
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"bot", PermTestsRead, true},
		{"bot", PermTestsWrite, false},
		{"bot", PermExport, false},
		{"auditor", PermResponsesRead, true},
		{"auditor", PermTestsRead, false},
		{"admin", PermExport, true},
		{"nobody", PermTestsRead, false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q,%q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require(PermTestsWrite)(ok)

	for role, want := range map[string]int{"": 403, RoleBot: 403, RoleAdmin: 204} {
		req := httptest.NewRequest(http.MethodPost, "/tests", nil)
		if role != "" {
			req = req.WithContext(WithRole(context.Background(), role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %q: status %d, want %d", role, rec.Code, want)
		}
	}
}
