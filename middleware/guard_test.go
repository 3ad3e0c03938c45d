package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	superjwt "github.com/MrEthical07/superjwt"
	"github.com/MrEthical07/superjwt/indexer"
)

var secret = []byte("middleware-secret-0123456789abcdef")

type alwaysStreaming struct{}

func (alwaysStreaming) FindActiveStream(context.Context, map[string]any) ([]indexer.Stream, error) {
	return []indexer.Stream{{ID: "s1"}}, nil
}

func newAuthority(t *testing.T) *superjwt.Authority {
	t.Helper()
	a, err := superjwt.New().WithStreamFinder(alwaysStreaming{}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func issue(t *testing.T, a *superjwt.Authority, receiver string) string {
	t.Helper()
	res, err := a.Authorize(context.Background(), superjwt.StreamParams{
		"network":  "polygon",
		"sender":   "0xSender",
		"receiver": receiver,
		"asset":    "0xUSDCx",
	}, secret, superjwt.SigningOptions{})
	if err != nil {
		t.Fatalf("Authorize failed: %v", err)
	}
	return res.Token
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGuard(t *testing.T) {
	a := newAuthority(t)
	token := issue(t, a, "0xService")

	var seen superjwt.Claims
	h := Guard(a, secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer " + token, want: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer " + token, want: http.StatusNoContent},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc.def.ghi", want: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, tc.header)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
	if seen.Receiver() != "0xService" || seen.Network() != "polygon" {
		t.Fatalf("expected claims in context, got %v", seen)
	}
}

func TestGuardWrongSecret(t *testing.T) {
	a := newAuthority(t)
	token := issue(t, a, "0xService")

	h := Guard(a, []byte("another-secret-0123456789abcdefgh"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	if rec := serve(h, "Bearer "+token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGuardNilAuthority(t *testing.T) {
	h := Guard(nil, secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	if rec := serve(h, "Bearer x"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireStream(t *testing.T) {
	a := newAuthority(t)
	ours := issue(t, a, "0xService")
	theirs := issue(t, a, "0xOther")

	h := RequireStream(a, secret, StreamRequirement{Network: "polygon", Receiver: "0xservice"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	if rec := serve(h, "Bearer "+ours); rec.Code != http.StatusOK {
		t.Fatalf("own stream status = %d, want 200", rec.Code)
	}
	if rec := serve(h, "Bearer "+theirs); rec.Code != http.StatusForbidden {
		t.Fatalf("foreign stream status = %d, want 403", rec.Code)
	}
	if rec := serve(h, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d, want 401", rec.Code)
	}
}
