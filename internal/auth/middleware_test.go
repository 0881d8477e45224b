package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskhub/internal/logging"
	"taskhub/internal/respond"
)

type fakeVerifier struct {
	calls int
	p     Principal
	err   error
}

func (f *fakeVerifier) Verify(token string) (Principal, error) {
	f.calls++
	if f.err != nil {
		return Principal{}, f.err
	}
	return f.p, nil
}

func failer() FailFunc {
	return respond.NewWriter(logging.Discard(), false).Fail
}

func serve(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc.def.ghi", want: "abc.def.ghi", ok: true},
		{header: "", ok: false},
		{header: "Basic xyz", ok: false},
		{header: "bearer abc", ok: false},
		{header: "Bearer ", ok: false},
		{header: "Bearer    ", ok: false},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if tt.ok && (err != nil || got != tt.want) {
			t.Fatalf("BearerToken(%q) = %q, %v; want %q", tt.header, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrMissingBearer) {
			t.Fatalf("BearerToken(%q) expected ErrMissingBearer, got %v", tt.header, err)
		}
	}
}

func TestMiddlewareRejectsWrongSchemeWithoutVerifying(t *testing.T) {
	v := &fakeVerifier{p: Principal{ID: 1, Username: "alice", Role: RoleUser}}
	reached := false
	h := Middleware(v, failer())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	for _, header := range []string{"", "Basic xyz", "Token abc"} {
		rec := serve(h, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
	if v.calls != 0 {
		t.Fatalf("expected verifier not to be called, got %d calls", v.calls)
	}
	if reached {
		t.Fatalf("handler must not run for rejected requests")
	}
}

func TestMiddlewareUniformRejection(t *testing.T) {
	var messages []string
	for _, verr := range []error{ErrTokenExpired, ErrSignatureMismatch, ErrTokenMalformed} {
		v := &fakeVerifier{err: verr}
		h := Middleware(v, failer())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("handler must not run")
		}))
		rec := serve(h, "Bearer some.token.value")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %v, got %d", verr, rec.Code)
		}
		var body respond.Envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		messages = append(messages, body.Message)
	}
	for _, m := range messages {
		if m != messages[0] {
			t.Fatalf("expected identical messages for all token failures, got %v", messages)
		}
	}
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	want := Principal{ID: 3, Username: "carol", Role: RoleAdmin}
	v := &fakeVerifier{p: want}
	var got Principal
	h := Middleware(v, failer())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := serve(h, "Bearer good")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got != want {
		t.Fatalf("principal = %+v, want %+v", got, want)
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	chain := func(p Principal) http.Handler {
		return Middleware(&fakeVerifier{p: p}, failer())(RequireRole(failer(), RoleAdmin)(ok))
	}

	if rec := serve(chain(Principal{ID: 1, Username: "root", Role: RoleAdmin}), "Bearer t"); rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
	if rec := serve(chain(Principal{ID: 2, Username: "bob", Role: RoleUser}), "Bearer t"); rec.Code != http.StatusForbidden {
		t.Fatalf("user: expected 403, got %d", rec.Code)
	}
}

func TestRequireRoleWithoutPrincipal(t *testing.T) {
	h := RequireRole(failer(), RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	}))
	if rec := serve(h, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCheckRoleMultipleAllowed(t *testing.T) {
	p := Principal{ID: 1, Username: "u", Role: RoleUser}
	if err := CheckRole(p, RoleAdmin, RoleUser); err != nil {
		t.Fatalf("expected user to pass, got %v", err)
	}
	if err := CheckRole(p, RoleAdmin); err == nil {
		t.Fatalf("expected user to be rejected")
	}
}
