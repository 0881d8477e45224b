package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"taskhub/internal/apperr"
)

type contextKey string

const principalContextKey contextKey = "taskhub_principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// Verifier turns a raw token into a Principal.
type Verifier interface {
	Verify(token string) (Principal, error)
}

var ErrMissingBearer = errors.New("missing bearer token")

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrMissingBearer
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", ErrMissingBearer
	}
	return token, nil
}

// Authenticate verifies the credential header. All token failures collapse
// into the same Unauthenticated error.
func Authenticate(v Verifier, header string) (Principal, error) {
	token, err := BearerToken(header)
	if err != nil {
		return Principal{}, apperr.Unauthenticated("Authorization header missing")
	}
	p, err := v.Verify(token)
	if err != nil {
		return Principal{}, &apperr.Error{
			Kind:    apperr.KindUnauthenticated,
			Message: "Invalid or expired token",
			Err:     err,
		}
	}
	return p, nil
}

// CheckRole rejects p unless its role is one of allowed.
func CheckRole(p Principal, allowed ...Role) error {
	for _, r := range allowed {
		if p.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("Forbidden: insufficient privileges")
}

// Stage is one step of a gate chain: it either returns the context to
// continue with or an error that rejects the request.
type Stage func(ctx context.Context, r *http.Request) (context.Context, error)

// FailFunc renders a rejection.
type FailFunc func(w http.ResponseWriter, r *http.Request, err error)

func AuthenticateStage(v Verifier) Stage {
	return func(ctx context.Context, r *http.Request) (context.Context, error) {
		p, err := Authenticate(v, r.Header.Get("Authorization"))
		if err != nil {
			return ctx, err
		}
		return WithPrincipal(ctx, p), nil
	}
}

// RoleStage must run after AuthenticateStage.
func RoleStage(roles ...Role) Stage {
	return func(ctx context.Context, r *http.Request) (context.Context, error) {
		p, ok := PrincipalFromContext(ctx)
		if !ok {
			return ctx, apperr.Unauthenticated("Authorization header missing")
		}
		return ctx, CheckRole(p, roles...)
	}
}

// Gate runs stages in order and stops at the first rejection.
func Gate(fail FailFunc, stages ...Stage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			for _, stage := range stages {
				var err error
				if ctx, err = stage(ctx, r); err != nil {
					fail(w, r, err)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Middleware(v Verifier, fail FailFunc) func(http.Handler) http.Handler {
	return Gate(fail, AuthenticateStage(v))
}

func RequireRole(fail FailFunc, roles ...Role) func(http.Handler) http.Handler {
	return Gate(fail, RoleStage(roles...))
}
