package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is package-private so no other package can read or shadow the
// owner value.
type contextKey string

const ownerKey contextKey = "owner"

var errMalformedHeader = errors.New(`auth: Authorization header must be "Bearer <token>"`)

// CookieName is the cookie checked when no Authorization header is sent.
const CookieName = "token"

// RequireOwner resolves the request's owner and stores it in the context.
//
// With a nil tokens service every request belongs to defaultOwner. Otherwise
// a valid token is required, taken from "Authorization: Bearer <jwt>" or the
// "token" cookie; a missing or invalid token is answered with 401.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireOwner(tokens *TokenService, defaultOwner string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := defaultOwner
			if tokens != nil {
				var err error
				owner, err = ownerFromRequest(r, tokens)
				if err != nil {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("WWW-Authenticate", `Bearer realm="devnote"`)
					w.WriteHeader(http.StatusUnauthorized)
					w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}

// WithOwner returns a context carrying owner.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// OwnerFromContext returns the owner set by RequireOwner.
//
//	owner, ok := auth.OwnerFromContext(r.Context())
//	if !ok {
//	    // route is not behind RequireOwner
//	}
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey).(string)
	return owner, ok && owner != ""
}

// ownerFromRequest prefers the Authorization header over the cookie.
func ownerFromRequest(r *http.Request, tokens *TokenService) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", errMalformedHeader
		}
		return tokens.Validate(strings.TrimSpace(token))
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		// http.ErrNoCookie: anonymous
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
