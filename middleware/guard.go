package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	svcwatch "github.com/svcwatch/svcwatch"
)

type userContextKey struct{}

// UserFromContext returns the account record attached by [Guard].
func UserFromContext(ctx context.Context) (*svcwatch.UserRecord, bool) {
	user, ok := ctx.Value(userContextKey{}).(*svcwatch.UserRecord)
	return user, ok
}

// Guard authenticates the request with the engine and attaches the resolved
// user to the context. A TOTP-pending token is refused here with 401; it is
// only valid against the TOTP validation endpoint.
func Guard(engine *svcwatch.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := svcwatch.WithClientIP(r.Context(), clientIP(r))
			user, err := engine.CurrentUser(ctx, token)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, svcwatch.ErrInactiveUser) {
					status = http.StatusBadRequest
				}
				http.Error(w, err.Error(), status)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userContextKey{}, user)))
		})
	}
}

// RequireSuperuser gates a handler on the superuser flag. Must run inside
// [Guard].
func RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !user.IsSuperuser {
			http.Error(w, "insufficient privileges", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
