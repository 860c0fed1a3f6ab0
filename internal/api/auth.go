package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studyplatform/xpd/internal/app/provider"
	"github.com/studyplatform/xpd/internal/domain"
)

// userClaims are checked in order for the user id.
var userClaims = []string{"userId", "id", "sub"}

// Authenticator turns a platform bearer token into a provider.Session.
// With an empty secret, signatures are not checked and the token is only
// decoded; the daemon warns about this at startup.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator for HMAC-signed tokens.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Verifies reports whether token signatures are checked.
func (a *Authenticator) Verifies() bool { return len(a.secret) > 0 }

// Session extracts the session from the Authorization header, or from the
// token query parameter for websocket clients that cannot set headers.
func (a *Authenticator) Session(r *http.Request) (provider.Session, error) {
	token := bearerToken(r)
	if token == "" {
		return provider.Session{}, domain.ErrNotAuthenticated
	}

	claims := jwt.MapClaims{}
	if a.Verifies() {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return a.secret, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
		if err != nil {
			return provider.Session{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return provider.Session{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
		}
	}

	uid := userID(claims)
	if uid == "" {
		return provider.Session{}, fmt.Errorf("%w: no user id claim", domain.ErrInvalidToken)
	}
	return provider.Session{UserID: uid, Token: token}, nil
}

// Middleware rejects unauthenticated requests and stores the session on the context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.Session(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

type sessionKey struct{}

// SessionFrom returns the session stored by Middleware.
func SessionFrom(ctx context.Context) (provider.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(provider.Session)
	return sess, ok
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// userID reads the first usable id claim. Numeric ids are formatted as integers.
func userID(claims jwt.MapClaims) string {
	for _, name := range userClaims {
		switch v := claims[name].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}
