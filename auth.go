package guardianvault

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/golang-jwt/jwt"
	"github.com/twitchtv/twirp"
	"github.com/yiplee/go-cache"
)

func extractBearerToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	return strings.TrimPrefix(token, "Bearer ")
}

// handleAuth verifies the bearer token and puts the caller principal on
// the context. The token subject is the principal id; the engine trusts
// it from here on, every operation decides authorization against vault
// roles only.
func handleAuth(issuer string, secret []byte) func(next http.Handler) http.Handler {
	principals := cache.New[string, string]()

	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := extractBearerToken(r)

			if id, ok := principals.Get(token); ok {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, id)))
				return
			}

			var claim jwt.StandardClaims
			_, err := jwt.ParseWithClaims(token, &claim, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}

				return secret, nil
			})

			if err != nil {
				_ = twirp.WriteError(w, twirp.Unauthenticated.Error(err.Error()))
				return
			}

			if claim.Issuer != issuer {
				_ = twirp.WriteError(w, twirp.Unauthenticated.Error("auth required"))
				return
			}

			if !govalidator.IsUUID(claim.Subject) {
				_ = twirp.WriteError(w, twirp.Unauthenticated.Error("invalid subject"))
				return
			}

			principals.Set(token, claim.Subject)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, claim.Subject)))
		}

		return http.HandlerFunc(fn)
	}
}
