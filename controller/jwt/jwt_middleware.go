package jwt

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chirp/controller/json"
	"chirp/model"
)

// ExtractJWTUserMiddleware parses the bearer token, if any, into an
// AuthUser stored in the request context. Requests without a token pass
// through anonymously; route handlers that need a viewer wrap themselves in
// RequireAuth.
func ExtractJWTUserMiddleware(secret string, tracer trace.Tracer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			newCtx, span := tracer.Start(r.Context(), "ExtractJWTUserMiddleware")
			defer span.End()

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r.WithContext(newCtx))
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			_, parseSpan := tracer.Start(newCtx, "jwt.Parse")
			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			parseSpan.End()

			if err != nil || token == nil {
				if err != nil {
					span.SetStatus(codes.Error, err.Error())
				}
				json.EncodeError(w, 403, "Invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || !token.Valid {
				json.EncodeError(w, 403, "Invalid token")
				return
			}

			authUser := model.AuthUser{
				ID:       claims["sub"].(string),
				Username: claims["username"].(string),
				Exp:      time.UnixMilli(int64(claims["exp"].(float64))),
			}

			span.SetAttributes(attribute.String("user", authUser.Username))

			authCtx := context.WithValue(newCtx, "authUser", authUser)
			next.ServeHTTP(w, r.WithContext(authCtx))
		})
	}
}

// RequireAuth rejects requests that carried no (valid) token.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value("authUser").(model.AuthUser); !ok {
			json.EncodeError(w, 401, "authentication required")
			return
		}
		next(w, r)
	}
}

// AuthUserFromContext returns the viewer, or false for anonymous requests.
func AuthUserFromContext(ctx context.Context) (model.AuthUser, bool) {
	authUser, ok := ctx.Value("authUser").(model.AuthUser)
	return authUser, ok
}

// ViewerID returns the viewer's id, or "" for anonymous requests.
func ViewerID(ctx context.Context) string {
	if authUser, ok := AuthUserFromContext(ctx); ok {
		return authUser.ID
	}
	return ""
}
