package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/developerakkoo/Porttivo-API/internal/domain"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ActorContextKey is the key for storing the resolved actor in the
	// request context
	ActorContextKey ContextKey = "actor"
)

// Actor creates an HTTP middleware that resolves the caller identity from
// the gateway headers and injects it into the request context. Token
// verification happens upstream at the API gateway; by the time a request
// reaches this service the identity headers are trusted.
//
// Headers:
//   - X-Actor-Id:       caller uuid (required)
//   - X-Actor-Role:     transporter | driver | company_user | pump_owner | pump_staff | admin
//   - X-Transporter-Id: owning transporter for drivers and company users
//   - X-Pump-Owner-Id:  owning pump for pump staff
//   - X-Permissions:    comma-separated grants for company users
//
// Requests without a valid identity proceed without an actor; handlers that
// need one use RequireActor.
func Actor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, err := uuid.Parse(r.Header.Get("X-Actor-Id"))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			actor := domain.Actor{
				ID:   actorID,
				Role: domain.Role(r.Header.Get("X-Actor-Role")),
			}
			if raw := r.Header.Get("X-Transporter-Id"); raw != "" {
				if id, err := uuid.Parse(raw); err == nil {
					actor.TransporterID = id
				} else {
					slog.Warn("invalid transporter header", "value", raw)
				}
			}
			if actor.Role == domain.RoleTransporter {
				actor.TransporterID = actor.ID
			}
			if raw := r.Header.Get("X-Pump-Owner-Id"); raw != "" {
				if id, err := uuid.Parse(raw); err == nil {
					actor.PumpOwnerID = id
				} else {
					slog.Warn("invalid pump owner header", "value", raw)
				}
			}
			if actor.Role == domain.RolePumpOwner {
				actor.PumpOwnerID = actor.ID
			}
			if raw := r.Header.Get("X-Permissions"); raw != "" {
				for _, p := range strings.Split(raw, ",") {
					if p = strings.TrimSpace(p); p != "" {
						actor.Permissions = append(actor.Permissions, p)
					}
				}
			}

			ctx := context.WithValue(r.Context(), ActorContextKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetActor extracts the resolved actor from a request context. The second
// return value reports whether an actor was present.
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(ActorContextKey).(domain.Actor)
	return actor, ok
}

// RequireActor wraps a handler and rejects requests that carry no resolved
// identity.
func RequireActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetActor(r.Context()); !ok {
			slog.Warn("identity required but not provided",
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"authentication required"}`))
			return
		}
		next(w, r)
	}
}
