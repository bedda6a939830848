package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// GroupResolver loads the current group membership of a user.
type GroupResolver interface {
	UserGroups(ctx context.Context, userID int64) ([]string, error)
}

// Middleware wires group-based authorization helpers for HTTP handlers.
// When Resolver is nil the groups carried by the access token are trusted.
type Middleware struct {
	Resolver GroupResolver
	Logger   *slog.Logger
}

// RequireAny ensures the current user belongs to at least one of the groups.
func (m Middleware) RequireAny(groups ...string) func(http.Handler) http.Handler {
	return m.require(normalizeGroups(groups), hasAnyGroup)
}

// RequireAll ensures the current user belongs to every listed group.
func (m Middleware) RequireAll(groups ...string) func(http.Handler) http.Handler {
	return m.require(normalizeGroups(groups), hasAllGroups)
}

func (m Middleware) require(required []string, match func(granted, required []string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrNoPrincipal)
				return
			}
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, err := m.groupsOf(r.Context(), p)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac resolve groups", slog.Int64("user_id", p.UserID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if match(granted, required) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient group membership")
		})
	}
}

func (m Middleware) groupsOf(ctx context.Context, p shared.Principal) ([]string, error) {
	if m.Resolver == nil {
		return p.Groups, nil
	}
	return m.Resolver.UserGroups(ctx, p.UserID)
}

func normalizeGroups(groups []string) []string {
	seen := make(map[string]struct{}, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

func grantedSet(granted []string) (map[string]struct{}, bool) {
	set := make(map[string]struct{}, len(granted))
	admin := false
	for _, g := range granted {
		g = strings.ToLower(g)
		if g == strings.ToLower(shared.GroupAdmin) {
			admin = true
		}
		set[g] = struct{}{}
	}
	return set, admin
}

func hasAnyGroup(granted, required []string) bool {
	set, admin := grantedSet(granted)
	if admin {
		return true
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllGroups(granted, required []string) bool {
	set, admin := grantedSet(granted)
	if admin {
		return true
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
