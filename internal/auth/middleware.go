package auth

import (
	"net/http"
	"strings"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// Bearer authenticates requests carrying "Authorization: Bearer <access token>".
func (s *Service) Bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httpx.RespondError(w, shared.ErrNoPrincipal)
			return
		}
		p, err := s.PrincipalFromToken(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), p)))
	})
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
