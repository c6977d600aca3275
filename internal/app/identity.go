package app

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/odyssey-erp/workdesk/internal/platform/httpx"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

// Identity headers are set by the gateway after authentication.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderUserID   = "X-User-ID"
)

// IdentityMiddleware attaches the caller identity from gateway headers.
// Requests without headers pass through anonymous; malformed headers are
// rejected.
func IdentityMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawTenant := strings.TrimSpace(r.Header.Get(HeaderTenantID))
			rawUser := strings.TrimSpace(r.Header.Get(HeaderUserID))
			if rawTenant == "" && rawUser == "" {
				next.ServeHTTP(w, r)
				return
			}
			tenant, err := shared.ParseTenant(rawTenant)
			if err != nil {
				logger.Warn("invalid tenant header", slog.String("value", rawTenant))
				httpx.Problem(w, http.StatusBadRequest, "Invalid tenant", HeaderTenantID+" must be a positive integer")
				return
			}
			userID, err := strconv.ParseInt(rawUser, 10, 64)
			if err != nil || userID <= 0 {
				httpx.Problem(w, http.StatusBadRequest, "Invalid user", HeaderUserID+" must be a positive integer")
				return
			}
			ctx := shared.ContextWithIdentity(r.Context(), shared.Identity{Tenant: tenant, UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tenantRateKey(r *http.Request) (string, error) {
	if tenant := r.Header.Get(HeaderTenantID); tenant != "" {
		return "tenant:" + tenant, nil
	}
	return "", nil
}
