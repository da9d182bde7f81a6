package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"tubeauth/internal/pkg/apperr"
	"tubeauth/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

var (
	errInternalTokenMissing = apperr.New(apperr.KindUnauthenticated, "Authorization header is required")
	errInternalTokenInvalid = apperr.New(apperr.KindUnauthenticated, "Invalid internal token")
)

// InternalTokenAuth protects operator endpoints (metrics) with a static
// bearer token. An empty allowedIPs list admits any client address.
func InternalTokenAuth(token string, allowedIPs []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedIPs))
	for _, ip := range allowedIPs {
		if ip = strings.TrimSpace(ip); ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		if len(allowed) > 0 && !allowed[c.ClientIP()] {
			logAuthFailure(c, "ip_not_allowed")
			response.Abort(c, errInternalTokenInvalid)
			return
		}

		scheme, presented, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			logAuthFailure(c, "missing_auth")
			response.Abort(c, errInternalTokenMissing)
			return
		}

		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), []byte(token)) != 1 {
			logAuthFailure(c, "invalid_token")
			response.Abort(c, errInternalTokenInvalid)
			return
		}

		c.Next()
	}
}

func logAuthFailure(c *gin.Context, reason string) {
	log.Printf("internal_auth path=%s client_ip=%s request_id=%s reason=%s", c.Request.URL.Path, c.ClientIP(), requestID(c), reason)
}
