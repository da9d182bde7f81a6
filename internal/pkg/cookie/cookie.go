// Package cookie writes the session cookies under one policy.
package cookie

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenName  = "accessToken"
	RefreshTokenName = "refreshToken"
)

// Policy is applied to every session cookie. Cookies are always HttpOnly.
type Policy struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
	Domain   string
}

func ParseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func (p Policy) SetTokens(c *gin.Context, accessToken string, accessTTL time.Duration, refreshToken string, refreshTTL time.Duration) {
	p.set(c, AccessTokenName, accessToken, int(accessTTL.Seconds()))
	p.set(c, RefreshTokenName, refreshToken, int(refreshTTL.Seconds()))
}

func (p Policy) Clear(c *gin.Context) {
	p.set(c, AccessTokenName, "", -1)
	p.set(c, RefreshTokenName, "", -1)
}

func (p Policy) set(c *gin.Context, name, value string, maxAge int) {
	path := p.Path
	if path == "" {
		path = "/"
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   p.Domain,
		MaxAge:   maxAge,
		Secure:   p.Secure,
		HttpOnly: true,
		SameSite: p.SameSite,
	})
}
