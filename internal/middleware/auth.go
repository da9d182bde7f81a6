package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tubeauth/internal/domain"
	"tubeauth/internal/metrics"
	"tubeauth/internal/pkg/apperr"
	"tubeauth/internal/pkg/cookie"
	jwtsvc "tubeauth/internal/pkg/jwt"
	"tubeauth/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"
)

var (
	errNoToken      = apperr.New(apperr.KindUnauthenticated, "Unauthorized request")
	errInvalidToken = apperr.New(apperr.KindUnauthenticated, "Invalid access token")
)

type tokenVerifier interface {
	Verify(token string, kind jwtsvc.Kind) (*jwtsvc.Claims, error)
}

type identityFinder interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Authenticator resolves the access token on a request to a stored user.
type Authenticator struct {
	tokens tokenVerifier
	users  identityFinder
}

func NewAuthenticator(tokens tokenVerifier, users identityFinder) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate returns the sanitized user the request's access token belongs
// to. Every token failure reads the same to the caller.
func (a *Authenticator) Authenticate(r *http.Request) (*domain.User, error) {
	token := ExtractAccessToken(r)
	if token == "" {
		return nil, errNoToken
	}

	claims, err := a.tokens.Verify(token, jwtsvc.Access)
	if err != nil {
		return nil, errInvalidToken
	}

	user, err := a.users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, errInvalidToken
		}
		return nil, err
	}
	return user.Sanitized(), nil
}

// ExtractAccessToken reads the accessToken cookie, falling back to an
// Authorization: Bearer header.
func ExtractAccessToken(r *http.Request) string {
	if c, err := r.Cookie(cookie.AccessTokenName); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}

	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// JWTAuth lets the request through only with a valid access token.
func JWTAuth(a *Authenticator, recorder metrics.Recorder) gin.HandlerFunc {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return func(c *gin.Context) {
		user, err := a.Authenticate(c.Request)
		if err != nil {
			recorder.RecordAuthGate(string(apperr.KindOf(err)))
			response.Abort(c, err)
			return
		}

		recorder.RecordAuthGate(metrics.ResultOK)
		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Next()
	}
}

// CurrentUser returns the user set by JWTAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok && user != nil
}
