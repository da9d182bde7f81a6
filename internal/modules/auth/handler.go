package auth

import (
	"net/http"

	"tubeauth/internal/middleware"
	"tubeauth/internal/pkg/apperr"
	"tubeauth/internal/pkg/cookie"
	"tubeauth/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

var errInvalidBody = apperr.New(apperr.KindInvalidInput, "Invalid request body")

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
	cookies cookie.Policy
}

func NewHandler(service *Service, cookies cookie.Policy) *Handler {
	return &Handler{service: service, cookies: cookies}
}

// RegisterPublicRoutes mounts the unauthenticated endpoints on the users group.
func (h *Handler) RegisterPublicRoutes(users *gin.RouterGroup) {
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/refresh-token", h.RefreshToken)
}

// RegisterProtectedRoutes expects a group behind middleware.JWTAuth.
func (h *Handler) RegisterProtectedRoutes(users *gin.RouterGroup) {
	users.POST("/logout", h.Logout)
	users.POST("/change-password", h.ChangePassword)
}

// Register creates an account.
// @Summary		Register a user
// @Tags		Auth
// @Accept		multipart/form-data
// @Param		fullname	formData	string	true	"Full name"
// @Param		email		formData	string	true	"Email"
// @Param		username	formData	string	true	"Username"
// @Param		password	formData	string	true	"Password"
// @Param		avatar		formData	file	true	"Avatar image"
// @Param		coverImage	formData	file	false	"Cover image"
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Failure		409	{object}	map[string]interface{}
// @Router		/users/register [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, errInvalidBody)
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, user, "User registered successfully")
}

// Login exchanges credentials for a token pair, also set as cookies.
// @Summary		Log in
// @Tags		Auth
// @Param		request	body	LoginRequest	true	"username or email, password"
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Failure		404	{object}	map[string]interface{}
// @Router		/users/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errInvalidBody)
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.cookies.SetTokens(c, result.AccessToken, result.AccessTTL, result.RefreshToken, result.RefreshTTL)
	response.Success(c, http.StatusOK, result, "User logged in successfully")
}

// RefreshToken rotates the refresh token taken from the cookie or the body.
// @Summary		Refresh the session
// @Tags		Auth
// @Param		request	body	RefreshRequest	false	"refreshToken, when no cookie is sent"
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/users/refresh-token [POST]
func (h *Handler) RefreshToken(c *gin.Context) {
	presented, _ := c.Cookie(cookie.RefreshTokenName)
	if presented == "" && c.Request.ContentLength != 0 {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	pair, err := h.service.Refresh(c.Request.Context(), presented)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.cookies.SetTokens(c, pair.AccessToken, pair.AccessTTL, pair.RefreshToken, pair.RefreshTTL)
	response.Success(c, http.StatusOK, pair, "Access token refreshed")
}

// Logout invalidates the stored refresh token and clears both cookies.
// @Summary		Log out
// @Tags		Auth
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/users/logout [POST]
func (h *Handler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, ErrUnauthorized)
		return
	}

	if err := h.service.Logout(c.Request.Context(), user.ID); err != nil {
		response.Error(c, err)
		return
	}

	h.cookies.Clear(c)
	response.Success(c, http.StatusOK, gin.H{}, "User logged out")
}

// ChangePassword
// @Summary		Change password
// @Tags		Auth
// @Security	BearerAuth
// @Param		request	body	ChangePasswordRequest	true	"oldPassword, newPassword"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/users/change-password [POST]
func (h *Handler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, ErrUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errInvalidBody)
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), user.ID, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{}, "Password changed successfully")
}
