package users

import (
	"net/http"

	"tubeauth/internal/middleware"
	"tubeauth/internal/pkg/apperr"
	"tubeauth/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

var (
	errUnauthorized = apperr.New(apperr.KindUnauthenticated, "Unauthorized request")
	errInvalidBody  = apperr.New(apperr.KindInvalidInput, "Invalid request body")
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterProtectedRoutes expects a group behind middleware.JWTAuth.
func (h *Handler) RegisterProtectedRoutes(users *gin.RouterGroup) {
	users.GET("/get-user", h.GetUser)
	users.PATCH("/update-profile", h.UpdateProfile)
	users.PATCH("/update-avatar", h.UpdateAvatar)
	users.PATCH("/update-cover-image", h.UpdateCoverImage)
}

// GetUser
// @Summary		Current user
// @Tags		Users
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/users/get-user [GET]
func (h *Handler) GetUser(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errUnauthorized)
		return
	}

	user, err := h.service.GetCurrentUser(c.Request.Context(), current.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user, "User fetched successfully")
}

// UpdateProfile
// @Summary		Update fullname or email
// @Tags		Users
// @Security	BearerAuth
// @Param		request	body	UpdateProfileRequest	true	"fullname, email"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Failure		409	{object}	map[string]interface{}
// @Router		/users/update-profile [PATCH]
func (h *Handler) UpdateProfile(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errInvalidBody)
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), current.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user, "Account details updated successfully")
}

// UpdateAvatar
// @Summary		Replace avatar
// @Tags		Users
// @Security	BearerAuth
// @Accept		multipart/form-data
// @Param		avatar	formData	file	true	"Avatar image"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Failure		503	{object}	map[string]interface{}
// @Router		/users/update-avatar [PATCH]
func (h *Handler) UpdateAvatar(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errUnauthorized)
		return
	}

	file, _ := c.FormFile("avatar")
	user, err := h.service.UpdateAvatar(c.Request.Context(), current.ID, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user, "Avatar image updated successfully")
}

// UpdateCoverImage
// @Summary		Replace cover image
// @Tags		Users
// @Security	BearerAuth
// @Accept		multipart/form-data
// @Param		coverImage	formData	file	true	"Cover image"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Failure		503	{object}	map[string]interface{}
// @Router		/users/update-cover-image [PATCH]
func (h *Handler) UpdateCoverImage(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, errUnauthorized)
		return
	}

	file, _ := c.FormFile("coverImage")
	user, err := h.service.UpdateCoverImage(c.Request.Context(), current.ID, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, user, "Cover image updated successfully")
}
