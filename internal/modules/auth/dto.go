package auth

import (
	"mime/multipart"
	"time"

	"tubeauth/internal/domain"
)

// RegisterRequest is the multipart registration form.
type RegisterRequest struct {
	Fullname   string                `form:"fullname" validate:"required,max=255"`
	Email      string                `form:"email" validate:"required,email,max=255"`
	Username   string                `form:"username" validate:"required,max=64"`
	Password   string                `form:"password" validate:"required"`
	Avatar     *multipart.FileHeader `form:"avatar" validate:"-"`
	CoverImage *multipart.FileHeader `form:"coverImage" validate:"-"`
}

// LoginRequest accepts either username or email.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// TokenPair is a freshly issued access and refresh token.
type TokenPair struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	AccessTTL    time.Duration `json:"-"`
	RefreshTTL   time.Duration `json:"-"`
}

type LoginResult struct {
	User *domain.User `json:"user"`
	TokenPair
}
