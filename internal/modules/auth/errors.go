package auth

import "tubeauth/internal/pkg/apperr"

var (
	ErrAllFieldsRequired       = apperr.New(apperr.KindInvalidInput, "All fields are required")
	ErrAvatarRequired          = apperr.New(apperr.KindInvalidInput, "Avatar file is required")
	ErrUsernameOrEmailRequired = apperr.New(apperr.KindInvalidInput, "Username or email is required")
	ErrPasswordRequired        = apperr.New(apperr.KindInvalidInput, "Password is required")
	ErrPasswordsRequired       = apperr.New(apperr.KindInvalidInput, "Old and new password are required")
	ErrPasswordTooLong         = apperr.New(apperr.KindInvalidInput, "Password must be at most 72 bytes")
	ErrUserExists              = apperr.New(apperr.KindConflict, "User with email or username already exists")
	ErrInvalidCredentials      = apperr.New(apperr.KindInvalidCredentials, "Invalid user credentials")
	ErrInvalidOldPassword      = apperr.New(apperr.KindInvalidCredentials, "Invalid old password")
	ErrUnauthorized            = apperr.New(apperr.KindUnauthenticated, "Unauthorized request")
	ErrInvalidRefreshToken     = apperr.New(apperr.KindUnauthenticated, "Invalid refresh token")
	ErrRefreshTokenReused      = apperr.New(apperr.KindTokenReused, "Refresh token is expired or used")
)
