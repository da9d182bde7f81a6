package auth

import (
	"context"
	"mime/multipart"
	"time"

	"tubeauth/internal/domain"
	jwtsvc "tubeauth/internal/pkg/jwt"
)

// UserRepositoryInterface — only the methods auth service uses
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	UpdateFields(ctx context.Context, id int64, fields domain.UserFields, skipValidation bool) (*domain.User, error)
	SetRefreshToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, id int64, presented, next string, expiresAt time.Time) (bool, error)
	ClearRefreshToken(ctx context.Context, id int64) error
}

// MediaStore uploads registration images and returns their URL.
type MediaStore interface {
	Upload(ctx context.Context, file *multipart.FileHeader) (string, error)
}

type tokenService interface {
	IssueAccessToken(userID int64) (string, error)
	IssueRefreshToken(userID int64) (string, error)
	Verify(token string, kind jwtsvc.Kind) (*jwtsvc.Claims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}
