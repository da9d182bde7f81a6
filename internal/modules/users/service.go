// Package users serves the signed-in user's own profile.
package users

import (
	"context"
	"mime/multipart"
	"strings"

	"tubeauth/internal/domain"
	"tubeauth/internal/pkg/apperr"
)

type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateFields(ctx context.Context, id int64, fields domain.UserFields, skipValidation bool) (*domain.User, error)
}

type MediaStore interface {
	Upload(ctx context.Context, file *multipart.FileHeader) (string, error)
}

var (
	ErrNothingToUpdate   = apperr.New(apperr.KindInvalidInput, "Fullname or email is required")
	ErrAvatarMissing     = apperr.New(apperr.KindInvalidInput, "Avatar file is missing")
	ErrCoverImageMissing = apperr.New(apperr.KindInvalidInput, "Cover image file is missing")
)

type UpdateProfileRequest struct {
	Fullname *string `json:"fullname"`
	Email    *string `json:"email"`
}

type Service struct {
	users UserRepositoryInterface
	media MediaStore
}

func NewService(users UserRepositoryInterface, media MediaStore) *Service {
	return &Service{users: users, media: media}
}

func (s *Service) GetCurrentUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// UpdateProfile changes fullname and/or email. Blank values count as absent.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, req UpdateProfileRequest) (*domain.User, error) {
	var fields domain.UserFields
	if v := trimmed(req.Fullname); v != nil {
		fields.Fullname = v
	}
	if v := trimmed(req.Email); v != nil {
		lower := strings.ToLower(*v)
		fields.Email = &lower
	}
	if fields.IsEmpty() {
		return nil, ErrNothingToUpdate
	}

	user, err := s.users.UpdateFields(ctx, userID, fields, false)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *Service) UpdateAvatar(ctx context.Context, userID int64, file *multipart.FileHeader) (*domain.User, error) {
	if file == nil {
		return nil, ErrAvatarMissing
	}
	url, err := s.upload(ctx, file, "Error while uploading avatar")
	if err != nil {
		return nil, err
	}
	return s.save(ctx, userID, domain.UserFields{AvatarURL: &url})
}

func (s *Service) UpdateCoverImage(ctx context.Context, userID int64, file *multipart.FileHeader) (*domain.User, error) {
	if file == nil {
		return nil, ErrCoverImageMissing
	}
	url, err := s.upload(ctx, file, "Error while uploading cover image")
	if err != nil {
		return nil, err
	}
	return s.save(ctx, userID, domain.UserFields{CoverImageURL: &url})
}

func (s *Service) upload(ctx context.Context, file *multipart.FileHeader, failMsg string) (string, error) {
	url, err := s.media.Upload(ctx, file)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInvalidInput {
			return "", err
		}
		return "", apperr.Wrap(apperr.KindUnavailable, failMsg, err)
	}
	if url == "" {
		return "", apperr.New(apperr.KindUnavailable, failMsg)
	}
	return url, nil
}

func (s *Service) save(ctx context.Context, userID int64, fields domain.UserFields) (*domain.User, error) {
	user, err := s.users.UpdateFields(ctx, userID, fields, false)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
