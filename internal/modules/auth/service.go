package auth

import (
	"context"
	"crypto/subtle"
	"log"
	"strings"
	"time"

	"tubeauth/internal/domain"
	"tubeauth/internal/metrics"
	"tubeauth/internal/pkg/apperr"
	jwtsvc "tubeauth/internal/pkg/jwt"
	"tubeauth/internal/pkg/password"
	"tubeauth/internal/pkg/validator"
)

// Service owns the session lifecycle: register, login, refresh, logout and
// password change. The stored refresh token is the only one accepted.
type Service struct {
	users    UserRepositoryInterface
	media    MediaStore
	tokens   tokenService
	recorder metrics.Recorder
	hash     func(string) (string, error)
	now      func() time.Time
}

func NewService(users UserRepositoryInterface, media MediaStore, tokens tokenService, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		users:    users,
		media:    media,
		tokens:   tokens,
		recorder: recorder,
		hash:     password.Hash,
		now:      time.Now,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	req.Fullname = strings.TrimSpace(req.Fullname)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Fullname == "" || req.Email == "" || req.Username == "" || strings.TrimSpace(req.Password) == "" {
		return nil, ErrAllFieldsRequired
	}
	if errs := validator.Validate(req); errs != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "Invalid field values", validator.Flatten(errs)...)
	}
	if len(req.Password) > password.MaxLength {
		return nil, ErrPasswordTooLong
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	if req.Avatar == nil {
		return nil, ErrAvatarRequired
	}
	avatarURL, err := s.media.Upload(ctx, req.Avatar)
	if err != nil {
		return nil, err
	}
	if avatarURL == "" {
		return nil, apperr.New(apperr.KindUnavailable, "Error while uploading avatar")
	}

	var coverURL string
	if req.CoverImage != nil {
		coverURL, err = s.media.Upload(ctx, req.CoverImage)
		if err != nil {
			return nil, err
		}
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Something went wrong while registering the user", err)
	}

	user := &domain.User{
		Username:      req.Username,
		Email:         req.Email,
		Fullname:      req.Fullname,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		PasswordHash:  hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("user_registered user_id=%d username=%s", user.ID, user.Username)
	return user.Sanitized(), nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	result, err := s.login(ctx, req)
	s.recorder.RecordLogin(resultLabel(err))
	return result, err
}

func (s *Service) login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if strings.TrimSpace(req.Username) == "" && strings.TrimSpace(req.Email) == "" {
		return nil, ErrUsernameOrEmailRequired
	}
	if req.Password == "" {
		return nil, ErrPasswordRequired
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken, s.now().Add(pair.RefreshTTL)); err != nil {
		return nil, err
	}

	return &LoginResult{User: user.Sanitized(), TokenPair: *pair}, nil
}

// Refresh exchanges the stored refresh token for a new pair. The swap is a
// conditional update, so a token can be exchanged at most once.
func (s *Service) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	pair, err := s.refresh(ctx, presented)
	s.recorder.RecordRefresh(resultLabel(err))
	return pair, err
}

func (s *Service) refresh(ctx context.Context, presented string) (*TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, ErrUnauthorized
	}

	claims, err := s.tokens.Verify(presented, jwtsvc.Refresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		log.Printf("refresh_token_reuse user_id=%d", user.ID)
		return nil, ErrRefreshTokenReused
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}
	rotated, err := s.users.RotateRefreshToken(ctx, user.ID, presented, pair.RefreshToken, s.now().Add(pair.RefreshTTL))
	if err != nil {
		return nil, err
	}
	if !rotated {
		log.Printf("refresh_token_reuse user_id=%d concurrent=true", user.ID)
		return nil, ErrRefreshTokenReused
	}
	return pair, nil
}

// Logout drops the stored refresh token. Repeating it is a no-op.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return err
	}
	s.recorder.RecordLogout()
	return nil
}

// ChangePassword leaves the stored refresh token in place.
func (s *Service) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) error {
	if req.OldPassword == "" || req.NewPassword == "" {
		return ErrPasswordsRequired
	}
	if len(req.NewPassword) > password.MaxLength {
		return ErrPasswordTooLong
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !password.Verify(req.OldPassword, user.PasswordHash) {
		return ErrInvalidOldPassword
	}

	hash, err := s.hash(req.NewPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "Something went wrong while changing the password", err)
	}
	if _, err := s.users.UpdateFields(ctx, userID, domain.UserFields{PasswordHash: &hash}, true); err != nil {
		return err
	}
	return nil
}

func (s *Service) issuePair(userID int64) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Something went wrong while generating tokens", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Something went wrong while generating tokens", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    s.tokens.AccessTTL(),
		RefreshTTL:   s.tokens.RefreshTTL(),
	}, nil
}

func resultLabel(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	return string(apperr.KindOf(err))
}
