package auth

import (
	"context"
	"errors"
	"mime/multipart"
	"testing"
	"time"

	"tubeauth/internal/domain"
	"tubeauth/internal/metrics"
	"tubeauth/internal/pkg/apperr"
	"tubeauth/internal/pkg/jwt"
	"tubeauth/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Mock User Repository implementing the interface
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	if args.Error(0) == nil {
		u.ID = 1
	}
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) UpdateFields(ctx context.Context, id int64, fields domain.UserFields, skipValidation bool) (*domain.User, error) {
	args := m.Called(ctx, id, fields, skipValidation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) SetRefreshToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	args := m.Called(ctx, id, token, expiresAt)
	return args.Error(0)
}

func (m *mockUserRepo) RotateRefreshToken(ctx context.Context, id int64, presented, next string, expiresAt time.Time) (bool, error) {
	args := m.Called(ctx, id, presented, next, expiresAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) ClearRefreshToken(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockMedia struct {
	mock.Mock
}

func (m *mockMedia) Upload(ctx context.Context, file *multipart.FileHeader) (string, error) {
	args := m.Called(ctx, file)
	return args.String(0), args.Error(1)
}

type loginCounter struct {
	metrics.Nop
	logins    []string
	refreshes []string
}

func (r *loginCounter) RecordLogin(result string)   { r.logins = append(r.logins, result) }
func (r *loginCounter) RecordRefresh(result string) { r.refreshes = append(r.refreshes, result) }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, users *mockUserRepo, media *mockMedia, rec metrics.Recorder) (*Service, *jwt.Service) {
	t.Helper()
	tokens := jwt.New(jwt.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    240 * time.Hour,
	}, jwt.WithClock(func() time.Time { return fixedNow }))

	svc := NewService(users, media, tokens, rec)
	svc.hash = func(p string) (string, error) { return password.HashWithCost(p, bcrypt.MinCost) }
	svc.now = func() time.Time { return fixedNow }
	return svc, tokens
}

func hashed(t *testing.T, plain string) string {
	t.Helper()
	h, err := password.HashWithCost(plain, bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

func TestService_Register_Success(t *testing.T) {
	users := new(mockUserRepo)
	media := new(mockMedia)
	svc, _ := newTestService(t, users, media, nil)

	avatar := &multipart.FileHeader{Filename: "a.png", Size: 10}
	users.On("ExistsByUsernameOrEmail", mock.Anything, "al", "al@x.com").Return(false, nil)
	media.On("Upload", mock.Anything, avatar).Return("/static/uploads/a.png", nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Username == "al" && u.Email == "al@x.com" && u.AvatarURL == "/static/uploads/a.png" &&
			u.CoverImageURL == "" && password.Verify("pw1", u.PasswordHash)
	})).Return(nil)

	user, err := svc.Register(context.Background(), RegisterRequest{
		Fullname: " Al Gore ",
		Email:    "AL@x.com",
		Username: " AL",
		Password: "pw1",
		Avatar:   avatar,
	})

	require.NoError(t, err)
	assert.Equal(t, "Al Gore", user.Fullname)
	assert.Empty(t, user.PasswordHash)
	users.AssertExpectations(t)
	media.AssertExpectations(t)
}

func TestService_Register_RequiredFields(t *testing.T) {
	svc, _ := newTestService(t, new(mockUserRepo), new(mockMedia), nil)

	_, err := svc.Register(context.Background(), RegisterRequest{Fullname: "Al", Email: "al@x.com", Username: "  ", Password: "pw"})
	assert.ErrorIs(t, err, ErrAllFieldsRequired)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestService_Register_InvalidEmail(t *testing.T) {
	svc, _ := newTestService(t, new(mockUserRepo), new(mockMedia), nil)

	_, err := svc.Register(context.Background(), RegisterRequest{Fullname: "Al", Email: "not-an-email", Username: "al", Password: "pw"})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Contains(t, err.(*apperr.Error).Errors, "Email: email")
}

func TestService_Register_Duplicate(t *testing.T) {
	users := new(mockUserRepo)
	media := new(mockMedia)
	svc, _ := newTestService(t, users, media, nil)

	users.On("ExistsByUsernameOrEmail", mock.Anything, "al", "al@x.com").Return(true, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Fullname: "Al", Email: "al@x.com", Username: "al", Password: "pw1",
		Avatar: &multipart.FileHeader{Filename: "a.png", Size: 1},
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	media.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Register_AvatarRequired(t *testing.T) {
	users := new(mockUserRepo)
	svc, _ := newTestService(t, users, new(mockMedia), nil)

	users.On("ExistsByUsernameOrEmail", mock.Anything, "al", "al@x.com").Return(false, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{Fullname: "Al", Email: "al@x.com", Username: "al", Password: "pw1"})
	assert.ErrorIs(t, err, ErrAvatarRequired)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Register_UploadFailure(t *testing.T) {
	users := new(mockUserRepo)
	media := new(mockMedia)
	svc, _ := newTestService(t, users, media, nil)

	users.On("ExistsByUsernameOrEmail", mock.Anything, "al", "al@x.com").Return(false, nil)
	media.On("Upload", mock.Anything, mock.Anything).Return("", apperr.New(apperr.KindUnavailable, "Error while uploading"))

	_, err := svc.Register(context.Background(), RegisterRequest{
		Fullname: "Al", Email: "al@x.com", Username: "al", Password: "pw1",
		Avatar: &multipart.FileHeader{Filename: "a.png", Size: 1},
	})
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Login_Success(t *testing.T) {
	users := new(mockUserRepo)
	rec := &loginCounter{}
	svc, tokens := newTestService(t, users, new(mockMedia), rec)

	existing := &domain.User{ID: 10, Username: "al", PasswordHash: hashed(t, "pw1")}
	users.On("GetByUsernameOrEmail", mock.Anything, "al", "").Return(existing, nil)

	var persisted string
	users.On("SetRefreshToken", mock.Anything, int64(10), mock.AnythingOfType("string"), fixedNow.Add(240*time.Hour)).
		Run(func(args mock.Arguments) { persisted = args.String(2) }).
		Return(nil)

	result, err := svc.Login(context.Background(), LoginRequest{Username: "al", Password: "pw1"})
	require.NoError(t, err)

	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, persisted, result.RefreshToken)
	assert.Empty(t, result.User.PasswordHash)
	assert.Nil(t, result.User.RefreshToken)

	claims, err := tokens.Verify(result.AccessToken, jwt.Access)
	require.NoError(t, err)
	assert.Equal(t, int64(10), claims.UserID)
	assert.Equal(t, []string{"ok"}, rec.logins)
}

func TestService_Login_WrongPassword(t *testing.T) {
	users := new(mockUserRepo)
	rec := &loginCounter{}
	svc, _ := newTestService(t, users, new(mockMedia), rec)

	users.On("GetByUsernameOrEmail", mock.Anything, "al", "").
		Return(&domain.User{ID: 10, PasswordHash: hashed(t, "pw1")}, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "al", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	users.AssertNotCalled(t, "SetRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []string{string(apperr.KindInvalidCredentials)}, rec.logins)
}

func TestService_Login_UnknownUser(t *testing.T) {
	users := new(mockUserRepo)
	svc, _ := newTestService(t, users, new(mockMedia), nil)

	users.On("GetByUsernameOrEmail", mock.Anything, "", "ghost@x.com").
		Return(nil, apperr.New(apperr.KindNotFound, "User does not exist"))

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@x.com", Password: "pw"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Login_MissingFields(t *testing.T) {
	svc, _ := newTestService(t, new(mockUserRepo), new(mockMedia), nil)

	_, err := svc.Login(context.Background(), LoginRequest{Password: "pw"})
	assert.ErrorIs(t, err, ErrUsernameOrEmailRequired)

	_, err = svc.Login(context.Background(), LoginRequest{Username: "al"})
	assert.ErrorIs(t, err, ErrPasswordRequired)
}

func TestService_Refresh_Rotates(t *testing.T) {
	users := new(mockUserRepo)
	rec := &loginCounter{}
	svc, tokens := newTestService(t, users, new(mockMedia), rec)

	current, err := tokens.IssueRefreshToken(10)
	require.NoError(t, err)
	users.On("GetByID", mock.Anything, int64(10)).Return(&domain.User{ID: 10, RefreshToken: &current}, nil)
	users.On("RotateRefreshToken", mock.Anything, int64(10), current, mock.AnythingOfType("string"), fixedNow.Add(240*time.Hour)).
		Return(true, nil)

	pair, err := svc.Refresh(context.Background(), current)
	require.NoError(t, err)
	assert.NotEqual(t, current, pair.RefreshToken)
	assert.Equal(t, 15*time.Minute, pair.AccessTTL)
	assert.Equal(t, []string{"ok"}, rec.refreshes)
}

func TestService_Refresh_MismatchIsReuse(t *testing.T) {
	users := new(mockUserRepo)
	svc, tokens := newTestService(t, users, new(mockMedia), nil)

	stale, err := tokens.IssueRefreshToken(10)
	require.NoError(t, err)
	current, err := tokens.IssueRefreshToken(10)
	require.NoError(t, err)
	users.On("GetByID", mock.Anything, int64(10)).Return(&domain.User{ID: 10, RefreshToken: &current}, nil)

	_, err = svc.Refresh(context.Background(), stale)
	assert.ErrorIs(t, err, ErrRefreshTokenReused)
	assert.Equal(t, 401, apperr.HTTPStatus(apperr.KindOf(err)))
	users.AssertNotCalled(t, "RotateRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Refresh_AfterLogout(t *testing.T) {
	users := new(mockUserRepo)
	svc, tokens := newTestService(t, users, new(mockMedia), nil)

	token, err := tokens.IssueRefreshToken(10)
	require.NoError(t, err)
	users.On("GetByID", mock.Anything, int64(10)).Return(&domain.User{ID: 10}, nil)

	_, err = svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, ErrRefreshTokenReused)
}

func TestService_Refresh_LostRace(t *testing.T) {
	users := new(mockUserRepo)
	svc, tokens := newTestService(t, users, new(mockMedia), nil)

	current, err := tokens.IssueRefreshToken(10)
	require.NoError(t, err)
	users.On("GetByID", mock.Anything, int64(10)).Return(&domain.User{ID: 10, RefreshToken: &current}, nil)
	users.On("RotateRefreshToken", mock.Anything, int64(10), current, mock.Anything, mock.Anything).Return(false, nil)

	_, err = svc.Refresh(context.Background(), current)
	assert.ErrorIs(t, err, apperr.ErrTokenReused)
}

func TestService_Refresh_BadTokens(t *testing.T) {
	users := new(mockUserRepo)
	svc, tokens := newTestService(t, users, new(mockMedia), nil)

	access, err := tokens.IssueAccessToken(10)
	require.NoError(t, err)
	refresh, err := tokens.IssueRefreshToken(10)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	for _, token := range []string{"garbage", access, refresh + "x"} {
		_, err = svc.Refresh(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	}
	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestService_Refresh_UserGone(t *testing.T) {
	users := new(mockUserRepo)
	svc, tokens := newTestService(t, users, new(mockMedia), nil)

	token, err := tokens.IssueRefreshToken(10)
	require.NoError(t, err)
	users.On("GetByID", mock.Anything, int64(10)).Return(nil, apperr.New(apperr.KindNotFound, "User does not exist"))

	_, err = svc.Refresh(context.Background(), token)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Logout(t *testing.T) {
	users := new(mockUserRepo)
	svc, _ := newTestService(t, users, new(mockMedia), nil)

	users.On("ClearRefreshToken", mock.Anything, int64(10)).Return(nil).Twice()

	require.NoError(t, svc.Logout(context.Background(), 10))
	require.NoError(t, svc.Logout(context.Background(), 10))
	users.AssertExpectations(t)
}

func TestService_Logout_StoreFailure(t *testing.T) {
	users := new(mockUserRepo)
	svc, _ := newTestService(t, users, new(mockMedia), nil)

	users.On("ClearRefreshToken", mock.Anything, int64(10)).
		Return(apperr.Wrap(apperr.KindUnavailable, "Service temporarily unavailable", errors.New("timeout")))

	assert.ErrorIs(t, svc.Logout(context.Background(), 10), apperr.ErrUnavailable)
}

func TestService_ChangePassword(t *testing.T) {
	users := new(mockUserRepo)
	svc, _ := newTestService(t, users, new(mockMedia), nil)

	users.On("GetByID", mock.Anything, int64(10)).Return(&domain.User{ID: 10, PasswordHash: hashed(t, "old")}, nil)
	users.On("UpdateFields", mock.Anything, int64(10), mock.MatchedBy(func(f domain.UserFields) bool {
		return f.PasswordHash != nil && password.Verify("new", *f.PasswordHash) && f.Email == nil
	}), true).Return(&domain.User{ID: 10}, nil)

	err := svc.ChangePassword(context.Background(), 10, ChangePasswordRequest{OldPassword: "old", NewPassword: "new"})
	require.NoError(t, err)
	users.AssertExpectations(t)
}

func TestService_ChangePassword_WrongOld(t *testing.T) {
	users := new(mockUserRepo)
	svc, _ := newTestService(t, users, new(mockMedia), nil)

	users.On("GetByID", mock.Anything, int64(10)).Return(&domain.User{ID: 10, PasswordHash: hashed(t, "old")}, nil)

	err := svc.ChangePassword(context.Background(), 10, ChangePasswordRequest{OldPassword: "nope", NewPassword: "new"})
	assert.ErrorIs(t, err, ErrInvalidOldPassword)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	users.AssertNotCalled(t, "UpdateFields", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ChangePassword_Validation(t *testing.T) {
	svc, _ := newTestService(t, new(mockUserRepo), new(mockMedia), nil)

	err := svc.ChangePassword(context.Background(), 10, ChangePasswordRequest{OldPassword: "old"})
	assert.ErrorIs(t, err, ErrPasswordsRequired)

	long := make([]byte, password.MaxLength+1)
	for i := range long {
		long[i] = 'a'
	}
	err = svc.ChangePassword(context.Background(), 10, ChangePasswordRequest{OldPassword: "old", NewPassword: string(long)})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestService_ChangePassword_UserVanished(t *testing.T) {
	users := new(mockUserRepo)
	svc, _ := newTestService(t, users, new(mockMedia), nil)

	users.On("GetByID", mock.Anything, int64(10)).Return(&domain.User{ID: 10, PasswordHash: hashed(t, "old")}, nil)
	users.On("UpdateFields", mock.Anything, int64(10), mock.Anything, true).
		Return(nil, apperr.New(apperr.KindNotFound, "User does not exist"))

	err := svc.ChangePassword(context.Background(), 10, ChangePasswordRequest{OldPassword: "old", NewPassword: "new"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
