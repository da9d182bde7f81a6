package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tubeauth/internal/domain"
	"tubeauth/internal/pkg/apperr"
	"tubeauth/internal/pkg/validator"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const defaultTimeout = 5 * time.Second

// UserRepository is the identity store. Every call runs under the
// repository timeout; store failures surface as apperr.KindUnavailable.
type UserRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db, timeout: defaultTimeout}
}

// WithTimeout returns a copy of the repository using d as the per-call bound.
func (r *UserRepository) WithTimeout(d time.Duration) *UserRepository {
	if d <= 0 {
		d = defaultTimeout
	}
	return &UserRepository{db: r.db, timeout: d}
}

type userModel struct {
	ID                    int64      `gorm:"column:id;primaryKey"`
	Username              string     `gorm:"column:username;size:64;uniqueIndex;not null"`
	Email                 string     `gorm:"column:email;size:255;uniqueIndex;not null"`
	Fullname              string     `gorm:"column:fullname;size:255;not null"`
	AvatarURL             *string    `gorm:"column:avatar_url"`
	CoverImageURL         *string    `gorm:"column:cover_image_url"`
	PasswordHash          string     `gorm:"column:password_hash;not null"`
	RefreshToken          *string    `gorm:"column:refresh_token"`
	RefreshTokenExpiresAt *time.Time `gorm:"column:refresh_token_expires_at;index"`
	CreatedAt             time.Time  `gorm:"column:created_at"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

// AutoMigrate creates or updates the users table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userModel{})
}

func toDomainUser(m userModel) *domain.User {
	var avatar, cover string
	if m.AvatarURL != nil {
		avatar = *m.AvatarURL
	}
	if m.CoverImageURL != nil {
		cover = *m.CoverImageURL
	}

	return &domain.User{
		ID:            m.ID,
		Username:      m.Username,
		Email:         m.Email,
		Fullname:      m.Fullname,
		AvatarURL:     avatar,
		CoverImageURL: cover,
		PasswordHash:  m.PasswordHash,
		RefreshToken:  m.RefreshToken,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	var avatar, cover *string
	if u.AvatarURL != "" {
		v := u.AvatarURL
		avatar = &v
	}
	if u.CoverImageURL != "" {
		v := u.CoverImageURL
		cover = &v
	}

	return userModel{
		ID:            u.ID,
		Username:      strings.ToLower(strings.TrimSpace(u.Username)),
		Email:         strings.ToLower(strings.TrimSpace(u.Email)),
		Fullname:      strings.TrimSpace(u.Fullname),
		AvatarURL:     avatar,
		CoverImageURL: cover,
		PasswordHash:  u.PasswordHash,
		RefreshToken:  u.RefreshToken,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (r *UserRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	m := toUserModel(u)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return mapError("create user", err)
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var m userModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, mapError("get user by id", err)
	}
	return toDomainUser(m), nil
}

// GetByUsernameOrEmail matches either field; empty arguments are ignored.
func (r *UserRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	q, ok := usernameOrEmail(r.db.WithContext(ctx), username, email)
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "User does not exist")
	}

	var m userModel
	if err := q.First(&m).Error; err != nil {
		return nil, mapError("get user by username or email", err)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	q, ok := usernameOrEmail(r.db.WithContext(ctx).Model(&userModel{}), username, email)
	if !ok {
		return false, nil
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, mapError("check user exists", err)
	}
	return count > 0, nil
}

func usernameOrEmail(db *gorm.DB, username, email string) (*gorm.DB, bool) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))

	switch {
	case username != "" && email != "":
		return db.Where("username = ? OR LOWER(email) = ?", username, email), true
	case username != "":
		return db.Where("username = ?", username), true
	case email != "":
		return db.Where("LOWER(email) = ?", email), true
	default:
		return nil, false
	}
}

// UpdateFields applies a partial update and returns the stored user.
// skipValidation writes the columns directly, without field validation or
// the updated_at bump.
func (r *UserRepository) UpdateFields(ctx context.Context, id int64, fields domain.UserFields, skipValidation bool) (*domain.User, error) {
	if fields.IsEmpty() {
		return r.GetByID(ctx, id)
	}
	if !skipValidation {
		if errs := validator.Validate(fields); errs != nil {
			return nil, apperr.New(apperr.KindInvalidInput, "Invalid field values", validator.Flatten(errs)...)
		}
	}

	updates := map[string]any{}
	if fields.Fullname != nil {
		updates["fullname"] = strings.TrimSpace(*fields.Fullname)
	}
	if fields.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*fields.Email))
	}
	if fields.AvatarURL != nil {
		updates["avatar_url"] = *fields.AvatarURL
	}
	if fields.CoverImageURL != nil {
		updates["cover_image_url"] = *fields.CoverImageURL
	}
	if fields.PasswordHash != nil {
		updates["password_hash"] = *fields.PasswordHash
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id)
	var tx *gorm.DB
	if skipValidation {
		tx = q.UpdateColumns(updates)
	} else {
		tx = q.Updates(updates)
	}
	if tx.Error != nil {
		return nil, mapError("update user fields", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindNotFound, "User does not exist")
	}

	var m userModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, mapError("reload user", err)
	}
	return toDomainUser(m), nil
}

// SetRefreshToken stores token as the only valid refresh token for the user.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"refresh_token":            token,
			"refresh_token_expires_at": expiresAt.UTC(),
		})
	if tx.Error != nil {
		return mapError("set refresh token", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "User does not exist")
	}
	return nil
}

// RotateRefreshToken replaces presented with next in a single conditional
// update. It reports false when the stored token no longer equals presented.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id int64, presented, next string, expiresAt time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ? AND refresh_token = ?", id, presented).
		UpdateColumns(map[string]any{
			"refresh_token":            next,
			"refresh_token_expires_at": expiresAt.UTC(),
		})
	if tx.Error != nil {
		return false, mapError("rotate refresh token", tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

// ClearRefreshToken drops the stored refresh token. Clearing an already
// cleared token is not an error.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"refresh_token":            nil,
			"refresh_token_expires_at": nil,
		}).Error
	return mapError("clear refresh token", err)
}

// ClearExpiredRefreshTokens drops stored refresh tokens that expired before now.
func (r *UserRepository) ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx := r.db.WithContext(ctx).Model(&userModel{}).
		Where("refresh_token IS NOT NULL AND refresh_token_expires_at < ?", now.UTC()).
		UpdateColumns(map[string]any{
			"refresh_token":            nil,
			"refresh_token_expires_at": nil,
		})
	if tx.Error != nil {
		return 0, mapError("clear expired refresh tokens", tx.Error)
	}
	return tx.RowsAffected, nil
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.KindNotFound, "User does not exist")
	}
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, "User with email or username already exists", err)
	}
	return apperr.Wrap(apperr.KindUnavailable, "Service temporarily unavailable", fmt.Errorf("%s: %w", op, err))
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
