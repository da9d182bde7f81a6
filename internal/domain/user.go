package domain

import "time"

// User is the stored identity. PasswordHash and RefreshToken never leave the
// service layer; use Sanitized before handing a user to a handler.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Fullname      string    `json:"fullname"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	PasswordHash  string    `json:"-"`
	RefreshToken  *string   `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Sanitized returns a copy without credentials.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	out.RefreshToken = nil
	return &out
}

// UserFields is a partial update. Nil fields are left untouched.
type UserFields struct {
	Fullname      *string `validate:"omitempty,min=1,max=255"`
	Email         *string `validate:"omitempty,email,max=255"`
	AvatarURL     *string `validate:"omitempty,max=2048"`
	CoverImageURL *string `validate:"omitempty,max=2048"`
	PasswordHash  *string `validate:"omitempty,min=1"`
}

func (f UserFields) IsEmpty() bool {
	return f.Fullname == nil && f.Email == nil && f.AvatarURL == nil && f.CoverImageURL == nil && f.PasswordHash == nil
}
