package models

import "strings"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the persisted account record. PasswordHash normally holds a bcrypt
// hash; records written before hashing was introduced may carry the plaintext
// in PasswordHash or in the legacy Password field until their next login.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Password     string `json:"password,omitempty"`
	Role         Role   `json:"role"`
	MustReset    bool   `json:"mustReset"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// StoredSecret returns whatever credential is on file for the user.
func (u *User) StoredSecret() string {
	if u.PasswordHash != "" {
		return u.PasswordHash
	}
	return u.Password
}

func (u *User) HasEmail(email string) bool {
	return u.Email != "" && strings.EqualFold(u.Email, strings.TrimSpace(email))
}

// UserSummary is the shape returned over HTTP; it never carries credentials.
type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	MustReset bool   `json:"mustReset"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		MustReset: u.MustReset,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Token is an issued session. Role is copied from the user when the token is
// issued and is not refreshed when the user's role later changes.
type Token struct {
	Token     string `json:"token"`
	UserID    string `json:"userId"`
	Role      Role   `json:"role"`
	ExpiresAt int64  `json:"expiresAt"` // epoch milliseconds
}

func (t Token) ExpiredAt(nowMs int64) bool {
	return t.ExpiresAt <= nowMs
}
