package auth

import "time"

// Account status values.
const (
	StatusDisabled = 0
	StatusEnabled  = 1
)

// Account represents an authenticable principal.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Nickname     string    `json:"nickname"`
	Email        string    `json:"email"`
	Status       int       `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Enabled reports whether the account may log in.
func (a *Account) Enabled() bool {
	return a != nil && a.Status == StatusEnabled
}

// TokenPayload is handed to clients after login.
type TokenPayload struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// LoginResult bundles the authenticated account with its token.
type LoginResult struct {
	Account *Account     `json:"account"`
	Token   TokenPayload `json:"token"`
}

// Profile is the account as seen by its owner.
type Profile struct {
	*Account
	Roles []string `json:"roles"`
}

// Registration carries the fields accepted at sign-up.
type Registration struct {
	Username string
	Password string
	Nickname string
	Email    string
}
