package users

import "time"

// User is an account as seen by administrators.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname"`
	Email     string    `json:"email"`
	Status    int       `json:"status"`
	RoleIDs   []int64   `json:"roleIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUser carries the fields an administrator supplies when creating an account.
type NewUser struct {
	Username     string
	PasswordHash string
	Nickname     string
	Email        string
	Status       int
	RoleIDs      []int64
}

// ListFilter narrows a user listing.
type ListFilter struct {
	Keyword string
	Status  *int
}
