package users

import "time"

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User is the stored account document.
type User struct {
	ID           string     `bson:"user_id" json:"user_id"`
	Username     string     `bson:"username" json:"username"`
	Email        string     `bson:"email" json:"email"`
	Role         string     `bson:"user_role" json:"user_role"`
	PasswordHash string     `bson:"password_hash" json:"-"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `bson:"deleted_at,omitempty" json:"-"`
}

// Deleted reports whether the account was soft-deleted.
func (u *User) Deleted() bool {
	return u != nil && u.DeletedAt != nil
}

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"user_role,omitempty"`
}

type UpdateProfileInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}
