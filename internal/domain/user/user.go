package user

import (
	"errors"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"` // never expose hash in JSON
	Name         string    `json:"name" bson:"name"`
	Role         string    `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

type SignUpRequest struct {
	Name     string `form:"username" json:"username" binding:"required,min=2,max=80"`
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required"`
}

type UpdateRoleRequest struct {
	UserID  string `form:"user_id" binding:"required"`
	NewRole string `form:"new_role" binding:"required,oneof=user admin"`
}

type DeleteRequest struct {
	UserID string `form:"user_id" binding:"required"`
}
