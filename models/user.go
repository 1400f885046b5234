package models

import "time"

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleScorer   UserRole = "scorer"
	RoleObserver UserRole = "observer"
)

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
