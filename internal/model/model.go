package model

import "time"

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStaff   = "staff"
	RoleStudent = "student"
)

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTeacher, RoleStaff, RoleStudent:
		return true
	default:
		return false
	}
}

type User struct {
	ID              string
	Name            string
	PhoneNumber     string
	Email           *string
	PasswordHash    string
	Role            string
	SchoolID        *string
	Gender          *string
	AvatarURL       *string
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
}

type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	ExpiresAt    time.Time
	RefreshToken string
	UserAgent    string
	SSOAgent     string
	CreatedAt    time.Time
}

type AllowListEntry struct {
	ID        string
	Phone     string
	CreatedBy string
	CreatedAt time.Time
	DeletedAt *time.Time
}
