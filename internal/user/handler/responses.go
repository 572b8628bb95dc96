package handler

import (
	"time"

	"acceso/internal/user/models"
)

// HTTP response DTOs. The password hash never leaves the service.

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	PersonID  string    `json:"person_id"`
	RoleID    string    `json:"role_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserListResponse struct {
	Users []*UserResponse `json:"users"`
	Count int             `json:"count"`
}

type LoginResponse struct {
	User *UserResponse `json:"user"`
}

type ResetPasswordResponse struct {
	// TemporaryPassword is returned exactly once; it is not retrievable later.
	TemporaryPassword string `json:"temporary_password"`
}

func toUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		PersonID:  u.PersonID.String(),
		RoleID:    u.RoleID.String(),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserListResponse(users []*models.User) *UserListResponse {
	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return &UserListResponse{Users: out, Count: len(out)}
}
