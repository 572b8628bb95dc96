package handler

import (
	"strings"

	"acceso/internal/user/service"
	id "acceso/pkg/domain"
	dErrors "acceso/pkg/domain-errors"
)

// HTTP request DTOs. Converted to service params before processing.

type CreateUserRequest struct {
	Username string `json:"username"`
	PersonID string `json:"person_id"`
	RoleID   string `json:"role_id"`
	Password string `json:"password"`
}

func (r *CreateUserRequest) Normalize() {
	if r == nil {
		return
	}
	r.Username = strings.TrimSpace(r.Username)
	r.PersonID = strings.TrimSpace(r.PersonID)
	r.RoleID = strings.TrimSpace(r.RoleID)
}

func (r *CreateUserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if r.PersonID == "" {
		return dErrors.New(dErrors.CodeValidation, "person_id is required")
	}
	if r.RoleID == "" {
		return dErrors.New(dErrors.CodeValidation, "role_id is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// ToParams converts the HTTP request to service params.
// Returns an error if an ID is malformed.
func (r *CreateUserRequest) ToParams() (service.CreateParams, error) {
	personID, err := id.ParsePersonID(r.PersonID)
	if err != nil {
		return service.CreateParams{}, dErrors.New(dErrors.CodeBadRequest, "invalid person id")
	}
	roleID, err := id.ParseRoleID(r.RoleID)
	if err != nil {
		return service.CreateParams{}, dErrors.New(dErrors.CodeBadRequest, "invalid role id")
	}
	return service.CreateParams{
		Username: r.Username,
		PersonID: personID,
		RoleID:   roleID,
		Password: r.Password,
	}, nil
}

type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	RoleID   *string `json:"role_id,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

func (r *UpdateUserRequest) Normalize() {
	if r == nil {
		return
	}
	if r.Username != nil {
		trimmed := strings.TrimSpace(*r.Username)
		r.Username = &trimmed
	}
}

func (r *UpdateUserRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Username != nil && *r.Username == "" {
		return dErrors.New(dErrors.CodeValidation, "username cannot be empty")
	}
	return nil
}

// ToParams converts the HTTP request to service params.
func (r *UpdateUserRequest) ToParams() (service.UpdateParams, error) {
	params := service.UpdateParams{
		Username: r.Username,
		Active:   r.Active,
	}
	if r.RoleID != nil {
		roleID, err := id.ParseRoleID(*r.RoleID)
		if err != nil {
			return service.UpdateParams{}, dErrors.New(dErrors.CodeBadRequest, "invalid role id")
		}
		params.RoleID = &roleID
	}
	return params, nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Username = strings.TrimSpace(r.Username)
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	return nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.CurrentPassword == "" {
		return dErrors.New(dErrors.CodeValidation, "current_password is required")
	}
	if r.NewPassword == "" {
		return dErrors.New(dErrors.CodeValidation, "new_password is required")
	}
	return nil
}
