package models

import "time"

type UserRole string

const (
	RoleParticipant UserRole = "participant"
	RoleAmbassador  UserRole = "ambassador"
	RoleAdmin       UserRole = "admin"
)

// Valid сообщает, входит ли роль в закрытый набор ролей системы.
func (r UserRole) Valid() bool {
	switch r {
	case RoleParticipant, RoleAmbassador, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID         int       `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	University string    `json:"university"`
	StudentID  *string   `json:"student_id,omitempty"`
	Role       UserRole  `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

type UserFilter struct {
	Role   *UserRole
	Search string
	Page   int
	Limit  int
}

type UserListResponse struct {
	Users      []User `json:"users"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}
