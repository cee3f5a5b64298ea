package model

import "time"

// OperatorRole distinguishes platform admins from company operators.
type OperatorRole string

const (
	OperatorRoleAdmin   OperatorRole = "admin"
	OperatorRoleCompany OperatorRole = "company"
)

// Operator is a company or admin user managing drives.
type Operator struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	Role         OperatorRole `json:"role"`
	CreatedAt    time.Time    `json:"created_at"`
}

// OperatorLoginRequest is the payload for operator authentication.
type OperatorLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// OperatorLoginResponse is returned after successful operator login.
type OperatorLoginResponse struct {
	Token    string   `json:"token"`
	Operator Operator `json:"operator"`
}
