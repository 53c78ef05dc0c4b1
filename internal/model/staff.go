package model

import "time"

// Staff represents a platform user: counselors, verifiers and administrators.
type Staff struct {
	ID           int       `json:"id"`
	AccountID    int       `json:"accountId"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Actor returns the session view of the staff member.
func (s *Staff) Actor() Actor {
	return Actor{
		ID:        s.ID,
		Role:      s.Role,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		AccountID: s.AccountID,
	}
}

// LoginRequest is the payload for staff authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token       string   `json:"token"`
	Staff       Staff    `json:"staff"`
	Permissions []string `json:"permissions"`
}
