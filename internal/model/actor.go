package model

import "strings"

// Actor is the authenticated user performing an operation. It is always
// passed explicitly; nothing looks the current actor up globally.
type Actor struct {
	ID        int    `json:"id"`
	Role      Role   `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AccountID int    `json:"accountId"`
}

// Name returns the display name of the actor.
func (a Actor) Name() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Can reports whether the actor's role grants the permission.
func (a Actor) Can(p Permission) bool {
	return a.Role.Can(p)
}

// Sender returns the message authorship record for the actor.
func (a Actor) Sender() Sender {
	return Sender{ID: a.ID, Name: a.Name(), Role: a.Role}
}
