package lifecycle

import (
	"errors"
	"fmt"

	"github.com/stemsi/abroad-backend/internal/model"
)

// ErrEmptyCatalogue is returned when a status catalogue has no entries.
var ErrEmptyCatalogue = errors.New("status catalogue is empty")

// StatusCatalogue is the ordered set of statuses an application may hold.
// Transitions are unrestricted: any member may follow any other.
type StatusCatalogue struct {
	statuses []model.ApplicationStatus
	index    map[model.ApplicationStatus]int
}

// NewStatusCatalogue validates and indexes a list of statuses. The first
// status is where new applications start.
func NewStatusCatalogue(statuses []model.ApplicationStatus) (*StatusCatalogue, error) {
	if len(statuses) == 0 {
		return nil, ErrEmptyCatalogue
	}
	c := &StatusCatalogue{
		statuses: make([]model.ApplicationStatus, 0, len(statuses)),
		index:    make(map[model.ApplicationStatus]int, len(statuses)),
	}
	for _, s := range statuses {
		if s == "" {
			return nil, fmt.Errorf("status catalogue: blank status at position %d", len(c.statuses))
		}
		if _, dup := c.index[s]; dup {
			return nil, fmt.Errorf("status catalogue: duplicate status %q", s)
		}
		c.index[s] = len(c.statuses)
		c.statuses = append(c.statuses, s)
	}
	return c, nil
}

// DefaultCatalogue returns the built-in status catalogue.
func DefaultCatalogue() *StatusCatalogue {
	c, _ := NewStatusCatalogue(model.DefaultStatuses)
	return c
}

// Initial is the status assigned to new applications.
func (c *StatusCatalogue) Initial() model.ApplicationStatus {
	return c.statuses[0]
}

// Contains reports whether s is a member of the catalogue.
func (c *StatusCatalogue) Contains(s model.ApplicationStatus) bool {
	_, ok := c.index[s]
	return ok
}

// Statuses returns the catalogue in order.
func (c *StatusCatalogue) Statuses() []model.ApplicationStatus {
	return append([]model.ApplicationStatus(nil), c.statuses...)
}
