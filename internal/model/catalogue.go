package model

import "time"

// University is an institution students can apply to.
type University struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"createdAt"`
}

// Course is a program offered by a university.
type Course struct {
	ID             string    `json:"id"`
	UniversityID   string    `json:"universityId"`
	UniversityName string    `json:"universityName"`
	Name           string    `json:"name"`
	Level          string    `json:"level"`
	ApplicationFee float64   `json:"applicationFee"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Ref returns the denormalized reference stored on applications.
func (c *Course) Ref() CourseRef {
	return CourseRef{ID: c.ID, Name: c.Name, ApplicationFee: c.ApplicationFee}
}

// CreateUniversityRequest is the payload for adding a university.
type CreateUniversityRequest struct {
	Name    string `json:"name" binding:"required,min=2,max=255"`
	Country string `json:"country" binding:"required,min=2,max=100"`
}

// CreateCourseRequest is the payload for adding a course.
type CreateCourseRequest struct {
	UniversityID   string  `json:"universityId" binding:"required,uuid"`
	Name           string  `json:"name" binding:"required,min=2,max=255"`
	Level          string  `json:"level" binding:"required,education_level"`
	ApplicationFee float64 `json:"applicationFee" binding:"min=0"`
	Currency       string  `json:"currency" binding:"required,len=3"`
}
