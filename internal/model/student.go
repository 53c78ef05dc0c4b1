package model

import (
	"encoding/json"
	"time"
)

// EducationLevel is a level of study a student can declare and complete.
type EducationLevel string

const (
	LevelGradeTen    EducationLevel = "GRADE_10"
	LevelGradeTwelve EducationLevel = "GRADE_12"
	LevelDiploma     EducationLevel = "DIPLOMA"
	LevelBachelors   EducationLevel = "BACHELORS"
	LevelMasters     EducationLevel = "MASTERS"
	LevelDoctorate   EducationLevel = "DOCTORATE"
)

// Student is a prospective study-abroad applicant. The nested profile
// sections are nil until the matching sub-form has been saved.
type Student struct {
	ID                    string                 `json:"id"`
	FirstName             string                 `json:"firstName"`
	LastName              string                 `json:"lastName"`
	Email                 string                 `json:"email"`
	Phone                 string                 `json:"phone"`
	CounselorID           *int                   `json:"counselorId,omitempty"`
	PersonalInfo          *PersonalInfo          `json:"personalInfo"`
	AcademicQualification *AcademicQualification `json:"academicQualification"`
	Documents             *Documents             `json:"documents"`
	WorkExperiences       []WorkExperience       `json:"workExperiences"`
	StatusMessage         string                 `json:"statusMessage"`
	CreatedAt             time.Time              `json:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt"`
}

// PersonalInfo is the first profile stage.
type PersonalInfo struct {
	DateOfBirth    string `json:"dateOfBirth" binding:"required,datetime=2006-01-02"`
	Gender         string `json:"gender" binding:"required,oneof=MALE FEMALE OTHER"`
	Nationality    string `json:"nationality" binding:"required,max=100"`
	PassportNumber string `json:"passportNumber" binding:"omitempty,max=20"`
	Address        string `json:"address" binding:"required,max=255"`
	City           string `json:"city" binding:"required,max=100"`
	Country        string `json:"country" binding:"required,max=100"`
}

// LevelOfStudy records one completed (or ongoing) level of education.
type LevelOfStudy struct {
	Institution      string `json:"institution" binding:"required,max=255"`
	Program          string `json:"program" binding:"omitempty,max=255"`
	Grade            string `json:"grade" binding:"required,max=20"`
	YearOfCompletion int    `json:"yearOfCompletion" binding:"omitempty,min=1950,max=2100"`
}

// AcademicQualification is the second profile stage.
type AcademicQualification struct {
	HighestLevelOfEducation EducationLevel                  `json:"highestLevelOfEducation" binding:"required,education_level"`
	LevelOfStudies          map[EducationLevel]LevelOfStudy `json:"levelOfStudies" binding:"required,min=1,dive,keys,education_level,endkeys"`
}

// Documents is the third profile stage. Values are stored filenames
// returned by the file storage endpoint.
type Documents struct {
	CV                   string `json:"cv"`
	GradeTenMarksheet    string `json:"gradeTenMarksheet"`
	GradeTwelveMarksheet string `json:"gradeTwelveMarksheet"`
	Passport             string `json:"passport"`
	IELTS                string `json:"ielts"`
	RecommendationLetter string `json:"recommendationLetter"`
	StatementOfPurpose   string `json:"sop,omitempty"`
	ExperienceLetter     string `json:"experienceLetter,omitempty"`
}

// Missing returns the JSON names of required documents that are empty.
func (d *Documents) Missing() []string {
	required := []struct {
		name  string
		value string
	}{
		{"cv", d.CV},
		{"gradeTenMarksheet", d.GradeTenMarksheet},
		{"gradeTwelveMarksheet", d.GradeTwelveMarksheet},
		{"passport", d.Passport},
		{"ielts", d.IELTS},
		{"recommendationLetter", d.RecommendationLetter},
	}
	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	return missing
}

// WorkExperience is an optional entry on the student profile.
type WorkExperience struct {
	Company     string `json:"company" binding:"required,max=255"`
	Position    string `json:"position" binding:"required,max=255"`
	StartDate   string `json:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate     string `json:"endDate" binding:"omitempty,datetime=2006-01-02"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// DecodeSection decodes a stored JSON profile section. Anything that is
// empty, null, or not shaped like T yields nil so the section counts as absent.
func DecodeSection[T any](raw []byte) *T {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// CreateLeadRequest creates a bare student record from a lead.
type CreateLeadRequest struct {
	FirstName string `json:"firstName" binding:"required,min=1,max=100"`
	LastName  string `json:"lastName" binding:"omitempty,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Phone     string `json:"phone" binding:"required,min=6,max=20"`
}

// RegisterStudentRequest creates a student with every profile section at once.
type RegisterStudentRequest struct {
	CreateLeadRequest
	PersonalInfo          *PersonalInfo          `json:"personalInfo" binding:"required"`
	AcademicQualification *AcademicQualification `json:"academicQualification" binding:"required"`
	Documents             *Documents             `json:"documents" binding:"omitempty"`
	WorkExperiences       []WorkExperience       `json:"workExperiences" binding:"omitempty,dive"`
}

// UpdateStudentRequest edits the identity fields of a student.
type UpdateStudentRequest struct {
	FirstName   string `json:"firstName" binding:"required,min=1,max=100"`
	LastName    string `json:"lastName" binding:"omitempty,max=100"`
	Email       string `json:"email" binding:"required,email,max=255"`
	Phone       string `json:"phone" binding:"required,min=6,max=20"`
	CounselorID *int   `json:"counselorId" binding:"omitempty,min=1"`
}

// UpdateWorkExperiencesRequest replaces the work experience list.
type UpdateWorkExperiencesRequest struct {
	WorkExperiences []WorkExperience `json:"workExperiences" binding:"dive"`
}
