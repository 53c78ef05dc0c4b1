// Package lifecycle holds the rules of the student onboarding and
// application workflow: which profile stage a student is in, which parts of
// the workspace that stage unlocks, and how an application moves through its
// status, priority and payment states. Everything here is pure and safe to
// run on both the server and the client.
package lifecycle

import "github.com/stemsi/abroad-backend/internal/model"

// Stage is the derived onboarding phase of a student.
type Stage int

const (
	NeedsPersonalInfo Stage = iota
	NeedsAcademicQualification
	NeedsDocuments
	Complete
)

// String returns the wire name of the stage.
func (s Stage) String() string {
	switch s {
	case NeedsPersonalInfo:
		return "NEEDS_PERSONAL_INFO"
	case NeedsAcademicQualification:
		return "NEEDS_ACADEMIC_QUALIFICATION"
	case NeedsDocuments:
		return "NEEDS_DOCUMENTS"
	case Complete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets a Stage be rendered by encoding/json as its name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StatusMessage is the human readable hint shown next to the student.
// A fully onboarded student has an empty message.
func (s Stage) StatusMessage() string {
	switch s {
	case NeedsPersonalInfo:
		return "Personal information is not completed"
	case NeedsAcademicQualification:
		return "Academic qualification is not completed"
	case NeedsDocuments:
		return "Documents are not uploaded"
	default:
		return ""
	}
}

// ClassifyStage returns the first profile stage the student has not
// completed. A nil student needs everything.
func ClassifyStage(s *model.Student) Stage {
	if s == nil || s.PersonalInfo == nil {
		return NeedsPersonalInfo
	}
	if !academicComplete(s.AcademicQualification) {
		return NeedsAcademicQualification
	}
	if s.Documents == nil || len(s.Documents.Missing()) > 0 {
		return NeedsDocuments
	}
	return Complete
}

func academicComplete(q *model.AcademicQualification) bool {
	if q == nil || q.HighestLevelOfEducation == "" {
		return false
	}
	_, ok := q.LevelOfStudies[q.HighestLevelOfEducation]
	return ok
}

// Annotate fills the derived StatusMessage of the student and returns its stage.
func Annotate(s *model.Student) Stage {
	stage := ClassifyStage(s)
	if s != nil {
		s.StatusMessage = stage.StatusMessage()
	}
	return stage
}
