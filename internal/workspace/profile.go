package workspace

import (
	"context"
	"net/http"

	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
)

// Profile is a student together with what the console derives from it.
type Profile struct {
	Student *model.Student
	Stage   lifecycle.Stage
	Tabs    lifecycle.Tabs
}

func newProfile(s *model.Student) *Profile {
	stage := lifecycle.Annotate(s)
	return &Profile{Student: s, Stage: stage, Tabs: lifecycle.GateTabs(stage)}
}

// Profiles reads students and saves their profile sections.
type Profiles struct {
	ws *Workspace
}

// Get returns the student's profile, from cache when fresh.
func (p *Profiles) Get(ctx context.Context, studentID string) (*Profile, error) {
	s, err := querycache.FetchAs(ctx, p.ws.cache, studentKey(studentID), func(ctx context.Context) (*model.Student, error) {
		return fetchRecord[model.Student](ctx, p.ws.backend, studentKey(studentID))
	})
	if err != nil {
		return nil, err
	}
	c := *s
	return newProfile(&c), nil
}

// SavePersonalInfo replaces the personal information section.
func (p *Profiles) SavePersonalInfo(ctx context.Context, studentID string, info model.PersonalInfo) (*Profile, error) {
	return p.save(ctx, studentID, "personal-info", info)
}

// SaveAcademicQualification replaces the academic qualification section.
func (p *Profiles) SaveAcademicQualification(ctx context.Context, studentID string, q model.AcademicQualification) (*Profile, error) {
	return p.save(ctx, studentID, "academic-qualification", q)
}

// SaveDocuments replaces the documents section.
func (p *Profiles) SaveDocuments(ctx context.Context, studentID string, docs model.Documents) (*Profile, error) {
	return p.save(ctx, studentID, "documents", docs)
}

// SaveWorkExperiences replaces the work experience list.
func (p *Profiles) SaveWorkExperiences(ctx context.Context, studentID string, items []model.WorkExperience) (*Profile, error) {
	return p.save(ctx, studentID, "work-experiences", model.UpdateWorkExperiencesRequest{WorkExperiences: items})
}

func (p *Profiles) save(ctx context.Context, studentID, section string, body any) (*Profile, error) {
	if !p.ws.actor.Can(model.PermissionStudentsWrite) {
		return nil, lifecycle.ErrForbidden
	}

	var updated model.Student
	err := mutate(ctx, p.ws.backend, Mutation{
		Method: http.MethodPut,
		Path:   "/api/v1/students/" + studentID + "/" + section,
		Body:   body,
	}, &updated)
	if err != nil {
		return nil, err
	}

	// List rows show the status message, so every student query goes stale.
	p.ws.cache.Invalidate(querycache.Tag(querycache.Students))
	p.ws.cache.Set(studentKey(studentID), &updated)
	c := updated

	p.ws.log.Debug().Str("student_id", studentID).Str("section", section).Msg("Profile section saved")
	return newProfile(&c), nil
}
