package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
)

var (
	superAdmin = model.Actor{ID: 1, Role: model.RoleSuperAdmin, FirstName: "Sam", LastName: "Root"}
	counselor  = model.Actor{ID: 3, Role: model.RoleCounselor, FirstName: "Cole"}
	verifier   = model.Actor{ID: 4, Role: model.RoleVerifier, FirstName: "Vera"}
)

var errNetwork = errors.New("network down")

// fakeBackend is an in-memory server. Mutations are applied directly;
// authorization is left to the code under test.
type fakeBackend struct {
	mu        sync.Mutex
	students  map[string]*model.Student
	apps      map[string]*model.Application
	courses   map[string]model.CourseRef
	messages  map[string][]model.Message
	fetches   map[string]int
	mutations []Mutation
	uploads   int
	seq       int

	// onMutate, when set, runs before every mutation; a non-nil error is
	// returned as a transport failure.
	onMutate func(m Mutation) error
	reject   *ActionError
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		students: map[string]*model.Student{},
		apps:     map[string]*model.Application{},
		courses: map[string]model.CourseRef{
			"c-paid": {ID: "c-paid", Name: "MSc Data Science", ApplicationFee: 75},
			"c-free": {ID: "c-free", Name: "BA History", ApplicationFee: 0},
		},
		messages: map[string][]model.Message{},
		fetches:  map[string]int{},
	}
}

func completeStudent(id string) *model.Student {
	return &model.Student{
		ID:           id,
		FirstName:    "Asha",
		PersonalInfo: &model.PersonalInfo{DateOfBirth: "2001-04-02", Gender: "FEMALE"},
		AcademicQualification: &model.AcademicQualification{
			HighestLevelOfEducation: model.LevelGradeTwelve,
			LevelOfStudies: map[model.EducationLevel]model.LevelOfStudy{
				model.LevelGradeTwelve: {Institution: "City High", Grade: "A"},
			},
		},
		Documents: &model.Documents{
			CV: "cv.pdf", GradeTenMarksheet: "g10.pdf", GradeTwelveMarksheet: "g12.pdf",
			Passport: "pp.pdf", IELTS: "ielts.pdf", RecommendationLetter: "lor.pdf",
		},
	}
}

func (f *fakeBackend) addApplication(id, studentID, courseID string) *model.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	app := &model.Application{
		ID:        id,
		StudentID: studentID,
		Course:    f.courses[courseID],
		Status:    model.StatusInProgress,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.apps[id] = app
	return app
}

func (f *fakeBackend) fetchCount(key querycache.Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[key.String()]
}

func (f *fakeBackend) mutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.mutations)
}

func (f *fakeBackend) Fetch(ctx context.Context, key querycache.Key) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[key.String()]++

	var data any
	switch key.Resource {
	case querycache.Students:
		s, ok := f.students[key.ID]
		if !ok {
			return nil, fmt.Errorf("student %s not found", key.ID)
		}
		data = s
	case querycache.Applications:
		if key.ID != "" {
			a, ok := f.apps[key.ID]
			if !ok {
				return nil, fmt.Errorf("application %s not found", key.ID)
			}
			data = a
			break
		}
		rows := []model.Application{}
		for _, a := range f.apps {
			if a.StudentID == key.Filter("studentId") {
				rows = append(rows, *a)
			}
		}
		data = rows
	case querycache.Messages:
		all := f.messages[key.ID]
		page, _ := strconv.Atoi(key.Filter("page"))
		take, _ := strconv.Atoi(key.Filter("take"))
		page, take = model.NormalizePage(page, take, 50, 200)
		start := min((page-1)*take, len(all))
		end := min(start+take, len(all))
		meta := model.NewPageMeta(page, take, len(all))
		raw, err := json.Marshal(append([]model.Message{}, all[start:end]...))
		if err != nil {
			return nil, err
		}
		return &Page{Data: raw, Meta: &meta}, nil
	case querycache.Activities:
		data = []model.Activity{}
	default:
		return nil, fmt.Errorf("unexpected fetch %s", key)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Page{Data: raw}, nil
}

func (f *fakeBackend) Upload(ctx context.Context, files []UploadFile) ([]model.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	out := make([]model.StoredFile, len(files))
	for i, file := range files {
		out[i] = model.StoredFile{
			Filename:     fmt.Sprintf("u%d-%d", f.uploads, i),
			OriginalName: file.Name,
			URL:          fmt.Sprintf("/uploads/u%d-%d", f.uploads, i),
		}
	}
	return out, nil
}

func (f *fakeBackend) Mutate(ctx context.Context, m Mutation) (*ActionResponse, error) {
	if f.onMutate != nil {
		if err := f.onMutate(m); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations = append(f.mutations, m)
	if f.reject != nil {
		return &ActionResponse{Success: false, Error: f.reject}, nil
	}

	data, err := f.apply(m)
	if err != nil {
		return &ActionResponse{Success: false, Error: &ActionError{Code: "NOT_FOUND", Message: err.Error()}}, nil
	}
	raw, _ := json.Marshal(data)
	return &ActionResponse{Success: true, Data: raw}, nil
}

func (f *fakeBackend) apply(m Mutation) (any, error) {
	parts := strings.Split(strings.TrimPrefix(m.Path, "/api/v1/"), "/")
	switch {
	case parts[0] == "applications" && len(parts) == 1 && m.Method == http.MethodPost:
		req := m.Body.(model.CreateApplicationRequest)
		f.seq++
		app := &model.Application{
			ID:        fmt.Sprintf("new-%d", f.seq),
			StudentID: req.StudentID,
			Course:    f.courses[req.Course.Value],
			Status:    model.StatusInProgress,
		}
		f.apps[app.ID] = app
		return app, nil

	case parts[0] == "applications" && len(parts) >= 2:
		app, ok := f.apps[parts[1]]
		if !ok {
			return nil, fmt.Errorf("application %s not found", parts[1])
		}
		switch {
		case len(parts) == 2 && m.Method == http.MethodDelete:
			delete(f.apps, app.ID)
			return nil, nil
		case parts[2] == "status":
			app.Status = m.Body.(model.UpdateStatusRequest).Status
		case parts[2] == "priority":
			p := m.Body.(model.UpdatePriorityRequest).Priority
			app.Priority = &p
		case parts[2] == "payment" && len(parts) == 4:
			now := time.Now()
			app.PaymentVerifiedAt = &now
		case parts[2] == "payment" && m.Method == http.MethodPut:
			doc := m.Body.(model.UploadPaymentRequest).PaymentDocument
			app.PaymentDocument = &doc
		case parts[2] == "payment" && m.Method == http.MethodDelete:
			app.PaymentDocument = nil
			app.PaymentVerifiedAt = nil
		}
		return app, nil

	case parts[0] == "students" && len(parts) == 3:
		s, ok := f.students[parts[1]]
		if !ok {
			return nil, fmt.Errorf("student %s not found", parts[1])
		}
		switch body := m.Body.(type) {
		case model.PersonalInfo:
			s.PersonalInfo = &body
		case model.AcademicQualification:
			s.AcademicQualification = &body
		case model.Documents:
			s.Documents = &body
		case model.UpdateWorkExperiencesRequest:
			s.WorkExperiences = body.WorkExperiences
		}
		lifecycle.Annotate(s)
		return s, nil

	case parts[0] == "conversations" && len(parts) == 3:
		req := m.Body.(model.SendMessageRequest)
		f.seq++
		msg := model.Message{
			ID:             fmt.Sprintf("m-%d", f.seq),
			ConversationID: parts[1],
			Content:        req.Content,
			Files:          req.Files,
			CreatedAt:      time.Date(2025, 2, 1, 0, 0, f.seq, 0, time.UTC),
		}
		f.messages[parts[1]] = append(f.messages[parts[1]], msg)
		return msg, nil
	}
	return nil, fmt.Errorf("unexpected mutation %s %s", m.Method, m.Path)
}

func newWorkspace(actor model.Actor, backend Backend) *Workspace {
	return New(actor, backend, lifecycle.NewMachine(nil), zerolog.Nop())
}
