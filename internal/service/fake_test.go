package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
	"github.com/stemsi/abroad-backend/internal/repository"
)

var (
	superAdmin = model.Actor{ID: 1, Role: model.RoleSuperAdmin, FirstName: "Sam", LastName: "Root", AccountID: 1}
	counselor  = model.Actor{ID: 3, Role: model.RoleCounselor, FirstName: "Cora", LastName: "Lee", AccountID: 1}
	verifier   = model.Actor{ID: 4, Role: model.RoleVerifier, FirstName: "Vic", AccountID: 1}
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func newStore(rdb *redis.Client) *querycache.RedisStore {
	return querycache.NewRedisStore(rdb, time.Minute, zerolog.Nop())
}

func completeStudent(id string) *model.Student {
	return &model.Student{
		ID:        id,
		FirstName: "Ana",
		LastName:  "Silva",
		Email:     id + "@example.com",
		Phone:     "+351900000",
		PersonalInfo: &model.PersonalInfo{
			DateOfBirth: "2001-04-02", Gender: "FEMALE", Nationality: "PT",
			Address: "Rua 1", City: "Lisbon", Country: "PT",
		},
		AcademicQualification: &model.AcademicQualification{
			HighestLevelOfEducation: model.LevelBachelors,
			LevelOfStudies: map[model.EducationLevel]model.LevelOfStudy{
				model.LevelBachelors: {Institution: "UL", Grade: "16"},
			},
		},
		Documents: &model.Documents{
			CV: "cv.pdf", GradeTenMarksheet: "g10.pdf", GradeTwelveMarksheet: "g12.pdf",
			Passport: "pp.pdf", IELTS: "ielts.pdf", RecommendationLetter: "rec.pdf",
		},
		WorkExperiences: []model.WorkExperience{},
	}
}

// ─── Students ───────────────────────────────────────────────────────

type fakeStudents struct {
	mu       sync.Mutex
	byID     map[string]*model.Student
	seq      int
	listHits int
}

func newFakeStudents(seed ...*model.Student) *fakeStudents {
	f := &fakeStudents{byID: map[string]*model.Student{}}
	for _, s := range seed {
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeStudents) GetByID(_ context.Context, id string) (*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *s
	return &c, nil
}

func (f *fakeStudents) ListPaginated(_ context.Context, _ string, limit, offset int) ([]model.Student, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits++
	ids := make([]string, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := []model.Student{}
	for i := offset; i < len(ids) && i < offset+limit; i++ {
		out = append(out, *f.byID[ids[i]])
	}
	return out, len(ids), nil
}

func (f *fakeStudents) Create(_ context.Context, s *model.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == s.Email {
			return repository.ErrDuplicateStudentEmail
		}
	}
	f.seq++
	s.ID = fmt.Sprintf("stu-%d", f.seq)
	c := *s
	f.byID[s.ID] = &c
	return nil
}

func (f *fakeStudents) Update(_ context.Context, s *model.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[s.ID]; !ok {
		return pgx.ErrNoRows
	}
	c := *s
	f.byID[s.ID] = &c
	return nil
}

func (f *fakeStudents) SaveSection(_ context.Context, id string, section repository.Section, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	switch section {
	case repository.SectionPersonalInfo:
		v := value.(model.PersonalInfo)
		s.PersonalInfo = &v
	case repository.SectionAcademicQualification:
		v := value.(model.AcademicQualification)
		s.AcademicQualification = &v
	case repository.SectionDocuments:
		v := value.(model.Documents)
		s.Documents = &v
	case repository.SectionWorkExperiences:
		s.WorkExperiences = value.([]model.WorkExperience)
	}
	return nil
}

func (f *fakeStudents) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

// ─── Catalogue ──────────────────────────────────────────────────────

type fakeCatalogue struct {
	mu           sync.Mutex
	universities []model.University
	courses      map[string]*model.Course
	listHits     int
}

func newFakeCatalogue() *fakeCatalogue {
	return &fakeCatalogue{
		universities: []model.University{{ID: "u-1", Name: "Lisbon Tech", Country: "PT"}},
		courses: map[string]*model.Course{
			"c-paid": {ID: "c-paid", UniversityID: "u-1", UniversityName: "Lisbon Tech", Name: "MSc Data", ApplicationFee: 75, Currency: "EUR"},
			"c-free": {ID: "c-free", UniversityID: "u-1", UniversityName: "Lisbon Tech", Name: "MSc Arts", Currency: "EUR"},
		},
	}
}

func (f *fakeCatalogue) ListUniversities(context.Context) ([]model.University, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits++
	return append([]model.University(nil), f.universities...), nil
}

func (f *fakeCatalogue) CreateUniversity(_ context.Context, u *model.University) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = fmt.Sprintf("u-%d", len(f.universities)+1)
	f.universities = append(f.universities, *u)
	return nil
}

func (f *fakeCatalogue) ListCourses(_ context.Context, universityID string) ([]model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits++
	out := []model.Course{}
	for _, c := range f.courses {
		if universityID == "" || c.UniversityID == universityID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCatalogue) GetCourse(_ context.Context, id string) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cc := *c
	return &cc, nil
}

func (f *fakeCatalogue) CreateCourse(_ context.Context, c *model.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = fmt.Sprintf("c-%d", len(f.courses)+1)
	cc := *c
	f.courses[c.ID] = &cc
	return nil
}

// ─── Applications ───────────────────────────────────────────────────

type fakeApplications struct {
	mu       sync.Mutex
	byID     map[string]*model.Application
	seq      int
	listHits int
}

func newFakeApplications() *fakeApplications {
	return &fakeApplications{byID: map[string]*model.Application{}}
}

func (f *fakeApplications) GetByID(_ context.Context, id string) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a.Clone(), nil
}

func (f *fakeApplications) ListByStudent(_ context.Context, studentID string, limit, offset int) ([]model.Application, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits++
	var all []model.Application
	for _, a := range f.byID {
		if a.StudentID == studentID {
			all = append(all, *a.Clone())
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	out := []model.Application{}
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, all[i])
	}
	return out, len(all), nil
}

func (f *fakeApplications) Create(_ context.Context, a *model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	a.ID = fmt.Sprintf("app-%d", f.seq)
	a.Conversations = []model.Conversation{{ID: "conv-" + a.ID, ApplicationID: a.ID, Type: model.ConversationAdminTeam}}
	f.byID[a.ID] = a.Clone()
	return nil
}

func (f *fakeApplications) Transition(_ context.Context, id string, apply func(*model.Application) error) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	working := a.Clone()
	if err := apply(working); err != nil {
		return nil, err
	}
	f.byID[id] = working.Clone()
	return working, nil
}

func (f *fakeApplications) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

type fakeActivities struct {
	items []model.Activity
}

func (f *fakeActivities) ListByApplication(_ context.Context, id string) ([]model.Activity, error) {
	out := []model.Activity{}
	for _, a := range f.items {
		if a.ApplicationID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

// ─── Conversations ──────────────────────────────────────────────────

type fakeConversations struct {
	mu       sync.Mutex
	convs    map[string]*model.Conversation
	messages []model.Message
	listHits int
	failNext error
}

func newFakeConversations(ids ...string) *fakeConversations {
	f := &fakeConversations{convs: map[string]*model.Conversation{}}
	for _, id := range ids {
		f.convs[id] = &model.Conversation{ID: id, ApplicationID: "app-1", Type: model.ConversationAdminTeam}
	}
	return f
}

func (f *fakeConversations) GetByID(_ context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cc := *c
	return &cc, nil
}

func (f *fakeConversations) ListMessages(_ context.Context, id string, limit, offset int) ([]model.Message, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listHits++
	var all []model.Message
	for _, m := range f.messages {
		if m.ConversationID == id {
			all = append(all, m)
		}
	}
	out := []model.Message{}
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, all[i])
	}
	return out, len(all), nil
}

func (f *fakeConversations) CreateMessage(_ context.Context, m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	m.ID = fmt.Sprintf("msg-%d", len(f.messages)+1)
	m.CreatedAt = time.Date(2025, 2, 1, 0, 0, len(f.messages), 0, time.UTC)
	f.messages = append(f.messages, *m)
	return nil
}

// ─── Staff ──────────────────────────────────────────────────────────

type fakeStaff struct {
	byID map[int]*model.Staff
}

func (f *fakeStaff) GetByID(_ context.Context, id int) (*model.Staff, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	c := *s
	return &c, nil
}

func (f *fakeStaff) GetByEmail(_ context.Context, email string) (*model.Staff, error) {
	for _, s := range f.byID {
		if s.Email == email {
			c := *s
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}
