package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
	"github.com/stemsi/abroad-backend/internal/repository"
)

var ErrStudentNotFound = errors.New("student not found")

// Default and maximum page sizes for list endpoints.
const (
	DefaultTake = 10
	MaxTake     = 100
)

// StudentStore is the persistence StudentService needs.
type StudentStore interface {
	GetByID(ctx context.Context, id string) (*model.Student, error)
	ListPaginated(ctx context.Context, search string, limit, offset int) ([]model.Student, int, error)
	Create(ctx context.Context, s *model.Student) error
	Update(ctx context.Context, s *model.Student) error
	SaveSection(ctx context.Context, id string, section repository.Section, value any) error
	Delete(ctx context.Context, id string) error
}

// StudentView is a student with its derived onboarding stage and tab gates.
type StudentView struct {
	*model.Student
	Stage lifecycle.Stage `json:"stage"`
	Tabs  lifecycle.Tabs  `json:"tabs"`
}

// NewStudentView annotates s and derives its stage and tabs.
func NewStudentView(s *model.Student) *StudentView {
	stage := lifecycle.Annotate(s)
	return &StudentView{Student: s, Stage: stage, Tabs: lifecycle.GateTabs(stage)}
}

// StudentPage is one cached page of the student list.
type StudentPage struct {
	Students []model.Student `json:"students"`
	Meta     model.PageMeta  `json:"meta"`
}

// StudentService handles student business logic.
type StudentService struct {
	studentRepo StudentStore
	cache       *querycache.RedisStore
	log         zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo StudentStore, cache *querycache.RedisStore, log zerolog.Logger) *StudentService {
	return &StudentService{
		studentRepo: studentRepo,
		cache:       cache,
		log:         log.With().Str("component", "student_service").Logger(),
	}
}

// GetByID retrieves a student with its stage.
func (s *StudentService) GetByID(ctx context.Context, id string) (*StudentView, error) {
	key := querycache.Tag(querycache.Students).WithID(id)
	student, err := querycache.Remember(ctx, s.cache, key, func(ctx context.Context) (*model.Student, error) {
		return s.studentRepo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	c := *student
	return NewStudentView(&c), nil
}

// ListStudents retrieves a page of students, newest first, each annotated
// with its status message.
func (s *StudentService) ListStudents(ctx context.Context, search string, page, take int) (*StudentPage, error) {
	page, take = model.NormalizePage(page, take, DefaultTake, MaxTake)

	key := querycache.Tag(querycache.Students).
		With("search", search).
		WithInt("page", page).
		WithInt("take", take)

	return querycache.Remember(ctx, s.cache, key, func(ctx context.Context) (*StudentPage, error) {
		students, total, err := s.studentRepo.ListPaginated(ctx, search, take, (page-1)*take)
		if err != nil {
			return nil, err
		}
		for i := range students {
			lifecycle.Annotate(&students[i])
		}
		return &StudentPage{Students: students, Meta: model.NewPageMeta(page, take, total)}, nil
	})
}

// CreateLead inserts a bare student record.
func (s *StudentService) CreateLead(ctx context.Context, req model.CreateLeadRequest) (*StudentView, error) {
	student := &model.Student{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return NewStudentView(student), nil
}

// Register inserts a student with the profile sections filled in at once.
func (s *StudentService) Register(ctx context.Context, req model.RegisterStudentRequest) (*StudentView, error) {
	student := &model.Student{
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		Email:                 req.Email,
		Phone:                 req.Phone,
		PersonalInfo:          req.PersonalInfo,
		AcademicQualification: req.AcademicQualification,
		Documents:             req.Documents,
		WorkExperiences:       req.WorkExperiences,
	}
	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return NewStudentView(student), nil
}

// Update modifies a student's identity fields.
func (s *StudentService) Update(ctx context.Context, id string, req model.UpdateStudentRequest) (*StudentView, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	student.FirstName = req.FirstName
	student.LastName = req.LastName
	student.Email = req.Email
	student.Phone = req.Phone
	student.CounselorID = req.CounselorID

	if err := s.studentRepo.Update(ctx, student); err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	s.invalidate(ctx)
	return NewStudentView(student), nil
}

// SavePersonalInfo replaces the personal information section.
func (s *StudentService) SavePersonalInfo(ctx context.Context, id string, info model.PersonalInfo) (*StudentView, error) {
	return s.saveSection(ctx, id, repository.SectionPersonalInfo, info)
}

// SaveAcademicQualification replaces the academic qualification section.
func (s *StudentService) SaveAcademicQualification(ctx context.Context, id string, q model.AcademicQualification) (*StudentView, error) {
	return s.saveSection(ctx, id, repository.SectionAcademicQualification, q)
}

// SaveDocuments replaces the documents section.
func (s *StudentService) SaveDocuments(ctx context.Context, id string, docs model.Documents) (*StudentView, error) {
	return s.saveSection(ctx, id, repository.SectionDocuments, docs)
}

// SaveWorkExperiences replaces the work experience list.
func (s *StudentService) SaveWorkExperiences(ctx context.Context, id string, items []model.WorkExperience) (*StudentView, error) {
	if items == nil {
		items = []model.WorkExperience{}
	}
	return s.saveSection(ctx, id, repository.SectionWorkExperiences, items)
}

func (s *StudentService) saveSection(ctx context.Context, id string, section repository.Section, value any) (*StudentView, error) {
	if err := s.studentRepo.SaveSection(ctx, id, section, value); err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	s.invalidate(ctx)

	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	view := NewStudentView(student)
	s.log.Debug().
		Str("student_id", id).
		Str("section", string(section)).
		Str("stage", view.Stage.String()).
		Msg("Profile section saved")
	return view, nil
}

// Delete removes a student together with its applications.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.studentRepo.Delete(ctx, id); err != nil {
		return notFound(err, ErrStudentNotFound)
	}
	s.invalidate(ctx, querycache.Tag(querycache.Applications).With("studentId", id))
	return nil
}

// invalidate drops every cached student query plus any extra targets.
// Status messages appear on list rows, so any profile write stales them all.
func (s *StudentService) invalidate(ctx context.Context, extra ...querycache.Key) {
	targets := append([]querycache.Key{querycache.Tag(querycache.Students)}, extra...)
	if _, err := s.cache.Invalidate(ctx, targets...); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate student cache")
	}
}

// notFound translates a missing row into the service's sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}
