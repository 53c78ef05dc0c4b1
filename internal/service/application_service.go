package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/abroad-backend/internal/config"
	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
)

// Application errors.
var (
	ErrApplicationNotFound      = errors.New("application not found")
	ErrProfileIncomplete        = errors.New("student profile must be complete before applying")
	ErrCourseUniversityMismatch = errors.New("course does not belong to the selected university")
	ErrInvalidIntake            = errors.New("intake must be a month name")
	ErrInvalidYear              = errors.New("year must be a four digit year from 2000")
)

// ApplicationStore is the persistence ApplicationService needs.
type ApplicationStore interface {
	GetByID(ctx context.Context, id string) (*model.Application, error)
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]model.Application, int, error)
	Create(ctx context.Context, a *model.Application) error
	Transition(ctx context.Context, id string, apply func(*model.Application) error) (*model.Application, error)
	Delete(ctx context.Context, id string) error
}

// ActivityReader lists recorded application activity.
type ActivityReader interface {
	ListByApplication(ctx context.Context, applicationID string) ([]model.Activity, error)
}

// ApplicationPage is one cached page of a student's applications.
type ApplicationPage struct {
	Applications []model.Application `json:"applications"`
	Meta         model.PageMeta      `json:"meta"`
}

// ApplicationService runs application transitions through the lifecycle
// machine and records each one in the activity queue.
type ApplicationService struct {
	repo       ApplicationStore
	students   StudentStore
	courses    CatalogueStore
	activities ActivityReader
	machine    *lifecycle.Machine
	cache      *querycache.RedisStore
	rdb        *redis.Client
	now        func() time.Time
	log        zerolog.Logger
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(
	repo ApplicationStore,
	students StudentStore,
	courses CatalogueStore,
	activities ActivityReader,
	machine *lifecycle.Machine,
	cache *querycache.RedisStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *ApplicationService {
	return &ApplicationService{
		repo:       repo,
		students:   students,
		courses:    courses,
		activities: activities,
		machine:    machine,
		cache:      cache,
		rdb:        rdb,
		now:        time.Now,
		log:        log.With().Str("component", "application_service").Logger(),
	}
}

// Statuses returns the configured status catalogue in order.
func (s *ApplicationService) Statuses() []model.ApplicationStatus {
	return s.machine.Catalogue().Statuses()
}

// ListByStudent returns a page of the student's applications.
func (s *ApplicationService) ListByStudent(ctx context.Context, studentID string, page, take int) (*ApplicationPage, error) {
	page, take = model.NormalizePage(page, take, DefaultTake, MaxTake)

	key := querycache.Tag(querycache.Applications).
		With("studentId", studentID).
		WithInt("page", page).
		WithInt("take", take)

	return querycache.Remember(ctx, s.cache, key, func(ctx context.Context) (*ApplicationPage, error) {
		apps, total, err := s.repo.ListByStudent(ctx, studentID, take, (page-1)*take)
		if err != nil {
			return nil, err
		}
		return &ApplicationPage{Applications: apps, Meta: model.NewPageMeta(page, take, total)}, nil
	})
}

// GetByID retrieves an application with its conversations.
func (s *ApplicationService) GetByID(ctx context.Context, id string) (*model.Application, error) {
	key := querycache.Tag(querycache.Applications).WithID(id)
	app, err := querycache.Remember(ctx, s.cache, key, func(ctx context.Context) (*model.Application, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, notFound(err, ErrApplicationNotFound)
	}
	return app, nil
}

// Create opens an application for a fully onboarded student.
func (s *ApplicationService) Create(ctx context.Context, actor model.Actor, req model.CreateApplicationRequest) (*model.Application, error) {
	intake, ok := model.ParseIntake(req.Intake)
	if !ok {
		return nil, ErrInvalidIntake
	}
	year, err := strconv.Atoi(req.Year)
	if err != nil || year < 2000 {
		return nil, ErrInvalidYear
	}

	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, notFound(err, ErrStudentNotFound)
	}
	if lifecycle.ClassifyStage(student) != lifecycle.Complete {
		return nil, ErrProfileIncomplete
	}

	course, err := s.courses.GetCourse(ctx, req.Course.Value)
	if err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	if course.UniversityID != req.University.Value {
		return nil, ErrCourseUniversityMismatch
	}

	app := &model.Application{
		StudentID:  student.ID,
		Course:     course.Ref(),
		University: model.UniversityRef{ID: course.UniversityID, Name: course.UniversityName},
		Intake:     intake,
		Year:       year,
	}
	t, err := s.machine.Open(actor, app)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, app); err != nil {
		return nil, err
	}

	s.record(ctx, actor, app.ID, t)
	s.invalidate(ctx, querycache.Tag(querycache.Applications).With("studentId", app.StudentID))

	s.log.Info().
		Str("application_id", app.ID).
		Str("student_id", app.StudentID).
		Int("actor_id", actor.ID).
		Msg("Application created")
	return app, nil
}

// Withdraw deletes an application and its conversations.
func (s *ApplicationService) Withdraw(ctx context.Context, actor model.Actor, id string) error {
	if !actor.Can(model.PermissionApplicationsWithdraw) {
		return lifecycle.ErrForbidden
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrApplicationNotFound)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, ErrApplicationNotFound)
	}

	s.invalidate(ctx,
		querycache.Tag(querycache.Applications).With("studentId", app.StudentID),
		querycache.Tag(querycache.Applications).WithID(id),
	)
	s.log.Info().Str("application_id", id).Int("actor_id", actor.ID).Msg("Application withdrawn")
	return nil
}

// SetStatus moves an application to another catalogue status.
func (s *ApplicationService) SetStatus(ctx context.Context, actor model.Actor, id string, status model.ApplicationStatus) (*model.Application, error) {
	return s.transition(ctx, actor, id, func(app *model.Application) (lifecycle.Transition, error) {
		return s.machine.SetStatus(actor, app, status)
	})
}

// SetPriority sets an application's priority.
func (s *ApplicationService) SetPriority(ctx context.Context, actor model.Actor, id string, priority model.Priority) (*model.Application, error) {
	return s.transition(ctx, actor, id, func(app *model.Application) (lifecycle.Transition, error) {
		return s.machine.SetPriority(actor, app, priority)
	})
}

// UploadPayment attaches a stored file as payment proof.
func (s *ApplicationService) UploadPayment(ctx context.Context, actor model.Actor, id string, doc model.StoredFile) (*model.Application, error) {
	return s.transition(ctx, actor, id, func(app *model.Application) (lifecycle.Transition, error) {
		return s.machine.UploadPayment(actor, app, doc)
	})
}

// VerifyPayment stamps an uploaded payment proof as verified.
func (s *ApplicationService) VerifyPayment(ctx context.Context, actor model.Actor, id string) (*model.Application, error) {
	return s.transition(ctx, actor, id, func(app *model.Application) (lifecycle.Transition, error) {
		return s.machine.VerifyPayment(actor, app)
	})
}

// RemovePayment detaches the payment proof and its verification.
func (s *ApplicationService) RemovePayment(ctx context.Context, actor model.Actor, id string) (*model.Application, error) {
	return s.transition(ctx, actor, id, func(app *model.Application) (lifecycle.Transition, error) {
		return s.machine.RemovePayment(actor, app)
	})
}

// Activities returns an application's audit trail, newest first.
func (s *ApplicationService) Activities(ctx context.Context, id string) ([]model.Activity, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, notFound(err, ErrApplicationNotFound)
	}
	return s.activities.ListByApplication(ctx, id)
}

func (s *ApplicationService) transition(
	ctx context.Context,
	actor model.Actor,
	id string,
	step func(*model.Application) (lifecycle.Transition, error),
) (*model.Application, error) {
	var t lifecycle.Transition
	app, err := s.repo.Transition(ctx, id, func(app *model.Application) error {
		var err error
		t, err = step(app)
		return err
	})
	if err != nil {
		return nil, notFound(err, ErrApplicationNotFound)
	}

	s.record(ctx, actor, app.ID, t)
	s.invalidate(ctx,
		querycache.Tag(querycache.Applications).With("studentId", app.StudentID),
		querycache.Tag(querycache.Applications).WithID(app.ID),
	)
	return app, nil
}

// record queues an activity entry for the activity worker.
func (s *ApplicationService) record(ctx context.Context, actor model.Actor, applicationID string, t lifecycle.Transition) {
	raw, err := json.Marshal(model.Activity{
		ApplicationID: applicationID,
		ActorID:       actor.ID,
		ActorRole:     actor.Role,
		Kind:          t.Kind,
		From:          t.From,
		To:            t.To,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode activity")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistActivitiesQueue, raw).Err(); err != nil {
		s.log.Error().Err(err).Str("application_id", applicationID).Msg("Failed to queue activity")
	}
}

func (s *ApplicationService) invalidate(ctx context.Context, targets ...querycache.Key) {
	if _, err := s.cache.Invalidate(ctx, targets...); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate application cache")
	}
}
