package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/abroad-backend/internal/model"
	"github.com/stemsi/abroad-backend/internal/querycache"
)

var ErrCourseNotFound = errors.New("course not found")

// CatalogueStore is the persistence CatalogueService needs.
type CatalogueStore interface {
	ListUniversities(ctx context.Context) ([]model.University, error)
	CreateUniversity(ctx context.Context, u *model.University) error
	ListCourses(ctx context.Context, universityID string) ([]model.Course, error)
	GetCourse(ctx context.Context, id string) (*model.Course, error)
	CreateCourse(ctx context.Context, c *model.Course) error
}

// CatalogueService manages the universities and courses applications point at.
type CatalogueService struct {
	repo  CatalogueStore
	cache *querycache.RedisStore
	log   zerolog.Logger
}

// NewCatalogueService creates a new CatalogueService.
func NewCatalogueService(repo CatalogueStore, cache *querycache.RedisStore, log zerolog.Logger) *CatalogueService {
	return &CatalogueService{
		repo:  repo,
		cache: cache,
		log:   log.With().Str("component", "catalogue_service").Logger(),
	}
}

// ListUniversities returns every university.
func (s *CatalogueService) ListUniversities(ctx context.Context) ([]model.University, error) {
	return querycache.Remember(ctx, s.cache, querycache.Tag(querycache.Universities), s.repo.ListUniversities)
}

// ListCourses returns the courses of one university, or all when universityID is empty.
func (s *CatalogueService) ListCourses(ctx context.Context, universityID string) ([]model.Course, error) {
	key := querycache.Tag(querycache.Courses)
	if universityID != "" {
		key = key.With("universityId", universityID)
	}
	return querycache.Remember(ctx, s.cache, key, func(ctx context.Context) ([]model.Course, error) {
		return s.repo.ListCourses(ctx, universityID)
	})
}

// GetCourse retrieves a single course.
func (s *CatalogueService) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	c, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrCourseNotFound)
	}
	return c, nil
}

// CreateUniversity adds a university.
func (s *CatalogueService) CreateUniversity(ctx context.Context, req model.CreateUniversityRequest) (*model.University, error) {
	u := &model.University{Name: strings.TrimSpace(req.Name), Country: strings.TrimSpace(req.Country)}
	if err := s.repo.CreateUniversity(ctx, u); err != nil {
		return nil, err
	}
	s.invalidate(ctx, querycache.Tag(querycache.Universities))
	return u, nil
}

// CreateCourse adds a course to a university.
func (s *CatalogueService) CreateCourse(ctx context.Context, req model.CreateCourseRequest) (*model.Course, error) {
	c := &model.Course{
		UniversityID:   req.UniversityID,
		Name:           strings.TrimSpace(req.Name),
		Level:          req.Level,
		ApplicationFee: req.ApplicationFee,
		Currency:       strings.ToUpper(req.Currency),
	}
	if err := s.repo.CreateCourse(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(ctx, querycache.Tag(querycache.Courses))
	return c, nil
}

func (s *CatalogueService) invalidate(ctx context.Context, targets ...querycache.Key) {
	if _, err := s.cache.Invalidate(ctx, targets...); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate catalogue cache")
	}
}
