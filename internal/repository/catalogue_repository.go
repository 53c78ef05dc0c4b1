package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/abroad-backend/internal/model"
)

var (
	ErrDuplicateUniversity = errors.New("university with this name already exists")
	ErrDuplicateCourse     = errors.New("course with this name already exists at the university")
	ErrUniversityNotFound  = errors.New("university not found")
)

// CatalogueRepository handles universities and courses.
type CatalogueRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogueRepository creates a new CatalogueRepository.
func NewCatalogueRepository(pool *pgxpool.Pool) *CatalogueRepository {
	return &CatalogueRepository{pool: pool}
}

// ListUniversities returns every university ordered by name.
func (r *CatalogueRepository) ListUniversities(ctx context.Context) ([]model.University, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, country, created_at FROM universities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	universities := []model.University{}
	for rows.Next() {
		var u model.University
		if err := rows.Scan(&u.ID, &u.Name, &u.Country, &u.CreatedAt); err != nil {
			return nil, err
		}
		universities = append(universities, u)
	}
	return universities, rows.Err()
}

// CreateUniversity inserts a new university.
func (r *CatalogueRepository) CreateUniversity(ctx context.Context, u *model.University) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO universities (name, country) VALUES ($1, $2) RETURNING id, created_at`,
		u.Name, u.Country,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUniversity
		}
		return err
	}
	return nil
}

const courseSelect = `SELECT c.id, c.university_id, u.name, c.name, c.level, c.application_fee::float8, c.currency, c.created_at
	FROM courses c JOIN universities u ON u.id = c.university_id`

// ListCourses returns courses, optionally only those of one university.
func (r *CatalogueRepository) ListCourses(ctx context.Context, universityID string) ([]model.Course, error) {
	query := courseSelect
	var args []any
	if universityID != "" {
		query += ` WHERE c.university_id = $1`
		args = append(args, universityID)
	}
	query += ` ORDER BY u.name, c.name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []model.Course{}
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.UniversityID, &c.UniversityName, &c.Name, &c.Level,
			&c.ApplicationFee, &c.Currency, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetCourse retrieves a course with its university name.
func (r *CatalogueRepository) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx, courseSelect+` WHERE c.id = $1`, id).Scan(
		&c.ID, &c.UniversityID, &c.UniversityName, &c.Name, &c.Level,
		&c.ApplicationFee, &c.Currency, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCourse inserts a new course.
func (r *CatalogueRepository) CreateCourse(ctx context.Context, c *model.Course) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO courses (university_id, name, level, application_fee, currency)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, (SELECT name FROM universities WHERE id = $1)`,
		c.UniversityID, c.Name, c.Level, c.ApplicationFee, c.Currency,
	).Scan(&c.ID, &c.CreatedAt, &c.UniversityName)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrDuplicateCourse
			case "23503":
				return ErrUniversityNotFound
			}
		}
		return err
	}
	return nil
}
