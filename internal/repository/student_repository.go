package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/abroad-backend/internal/model"
)

var ErrDuplicateStudentEmail = errors.New("student with this email already exists")

// Section is a JSONB profile column that is saved as a whole.
type Section string

const (
	SectionPersonalInfo          Section = "personal_info"
	SectionAcademicQualification Section = "academic_qualification"
	SectionDocuments             Section = "documents"
	SectionWorkExperiences       Section = "work_experiences"
)

func (s Section) valid() bool {
	switch s {
	case SectionPersonalInfo, SectionAcademicQualification, SectionDocuments, SectionWorkExperiences:
		return true
	}
	return false
}

const studentColumns = `id, first_name, last_name, email, phone, counselor_id,
	personal_info, academic_qualification, documents, work_experiences, created_at, updated_at`

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	var (
		s                                  model.Student
		personal, academic, docs, workExps []byte
	)
	err := row.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.CounselorID,
		&personal, &academic, &docs, &workExps, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.PersonalInfo = model.DecodeSection[model.PersonalInfo](personal)
	s.AcademicQualification = model.DecodeSection[model.AcademicQualification](academic)
	s.Documents = model.DecodeSection[model.Documents](docs)
	if we := model.DecodeSection[[]model.WorkExperience](workExps); we != nil {
		s.WorkExperiences = *we
	} else {
		s.WorkExperiences = []model.WorkExperience{}
	}
	return &s, nil
}

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*model.Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
}

// ListPaginated retrieves students ordered by newest first, optionally
// filtered by a case-insensitive name or email search.
func (r *StudentRepository) ListPaginated(ctx context.Context, search string, limit, offset int) ([]model.Student, int, error) {
	where := ""
	var args []any
	if search != "" {
		where = ` WHERE (first_name || ' ' || last_name) ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	argIdx := len(args) + 1
	query := `SELECT ` + studentColumns + ` FROM students` + where +
		` ORDER BY created_at DESC, id LIMIT $` + strconv.Itoa(argIdx) + ` OFFSET $` + strconv.Itoa(argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, err
		}
		students = append(students, *s)
	}
	return students, total, rows.Err()
}

// Create inserts a new student with whatever profile sections are set.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	personal, err := encodeSection(s.PersonalInfo)
	if err != nil {
		return err
	}
	academic, err := encodeSection(s.AcademicQualification)
	if err != nil {
		return err
	}
	docs, err := encodeSection(s.Documents)
	if err != nil {
		return err
	}
	if s.WorkExperiences == nil {
		s.WorkExperiences = []model.WorkExperience{}
	}
	workExps, err := json.Marshal(s.WorkExperiences)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO students (first_name, last_name, email, phone, counselor_id,
			personal_info, academic_qualification, documents, work_experiences)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		s.FirstName, s.LastName, s.Email, s.Phone, s.CounselorID, personal, academic, docs, workExps,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapStudentWriteErr(err)
}

// Update modifies a student's identity fields.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students SET first_name = $1, last_name = $2, email = $3, phone = $4, counselor_id = $5,
			updated_at = CURRENT_TIMESTAMP
		 WHERE id = $6`,
		s.FirstName, s.LastName, s.Email, s.Phone, s.CounselorID, s.ID,
	)
	if err != nil {
		return mapStudentWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SaveSection replaces one JSONB profile section.
func (r *StudentRepository) SaveSection(ctx context.Context, id string, section Section, value any) error {
	if !section.valid() {
		return fmt.Errorf("unknown profile section %q", section)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE students SET `+string(section)+` = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		raw, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a student. Applications, conversations and messages go
// with it via ON DELETE CASCADE.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func encodeSection[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func mapStudentWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateStudentEmail
	}
	return err
}
