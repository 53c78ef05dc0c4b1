package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/abroad-backend/internal/model"
)

var ErrApplicationReference = errors.New("student or course of the application does not exist")

const applicationSelect = `SELECT a.id, a.student_id, c.id, c.name, c.application_fee::float8, u.id, u.name,
	a.intake, a.year, a.status, a.priority, a.payment_document, a.payment_verified_at, a.created_at, a.updated_at
	FROM applications a
	JOIN courses c ON c.id = a.course_id
	JOIN universities u ON u.id = c.university_id`

// ApplicationRepository handles applications and their conversations.
type ApplicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository creates a new ApplicationRepository.
func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{pool: pool}
}

func scanApplication(row pgx.Row) (*model.Application, error) {
	var (
		a        model.Application
		priority *string
		payment  []byte
	)
	err := row.Scan(&a.ID, &a.StudentID, &a.Course.ID, &a.Course.Name, &a.Course.ApplicationFee,
		&a.University.ID, &a.University.Name, &a.Intake, &a.Year, &a.Status, &priority,
		&payment, &a.PaymentVerifiedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if priority != nil {
		p := model.Priority(*priority)
		a.Priority = &p
	}
	a.PaymentDocument = model.DecodeSection[model.StoredFile](payment)
	return &a, nil
}

// GetByID retrieves an application with its conversations.
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*model.Application, error) {
	a, err := scanApplication(r.pool.QueryRow(ctx, applicationSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, err
	}
	a.Conversations, err = r.listConversations(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListByStudent retrieves a student's applications, newest first.
func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]model.Application, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM applications WHERE student_id = $1`, studentID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		applicationSelect+` WHERE a.student_id = $1 ORDER BY a.created_at DESC, a.id LIMIT $2 OFFSET $3`,
		studentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	apps := []model.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		apps = append(apps, *a)
	}
	return apps, total, rows.Err()
}

// Create inserts an application together with its admin team conversation.
func (r *ApplicationRepository) Create(ctx context.Context, a *model.Application) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO applications (student_id, course_id, intake, year, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		a.StudentID, a.Course.ID, a.Intake, a.Year, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrApplicationReference
		}
		return err
	}

	conv := model.Conversation{ApplicationID: a.ID, Type: model.ConversationAdminTeam}
	if err := tx.QueryRow(ctx,
		`INSERT INTO conversations (application_id, type) VALUES ($1, $2) RETURNING id, created_at`,
		conv.ApplicationID, conv.Type,
	).Scan(&conv.ID, &conv.CreatedAt); err != nil {
		return err
	}
	a.Conversations = []model.Conversation{conv}

	return tx.Commit(ctx)
}

// Transition locks an application row, lets apply mutate it, and persists
// the status, priority and payment columns if apply succeeds. Concurrent
// transitions on one application are serialized by the row lock.
func (r *ApplicationRepository) Transition(ctx context.Context, id string, apply func(*model.Application) error) (*model.Application, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	a, err := scanApplication(tx.QueryRow(ctx, applicationSelect+` WHERE a.id = $1 FOR UPDATE OF a`, id))
	if err != nil {
		return nil, err
	}
	if err := apply(a); err != nil {
		return nil, err
	}

	payment, err := encodeSection(a.PaymentDocument)
	if err != nil {
		return nil, err
	}
	var priority *string
	if a.Priority != nil {
		p := string(*a.Priority)
		priority = &p
	}
	a.UpdatedAt = time.Now().UTC()
	if _, err := tx.Exec(ctx,
		`UPDATE applications SET status = $1, priority = $2, payment_document = $3,
			payment_verified_at = $4, updated_at = $5
		 WHERE id = $6`,
		a.Status, priority, payment, a.PaymentVerifiedAt, a.UpdatedAt, a.ID,
	); err != nil {
		return nil, err
	}

	a.Conversations, err = r.listConversations(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return a, tx.Commit(ctx)
}

// Delete removes an application and, by cascade, its conversations.
func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *ApplicationRepository) listConversations(ctx context.Context, q querier, applicationID string) ([]model.Conversation, error) {
	rows, err := q.Query(ctx,
		`SELECT id, application_id, type, created_at FROM conversations
		 WHERE application_id = $1 ORDER BY created_at`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := []model.Conversation{}
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.ApplicationID, &c.Type, &c.CreatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}
