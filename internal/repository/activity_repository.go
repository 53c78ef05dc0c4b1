package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/abroad-backend/internal/model"
)

// ActivityRepository persists the application audit trail.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// ListByApplication returns an application's activity, newest first.
func (r *ActivityRepository) ListByApplication(ctx context.Context, applicationID string) ([]model.Activity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, application_id, actor_id, actor_role, kind, from_value, to_value, created_at
		 FROM application_activities WHERE application_id = $1
		 ORDER BY created_at DESC, id DESC`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		var a model.Activity
		if err := rows.Scan(&a.ID, &a.ApplicationID, &a.ActorID, &a.ActorRole, &a.Kind,
			&a.From, &a.To, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// BulkInsert writes a batch of activities with COPY.
func (r *ActivityRepository) BulkInsert(ctx context.Context, batch []model.Activity) error {
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"application_activities"},
		[]string{"application_id", "actor_id", "actor_role", "kind", "from_value", "to_value", "created_at"},
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			a := batch[i]
			appID, err := uuid.Parse(a.ApplicationID)
			if err != nil {
				return nil, err
			}
			return []any{appID, a.ActorID, string(a.ActorRole), string(a.Kind), a.From, a.To, a.CreatedAt}, nil
		}),
	)
	return err
}

// Insert writes a single activity.
func (r *ActivityRepository) Insert(ctx context.Context, a model.Activity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO application_activities (application_id, actor_id, actor_role, kind, from_value, to_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ApplicationID, a.ActorID, a.ActorRole, a.Kind, a.From, a.To, a.CreatedAt,
	)
	return err
}
