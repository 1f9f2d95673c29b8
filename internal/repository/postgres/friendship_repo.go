package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pysend/pysend/internal/domain"
)

type FriendshipRepo struct {
	pool *pgxpool.Pool
}

func NewFriendshipRepo(pool *pgxpool.Pool) *FriendshipRepo {
	return &FriendshipRepo{pool: pool}
}

func (r *FriendshipRepo) Upsert(ctx context.Context, f *domain.Friendship) error {
	query := `
		INSERT INTO friendships (user_id, friend_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, friend_id) DO UPDATE SET status = EXCLUDED.status`
	_, err := r.pool.Exec(ctx, query, f.UserID, f.FriendID, f.Status, f.CreatedAt)
	return err
}

func (r *FriendshipRepo) ListFriendIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT friend_id FROM friendships WHERE user_id = $1 AND status = $2`,
		userID, domain.FriendAccepted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
