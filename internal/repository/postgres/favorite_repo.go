package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pysend/pysend/internal/domain"
)

type FavoriteRepo struct {
	pool *pgxpool.Pool
}

func NewFavoriteRepo(pool *pgxpool.Pool) *FavoriteRepo {
	return &FavoriteRepo{pool: pool}
}

func (r *FavoriteRepo) Add(ctx context.Context, favorite domain.Favorite) error {
	query := `
		INSERT INTO favorites (user_id, channel_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, channel_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, favorite.UserID, favorite.ChannelID, favorite.CreatedAt)
	return err
}

func (r *FavoriteRepo) Remove(ctx context.Context, userID, channelID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND channel_id = $2`, userID, channelID)
	return err
}

func (r *FavoriteRepo) List(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT channel_id FROM favorites WHERE user_id = $1`, userID)
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

func (r *FavoriteRepo) Has(ctx context.Context, userID, channelID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND channel_id = $2)`,
		userID, channelID,
	).Scan(&exists)
	return exists, err
}
