package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pysend/pysend/internal/domain"
)

type MembershipRepo struct {
	pool *pgxpool.Pool
}

func NewMembershipRepo(pool *pgxpool.Pool) *MembershipRepo {
	return &MembershipRepo{pool: pool}
}

func (r *MembershipRepo) Upsert(ctx context.Context, membership domain.Membership) error {
	query := `
		INSERT INTO channel_members (channel_id, user_id, last_seen)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id, user_id) DO UPDATE SET last_seen = EXCLUDED.last_seen`
	_, err := r.pool.Exec(ctx, query, membership.ChannelID, membership.UserID, membership.LastSeen)
	return err
}

func (r *MembershipRepo) CountActive(ctx context.Context, channelID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM channel_members WHERE channel_id = $1 AND last_seen >= $2`,
		channelID, since,
	).Scan(&count)
	return count, err
}
