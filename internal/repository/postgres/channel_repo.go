package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pysend/pysend/internal/domain"
)

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

const channelColumns = `id, name, icon, description, rules, created_by, is_dm, dm_pair, created_at`

func (r *ChannelRepo) Create(ctx context.Context, ch *domain.Channel) error {
	query := `
		INSERT INTO channels (id, name, icon, description, rules, created_by, is_dm, dm_pair, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		ch.ID, ch.Name, ch.Icon, ch.Description, ch.Rules, ch.CreatedBy, ch.IsDM, ch.DMPair, ch.CreatedAt,
	)
	return err
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	return r.getBy(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
}

func (r *ChannelRepo) GetByDMPair(ctx context.Context, pair string) (*domain.Channel, error) {
	return r.getBy(ctx, `SELECT `+channelColumns+` FROM channels WHERE dm_pair = $1`, pair)
}

func (r *ChannelRepo) getBy(ctx context.Context, query string, arg any) (*domain.Channel, error) {
	var ch domain.Channel
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ch.ID, &ch.Name, &ch.Icon, &ch.Description, &ch.Rules, &ch.CreatedBy, &ch.IsDM, &ch.DMPair, &ch.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChannelRepo) ListPublic(ctx context.Context) ([]domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE NOT is_dm ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

func (r *ChannelRepo) ListDMsByMember(ctx context.Context, userID uuid.UUID) ([]domain.Channel, error) {
	query := `
		SELECT c.id, c.name, c.icon, c.description, c.rules, c.created_by, c.is_dm, c.dm_pair, c.created_at
		FROM channels c
		JOIN channel_members m ON m.channel_id = c.id
		WHERE c.is_dm AND m.user_id = $1
		ORDER BY c.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannels(rows)
}

func (r *ChannelRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	return err
}

func scanChannels(rows pgx.Rows) ([]domain.Channel, error) {
	var channels []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Icon, &ch.Description, &ch.Rules,
			&ch.CreatedBy, &ch.IsDM, &ch.DMPair, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}
