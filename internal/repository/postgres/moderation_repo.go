package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pysend/pysend/internal/domain"
)

type ModerationRepo struct {
	pool *pgxpool.Pool
}

func NewModerationRepo(pool *pgxpool.Pool) *ModerationRepo {
	return &ModerationRepo{pool: pool}
}

func (r *ModerationRepo) ActiveChannelBan(ctx context.Context, channelID, userID uuid.UUID, now time.Time) (*domain.ChannelBan, error) {
	query := `
		SELECT id, channel_id, user_id, banned_by, reason, banned_until, created_at
		FROM channel_bans
		WHERE channel_id = $1 AND user_id = $2 AND banned_until > $3
		ORDER BY banned_until DESC
		LIMIT 1`
	var ban domain.ChannelBan
	err := r.pool.QueryRow(ctx, query, channelID, userID, now).Scan(
		&ban.ID, &ban.ChannelID, &ban.UserID, &ban.BannedBy, &ban.Reason, &ban.BannedUntil, &ban.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

func (r *ModerationRepo) ActivePlatformBan(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.PlatformBan, error) {
	query := `
		SELECT id, user_id, banned_by, reason, banned_until, created_at
		FROM platform_bans
		WHERE user_id = $1 AND banned_until > $2
		ORDER BY banned_until DESC
		LIMIT 1`
	var ban domain.PlatformBan
	err := r.pool.QueryRow(ctx, query, userID, now).Scan(
		&ban.ID, &ban.UserID, &ban.BannedBy, &ban.Reason, &ban.BannedUntil, &ban.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

func (r *ModerationRepo) CreateChannelBan(ctx context.Context, ban *domain.ChannelBan) error {
	query := `
		INSERT INTO channel_bans (id, channel_id, user_id, banned_by, reason, banned_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		ban.ID, ban.ChannelID, ban.UserID, ban.BannedBy, ban.Reason, ban.BannedUntil, ban.CreatedAt,
	)
	return err
}

func (r *ModerationRepo) CreatePlatformBan(ctx context.Context, ban *domain.PlatformBan) error {
	query := `
		INSERT INTO platform_bans (id, user_id, banned_by, reason, banned_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query,
		ban.ID, ban.UserID, ban.BannedBy, ban.Reason, ban.BannedUntil, ban.CreatedAt,
	)
	return err
}

func (r *ModerationRepo) CreateNotice(ctx context.Context, n *domain.ModerationNotice) error {
	query := `
		INSERT INTO moderation_notices (id, user_id, issued_by, channel_id, notice_type, reason, details, seen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		n.ID, n.UserID, n.IssuedBy, n.ChannelID, n.NoticeType, n.Reason, n.Details, n.Seen, n.CreatedAt,
	)
	return err
}

func (r *ModerationRepo) ListUnseenNotices(ctx context.Context, userID uuid.UUID) ([]domain.ModerationNotice, error) {
	query := `
		SELECT id, user_id, issued_by, channel_id, notice_type, reason, details, seen, created_at
		FROM moderation_notices
		WHERE user_id = $1 AND NOT seen
		ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notices []domain.ModerationNotice
	for rows.Next() {
		var n domain.ModerationNotice
		if err := rows.Scan(&n.ID, &n.UserID, &n.IssuedBy, &n.ChannelID, &n.NoticeType,
			&n.Reason, &n.Details, &n.Seen, &n.CreatedAt); err != nil {
			return nil, err
		}
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

func (r *ModerationRepo) MarkNoticesSeen(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE moderation_notices SET seen = TRUE WHERE user_id = $1 AND NOT seen`, userID)
	return err
}

func (r *ModerationRepo) CreateRequest(ctx context.Context, req *domain.ModerationRequest) error {
	query := `
		INSERT INTO moderation_requests (id, channel_id, requester_id, target_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query,
		req.ID, req.ChannelID, req.RequesterID, req.TargetID, req.Reason, req.Status, req.CreatedAt,
	)
	return err
}

func (r *ModerationRepo) GetChannelRole(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelRole, error) {
	query := `SELECT channel_id, user_id, role, granted_by, created_at
		FROM channel_roles WHERE channel_id = $1 AND user_id = $2`
	var role domain.ChannelRole
	err := r.pool.QueryRow(ctx, query, channelID, userID).Scan(
		&role.ChannelID, &role.UserID, &role.Role, &role.GrantedBy, &role.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *ModerationRepo) ListChannelRoles(ctx context.Context, channelID uuid.UUID) ([]domain.ChannelRole, error) {
	query := `SELECT channel_id, user_id, role, granted_by, created_at
		FROM channel_roles WHERE channel_id = $1`
	rows, err := r.pool.Query(ctx, query, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.ChannelRole
	for rows.Next() {
		var role domain.ChannelRole
		if err := rows.Scan(&role.ChannelID, &role.UserID, &role.Role, &role.GrantedBy, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *ModerationRepo) UpsertChannelRole(ctx context.Context, role *domain.ChannelRole) error {
	query := `
		INSERT INTO channel_roles (channel_id, user_id, role, granted_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel_id, user_id) DO UPDATE SET role = EXCLUDED.role, granted_by = EXCLUDED.granted_by`
	_, err := r.pool.Exec(ctx, query,
		role.ChannelID, role.UserID, role.Role, role.GrantedBy, role.CreatedAt,
	)
	return err
}

func (r *ModerationRepo) CountGuardians(ctx context.Context, channelID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM channel_roles WHERE channel_id = $1 AND role = $2`,
		channelID, domain.RoleGuardian,
	).Scan(&count)
	return count, err
}
