package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chedlikh/greenspace-notify/internal/domain"
	"github.com/chedlikh/greenspace-notify/internal/xerrors"
)

// Repository aggregates all notification DB operations
type Repository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	GetNotificationByID(ctx context.Context, id int64) (*domain.Notification, error)
	ListNotificationsByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, error)
	MarkNotificationAsRead(ctx context.Context, id int64, userID string) error
	MarkAllNotificationsAsRead(ctx context.Context, userID string) error
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	DeleteNotificationsByUser(ctx context.Context, userID string) error
}

type pgRepo struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &pgRepo{db: db}
}

// CreateNotification implements Repository.
func (p *pgRepo) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n.RequestID == "" {
		n.RequestID = uuid.New().String()
	}
	if n.Type == "" {
		n.Type = string(domain.General)
	}

	query := `
		INSERT INTO notifications (
			request_id, user_id, type, message, read_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
		RETURNING id, request_id, user_id, type, message, read_at, created_at
	`

	row := p.db.QueryRow(ctx, query,
		n.RequestID,
		n.UserID,
		n.Type,
		n.Message,
		n.ReadAt,
	)

	var created domain.Notification
	err := row.Scan(
		&created.ID,
		&created.RequestID,
		&created.UserID,
		&created.Type,
		&created.Message,
		&created.ReadAt,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// GetNotificationByID implements Repository.
func (p *pgRepo) GetNotificationByID(ctx context.Context, id int64) (*domain.Notification, error) {
	query := `
		SELECT id, request_id, user_id, type, message, read_at, created_at
		FROM notifications
		WHERE id = $1
	`

	row := p.db.QueryRow(ctx, query, id)

	var n domain.Notification
	err := row.Scan(
		&n.ID,
		&n.RequestID,
		&n.UserID,
		&n.Type,
		&n.Message,
		&n.ReadAt,
		&n.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}

	return &n, nil
}

// ListNotificationsByUser implements Repository.
func (p *pgRepo) ListNotificationsByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, error) {
	query := `
		SELECT id, request_id, user_id, type, message, read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		err := rows.Scan(
			&n.ID,
			&n.RequestID,
			&n.UserID,
			&n.Type,
			&n.Message,
			&n.ReadAt,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return notifications, nil
}

// MarkNotificationAsRead implements Repository. Marking an already-read
// notification is a no-op, not an error; only a missing row is ErrNotFound.
func (p *pgRepo) MarkNotificationAsRead(ctx context.Context, id int64, userID string) error {
	query := `
		UPDATE notifications
		SET read_at = NOW()
		WHERE id = $1
		  AND user_id = $2
		  AND read_at IS NULL
	`

	ct, err := p.db.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = p.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1 AND user_id = $2)`,
		id, userID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return xerrors.ErrNotFound
	}
	return nil
}

// MarkAllNotificationsAsRead implements Repository.
func (p *pgRepo) MarkAllNotificationsAsRead(ctx context.Context, userID string) error {
	query := `
		UPDATE notifications
		SET read_at = NOW()
		WHERE user_id = $1
		  AND read_at IS NULL
	`

	_, err := p.db.Exec(ctx, query, userID)
	return err
}

// CountUnreadNotifications implements Repository.
func (p *pgRepo) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE user_id = $1
		  AND read_at IS NULL
	`

	var count int
	err := p.db.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteNotificationsByUser implements Repository.
func (p *pgRepo) DeleteNotificationsByUser(ctx context.Context, userID string) error {
	query := `DELETE FROM notifications WHERE user_id = $1`

	_, err := p.db.Exec(ctx, query, userID)
	return err
}
