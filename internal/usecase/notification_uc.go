package usecase

import (
	"context"
	"log"

	"github.com/chedlikh/greenspace-notify/internal/domain"
	"github.com/chedlikh/greenspace-notify/internal/repository"
	"github.com/chedlikh/greenspace-notify/internal/xerrors"
	"github.com/chedlikh/greenspace-notify/pkg/notifier"
)

type NotificationUsecase struct {
	repo repository.Repository
	hub  *notifier.Hub
}

// NewNotificationUsecase creates a new NotificationUsecase with repo + hub
func NewNotificationUsecase(r repository.Repository, hub *notifier.Hub) *NotificationUsecase {
	return &NotificationUsecase{
		repo: r,
		hub:  hub,
	}
}

// CreateNotification stores the notification and pushes it to the owner's
// live connections. Push failures never fail the create.
func (uc *NotificationUsecase) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n.UserID == "" {
		return nil, xerrors.ErrInvalidInput
	}

	created, err := uc.repo.CreateNotification(ctx, n)
	if err != nil {
		return nil, err
	}

	wire := created.Wire()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Usecase] panic recovered in push: %v", r)
			}
		}()
		uc.hub.Send(created.UserID, domain.Frame{
			Type:         domain.FrameNewNotification,
			Notification: &wire,
		})
	}()

	return created, nil
}

func (uc *NotificationUsecase) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return uc.repo.ListNotificationsByUser(ctx, userID, limit, offset)
}

func (uc *NotificationUsecase) CountUnread(ctx context.Context, userID string) (int, error) {
	return uc.repo.CountUnreadNotifications(ctx, userID)
}

// MarkAsRead flips one notification and echoes a marked-read frame to all
// of the user's connections so every tab converges.
func (uc *NotificationUsecase) MarkAsRead(ctx context.Context, id int64, userID string) error {
	if id <= 0 {
		return xerrors.ErrInvalidInput
	}
	if err := uc.repo.MarkNotificationAsRead(ctx, id, userID); err != nil {
		return err
	}

	uc.hub.Send(userID, domain.Frame{
		Type:           domain.FrameMarkedRead,
		NotificationID: domain.FormatID(id),
	})
	return nil
}

// MarkAllAsRead flips the whole backlog and echoes marked-all-read.
func (uc *NotificationUsecase) MarkAllAsRead(ctx context.Context, userID string) error {
	if err := uc.repo.MarkAllNotificationsAsRead(ctx, userID); err != nil {
		return err
	}

	uc.hub.Send(userID, domain.Frame{Type: domain.FrameMarkedAllRead})
	return nil
}

func (uc *NotificationUsecase) ClearByUser(ctx context.Context, userID string) error {
	return uc.repo.DeleteNotificationsByUser(ctx, userID)
}
