package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chedlikh/greenspace-notify/internal/domain"
	"github.com/chedlikh/greenspace-notify/internal/xerrors"
	"github.com/chedlikh/greenspace-notify/pkg/notifier"
)

// stubRepo records the last call so tests can assert what the usecase
// forwarded to storage.
type stubRepo struct {
	created    *domain.Notification
	lastLimit  int
	lastMarkID int64
	markErr    error
}

func (s *stubRepo) CreateNotification(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	cp := *n
	cp.ID = 1
	s.created = &cp
	return &cp, nil
}

func (s *stubRepo) GetNotificationByID(_ context.Context, id int64) (*domain.Notification, error) {
	return nil, xerrors.ErrNotFound
}

func (s *stubRepo) ListNotificationsByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Notification, error) {
	s.lastLimit = limit
	return nil, nil
}

func (s *stubRepo) MarkNotificationAsRead(_ context.Context, id int64, userID string) error {
	s.lastMarkID = id
	return s.markErr
}

func (s *stubRepo) MarkAllNotificationsAsRead(_ context.Context, userID string) error {
	return s.markErr
}

func (s *stubRepo) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	return 0, nil
}

func (s *stubRepo) DeleteNotificationsByUser(_ context.Context, userID string) error {
	return nil
}

func newUC(repo *stubRepo) *NotificationUsecase {
	return NewNotificationUsecase(repo, notifier.NewHub())
}

func TestCreateNotificationRequiresUser(t *testing.T) {
	repo := &stubRepo{}
	_, err := newUC(repo).CreateNotification(context.Background(), &domain.Notification{Message: "orphan"})
	require.ErrorIs(t, err, xerrors.ErrInvalidInput)
	require.Nil(t, repo.created, "validation failures must not reach storage")
}

func TestCreateNotificationStores(t *testing.T) {
	repo := &stubRepo{}
	created, err := newUC(repo).CreateNotification(context.Background(), &domain.Notification{
		UserID:  "u1",
		Message: "hello",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID)
	require.Equal(t, "u1", repo.created.UserID)
}

func TestListByUserDefaultsLimit(t *testing.T) {
	repo := &stubRepo{}
	uc := newUC(repo)

	_, err := uc.ListByUser(context.Background(), "u1", 0, 0)
	require.NoError(t, err)
	require.Equal(t, 50, repo.lastLimit)

	_, err = uc.ListByUser(context.Background(), "u1", 5, 0)
	require.NoError(t, err)
	require.Equal(t, 5, repo.lastLimit)
}

func TestMarkAsReadValidatesID(t *testing.T) {
	repo := &stubRepo{}
	uc := newUC(repo)

	require.ErrorIs(t, uc.MarkAsRead(context.Background(), 0, "u1"), xerrors.ErrInvalidInput)
	require.ErrorIs(t, uc.MarkAsRead(context.Background(), -3, "u1"), xerrors.ErrInvalidInput)
	require.Zero(t, repo.lastMarkID)
}

func TestMarkAsReadPropagatesRepoError(t *testing.T) {
	repo := &stubRepo{markErr: xerrors.ErrNotFound}
	err := newUC(repo).MarkAsRead(context.Background(), 7, "u1")
	require.True(t, errors.Is(err, xerrors.ErrNotFound))
	require.Equal(t, int64(7), repo.lastMarkID)
}
