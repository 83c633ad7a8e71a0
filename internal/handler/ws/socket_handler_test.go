package wshandler

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/chedlikh/greenspace-notify/internal/domain"
	"github.com/chedlikh/greenspace-notify/internal/middleware"
	"github.com/chedlikh/greenspace-notify/internal/usecase"
	"github.com/chedlikh/greenspace-notify/internal/xerrors"
	"github.com/chedlikh/greenspace-notify/pkg/notifier"
)

type memRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Notification
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[int64]*domain.Notification)}
}

func (m *memRepo) CreateNotification(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	created := *n
	created.ID = m.nextID
	created.CreatedAt = time.Now()
	m.items[created.ID] = &created
	return &created, nil
}

func (m *memRepo) GetNotificationByID(_ context.Context, id int64) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *memRepo) ListNotificationsByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Notification, error) {
	return nil, nil
}

func (m *memRepo) MarkNotificationAsRead(_ context.Context, id int64, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[id]
	if !ok || n.UserID != userID {
		return xerrors.ErrNotFound
	}
	if n.ReadAt == nil {
		now := time.Now()
		n.ReadAt = &now
	}
	return nil
}

func (m *memRepo) MarkAllNotificationsAsRead(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, n := range m.items {
		if n.UserID == userID && n.ReadAt == nil {
			n.ReadAt = &now
		}
	}
	return nil
}

func (m *memRepo) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.items {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *memRepo) DeleteNotificationsByUser(_ context.Context, userID string) error {
	return nil
}

type wsEnv struct {
	srv  *httptest.Server
	repo *memRepo
	hub  *notifier.Hub
	uc   *usecase.NotificationUsecase
	auth *middleware.Auth
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	repo := newMemRepo()
	hub := notifier.NewHub()
	uc := usecase.NewNotificationUsecase(repo, hub)
	auth := middleware.NewAuth("test-secret")
	h := NewWSHandler(hub, uc)

	r := chi.NewRouter()
	r.With(auth.Middleware).Get("/ws/notifications", h.HandleNotifications)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &wsEnv{srv: srv, repo: repo, hub: hub, uc: uc, auth: auth}
}

// dial connects as userID using the token query parameter, the same path a
// browser websocket takes.
func (e *wsEnv) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := e.auth.IssueToken(userID, time.Minute)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws/notifications?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) domain.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f domain.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func waitConnections(t *testing.T, hub *notifier.Hub, userID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnectionCount(userID) == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("user %s never reached %d connections", userID, n)
}

func TestDialRequiresToken(t *testing.T) {
	env := newWSEnv(t)
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/notifications"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, 401, resp.StatusCode)
}

func TestCreatePushesToConnectedUser(t *testing.T) {
	env := newWSEnv(t)
	conn := env.dial(t, "u1")
	waitConnections(t, env.hub, "u1", 1)

	_, err := env.uc.CreateNotification(context.Background(), &domain.Notification{
		UserID:  "u1",
		Message: "deploy finished",
	})
	require.NoError(t, err)

	f := readFrame(t, conn)
	require.Equal(t, domain.FrameNewNotification, f.Type)
	require.NotNil(t, f.Notification)
	require.Equal(t, "1", f.Notification.ID)
	require.Equal(t, "deploy finished", f.Notification.Message)
	require.False(t, f.Notification.Read)
}

func TestMarkReadCommandFlipsAndEchoes(t *testing.T) {
	env := newWSEnv(t)
	created, err := env.repo.CreateNotification(context.Background(), &domain.Notification{
		UserID: "u1", Message: "flip me",
	})
	require.NoError(t, err)

	conn := env.dial(t, "u1")
	waitConnections(t, env.hub, "u1", 1)

	require.NoError(t, conn.WriteJSON(domain.Frame{
		Type:           domain.CmdMarkRead,
		NotificationID: domain.FormatID(created.ID),
	}))

	f := readFrame(t, conn)
	require.Equal(t, domain.FrameMarkedRead, f.Type)
	require.Equal(t, domain.FormatID(created.ID), f.NotificationID)

	n, err := env.repo.GetNotificationByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, n.ReadAt)
}

func TestMarkReadEchoReachesAllTabs(t *testing.T) {
	env := newWSEnv(t)
	created, err := env.repo.CreateNotification(context.Background(), &domain.Notification{
		UserID: "u1", Message: "shared backlog",
	})
	require.NoError(t, err)

	tab1 := env.dial(t, "u1")
	tab2 := env.dial(t, "u1")
	waitConnections(t, env.hub, "u1", 2)

	require.NoError(t, tab1.WriteJSON(domain.Frame{
		Type:           domain.CmdMarkRead,
		NotificationID: domain.FormatID(created.ID),
	}))

	for _, conn := range []*websocket.Conn{tab1, tab2} {
		f := readFrame(t, conn)
		require.Equal(t, domain.FrameMarkedRead, f.Type)
	}
}

func TestBadCommandsKeepConnectionAlive(t *testing.T) {
	env := newWSEnv(t)
	_, err := env.repo.CreateNotification(context.Background(), &domain.Notification{
		UserID: "u1", Message: "still unread",
	})
	require.NoError(t, err)

	conn := env.dial(t, "u1")
	waitConnections(t, env.hub, "u1", 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{not json`)))
	require.NoError(t, conn.WriteJSON(domain.Frame{Type: "resync-everything"}))
	require.NoError(t, conn.WriteJSON(domain.Frame{Type: domain.CmdMarkRead, NotificationID: "abc"}))

	// A well-formed command still works after all of the above.
	require.NoError(t, conn.WriteJSON(domain.Frame{Type: domain.CmdMarkAllRead}))

	f := readFrame(t, conn)
	require.Equal(t, domain.FrameMarkedAllRead, f.Type)

	count, err := env.repo.CountUnreadNotifications(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 0, count)
}
