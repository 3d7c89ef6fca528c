package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
	appErrors "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/errors"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/jobs"
)

type mockNotificationRepo struct {
	mu      sync.Mutex
	created []*models.Notification
	read    map[string]bool
	unread  int
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Notification, 0, len(m.created))
	for _, n := range m.created {
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context) (int, error) {
	return m.unread, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id string) (bool, error) {
	if m.read == nil {
		return false, nil
	}
	_, ok := m.read[id]
	return ok, nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context) error {
	return nil
}

func (m *mockNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

func TestPriorityFor(t *testing.T) {
	tests := []struct {
		eventType string
		want      models.NotificationPriority
	}{
		{EventOutOfStock, models.NotificationPriorityUrgent},
		{EventLowStock, models.NotificationPriorityHigh},
		{EventStudentsPromoted, models.NotificationPriorityHigh},
		{EventPaymentReceived, models.NotificationPriorityMedium},
		{EventNewApplication, models.NotificationPriorityMedium},
		{EventApplicationApproved, models.NotificationPriorityMedium},
		{EventApplicationsImported, models.NotificationPriorityMedium},
		{EventNewOrder, models.NotificationPriorityMedium},
		{EventStudentStatusChanged, models.NotificationPriorityLow},
		{"something_nobody_registered", models.NotificationPriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.want, PriorityFor(tt.eventType))
		})
	}
}

func TestNotificationClassify(t *testing.T) {
	svc := NewNotificationService(&mockNotificationRepo{}, jobs.QueueConfig{}, zap.NewNop(),
		WithNotificationClock(func() time.Time {
			return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
		}),
	)

	n := svc.classify(NotificationEvent{
		Type:      EventPaymentReceived,
		Category:  models.NotificationCategoryPayments,
		Title:     "Payment received",
		Message:   "Jane Doe paid 200.00",
		RelatedID: "s1",
		Metadata:  map[string]interface{}{"amount": 200.0},
	})
	// The ID exists before persistence so queue log lines can carry it.
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, models.NotificationPriorityMedium, n.Priority)
	assert.Equal(t, models.NotificationCategoryPayments, n.Category)
	require.NotNil(t, n.RelatedID)
	assert.Equal(t, "s1", *n.RelatedID)
	assert.NotEmpty(t, n.Metadata)
	assert.Equal(t, time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC), n.CreatedAt)

	override := svc.classify(NotificationEvent{
		Type:             EventPaymentReceived,
		PriorityOverride: models.NotificationPriorityHigh,
	})
	assert.Equal(t, models.NotificationPriorityHigh, override.Priority)
}

func TestNotificationDispatchPersists(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, jobs.QueueConfig{Workers: 1, BufferSize: 4}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	svc.Dispatch(NotificationEvent{
		Type:     EventNewApplication,
		Category: models.NotificationCategoryAdmissions,
		Title:    "New application",
		Message:  "Jane Doe applied",
	})

	require.Eventually(t, func() bool {
		return repo.count() == 1
	}, time.Second, 10*time.Millisecond)
	svc.Stop()

	assert.Equal(t, EventNewApplication, repo.created[0].Type)
}

func TestNotificationDispatchBeforeStartIsSwallowed(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, jobs.QueueConfig{}, zap.NewNop())

	// Must not panic or fail the caller.
	svc.Dispatch(NotificationEvent{Type: EventNewOrder})
	assert.Equal(t, 0, repo.count())
}

func TestNotificationMarkRead(t *testing.T) {
	repo := &mockNotificationRepo{read: map[string]bool{"n1": true}}
	svc := NewNotificationService(repo, jobs.QueueConfig{}, zap.NewNop())

	require.NoError(t, svc.MarkRead(context.Background(), "n1"))

	err := svc.MarkRead(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestNotificationListReturnsUnreadCount(t *testing.T) {
	repo := &mockNotificationRepo{unread: 3}
	repo.created = []*models.Notification{{ID: "n1", Type: EventNewOrder}}
	svc := NewNotificationService(repo, jobs.QueueConfig{}, zap.NewNop())

	items, pagination, unread, err := svc.List(context.Background(), models.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 3, unread)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.TotalCount)
}
