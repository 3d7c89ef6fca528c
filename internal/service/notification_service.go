package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/internal/models"
	appErrors "github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/errors"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/jobs"
	"github.com/StrobelAbel/Golden-Light-School-bo-sub000/pkg/mailer"
)

// Well-known event types emitted by the domain services.
const (
	EventNewApplication       = "new_application"
	EventApplicationApproved  = "application_approved"
	EventApplicationsImported = "applications_imported"
	EventStudentsPromoted     = "students_promoted"
	EventPaymentReceived      = "payment_received"
	EventStudentStatusChanged = "student_status_changed"
	EventNewOrder             = "new_order"
	EventLowStock             = "low_stock"
	EventOutOfStock           = "out_of_stock"
)

// priorityRules maps event types to priorities. Centralized and table-driven
// so the assignment is deterministic and testable; unknown types fall back to
// low.
var priorityRules = map[string]models.NotificationPriority{
	EventOutOfStock:           models.NotificationPriorityUrgent,
	EventLowStock:             models.NotificationPriorityHigh,
	EventStudentsPromoted:     models.NotificationPriorityHigh,
	EventPaymentReceived:      models.NotificationPriorityMedium,
	EventNewApplication:       models.NotificationPriorityMedium,
	EventApplicationApproved:  models.NotificationPriorityMedium,
	EventApplicationsImported: models.NotificationPriorityMedium,
	EventNewOrder:             models.NotificationPriorityMedium,
	EventStudentStatusChanged: models.NotificationPriorityLow,
}

// PriorityFor resolves the priority for an event type.
func PriorityFor(eventType string) models.NotificationPriority {
	if p, ok := priorityRules[eventType]; ok {
		return p
	}
	return models.NotificationPriorityLow
}

// NotificationEvent is the payload domain services hand to the dispatcher.
// Priority is resolved from the type unless explicitly overridden.
type NotificationEvent struct {
	Type             string
	Category         models.NotificationCategory
	Title            string
	Message          string
	RelatedID        string
	Metadata         map[string]interface{}
	PriorityOverride models.NotificationPriority
}

// Notifier is the write-side contract domain services depend on. Dispatch is
// fire-and-forget: it must never fail the caller's mutation.
type Notifier interface {
	Dispatch(event NotificationEvent)
}

// NopNotifier discards events. Useful default for tests.
type NopNotifier struct{}

// Dispatch implements Notifier.
func (NopNotifier) Dispatch(NotificationEvent) {}

type notificationMetrics interface {
	ObserveNotification(eventType string)
}

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) (bool, error)
	MarkAllRead(ctx context.Context) error
}

// NotificationService classifies domain events, persists them through a
// background queue, and serves the admin inbox.
type NotificationService struct {
	repo        notificationRepository
	queue       *jobs.Queue
	sender      mailer.Sender
	adminEmails []string
	metrics     notificationMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NotificationServiceOption configures the service.
type NotificationServiceOption func(*NotificationService)

// WithNotificationClock overrides the clock, for tests.
func WithNotificationClock(now func() time.Time) NotificationServiceOption {
	return func(s *NotificationService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEmailFanout enables admin email delivery for dispatched events.
func WithEmailFanout(sender mailer.Sender, adminEmails []string) NotificationServiceOption {
	return func(s *NotificationService) {
		s.sender = sender
		s.adminEmails = adminEmails
	}
}

// WithNotificationMetrics wires dispatch counters.
func WithNotificationMetrics(metrics notificationMetrics) NotificationServiceOption {
	return func(s *NotificationService) {
		s.metrics = metrics
	}
}

// NewNotificationService constructs the notification service. Call Start to
// begin background dispatch and Stop on shutdown.
func NewNotificationService(repo notificationRepository, queueCfg jobs.QueueConfig, logger *zap.Logger, opts ...NotificationServiceOption) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	queueCfg.Logger = logger
	svc.queue = jobs.NewQueue("notifications", svc.handleJob, queueCfg)
	return svc
}

// Start launches the dispatch workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Dispatch classifies the event and enqueues it for persistence. Any failure
// is logged and swallowed so the primary mutation never observes it.
func (s *NotificationService) Dispatch(event NotificationEvent) {
	n := s.classify(event)
	if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: event.Type, Payload: n}); err != nil {
		s.logger.Warn("notification dropped", zap.String("type", event.Type), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveNotification(event.Type)
	}
}

func (s *NotificationService) classify(event NotificationEvent) *models.Notification {
	priority := event.PriorityOverride
	if priority == "" {
		priority = PriorityFor(event.Type)
	}

	var metadata json.RawMessage
	if len(event.Metadata) > 0 {
		if raw, err := json.Marshal(event.Metadata); err == nil {
			metadata = raw
		}
	}

	var relatedID *string
	if event.RelatedID != "" {
		relatedID = &event.RelatedID
	}

	// The ID is assigned here rather than at persistence time so queue log
	// lines can reference the notification before the row exists.
	return &models.Notification{
		ID:        uuid.NewString(),
		Type:      event.Type,
		Category:  event.Category,
		Priority:  priority,
		Title:     event.Title,
		Message:   event.Message,
		RelatedID: relatedID,
		Metadata:  metadata,
		CreatedAt: s.now().UTC(),
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(*models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	s.fanoutEmail(ctx, n)
	return nil
}

// fanoutEmail best-effort forwards high-signal notices to administrators.
// Send errors, including timeouts, are logged only.
func (s *NotificationService) fanoutEmail(ctx context.Context, n *models.Notification) {
	if s.sender == nil || len(s.adminEmails) == 0 {
		return
	}
	if n.Priority != models.NotificationPriorityHigh && n.Priority != models.NotificationPriorityUrgent {
		return
	}
	msg := mailer.Message{
		To:      s.adminEmails,
		Subject: fmt.Sprintf("[%s] %s", strings.ToUpper(string(n.Priority)), n.Title),
		Body:    n.Message,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Warn("notification email failed", zap.String("type", n.Type), zap.Error(err))
	}
}

// List returns inbox notifications plus pagination and the unread badge count.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, int, error) {
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	unread, err := s.repo.CountUnread(ctx)
	if err != nil {
		return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return notifications, pagination, unread, nil
}

// MarkRead flags one notification as read. Idempotent for already-read rows.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	ok, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead flags the whole inbox as read. Idempotent.
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	if err := s.repo.MarkAllRead(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}
