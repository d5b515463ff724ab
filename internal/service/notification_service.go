package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/events"
	"github.com/spec-kit/employee-service/internal/repository"
	apperrors "github.com/spec-kit/employee-service/pkg/util/errorutil"
)

const defaultNotificationLimit = 50

// NotificationService stores notification records and announces them.
type NotificationService struct {
	repo       repository.NotificationRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(repo repository.NotificationRepository, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Create persists n unread and publishes EventNotificationCreated. A failing
// subscriber does not fail the create.
func (n *NotificationService) Create(ctx context.Context, record *domain.NotificationRecord) error {
	record.Read = false
	if err := n.repo.Create(ctx, record); err != nil {
		return err
	}
	if n.dispatcher == nil {
		return nil
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventNotificationCreated,
		EmployeeID: record.RecipientID,
		Timestamp:  time.Now().UTC(),
		Payload: events.NotificationCreatedPayload{
			NotificationID: record.ID,
			Type:           record.Type,
			Message:        record.Message,
			CreatedAt:      record.CreatedAt,
		},
	}
	if err := n.dispatcher.Publish(ctx, event); err != nil {
		n.logger.Warn("notification fan-out failed",
			zap.String("notification_id", record.ID),
			zap.String("recipient_id", record.RecipientID),
			zap.Error(err))
	}
	return nil
}

// List returns the recipient's notifications, newest first.
func (n *NotificationService) List(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.NotificationRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	records, err := n.repo.ListByRecipient(ctx, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if records == nil {
		records = []domain.NotificationRecord{}
	}
	return records, nil
}

// MarkRead flags one of the recipient's notifications as read.
func (n *NotificationService) MarkRead(ctx context.Context, recipientID, id string) error {
	err := n.repo.MarkRead(ctx, id, recipientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
	}
	if err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// RegisterHandlers subscribes audit logging to role events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRoleChanged, n.handleRoleChanged)
	n.dispatcher.Subscribe(events.EventSuperAdminTransferred, n.handleSuperAdminTransferred)
	n.dispatcher.Subscribe(events.EventPartialTransferFailure, n.handlePartialTransferFailure)
}

func (n *NotificationService) handleRoleChanged(_ context.Context, event events.Event) error {
	n.logger.Info("RoleChanged",
		zap.String("employee_id", event.EmployeeID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleSuperAdminTransferred(_ context.Context, event events.Event) error {
	n.logger.Info("SuperAdminTransferred",
		zap.String("employee_id", event.EmployeeID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handlePartialTransferFailure(_ context.Context, event events.Event) error {
	n.logger.Error("PartialTransferFailure: manual correction required",
		zap.String("employee_id", event.EmployeeID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	return nil
}
