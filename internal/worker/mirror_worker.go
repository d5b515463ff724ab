package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/messaging"
	"github.com/spec-kit/employee-service/internal/service"
)

// DeliverySource yields queued mirror retry messages.
type DeliverySource interface {
	Consume(consumer string) (<-chan amqp.Delivery, error)
}

// EmployeeLookup reads the authoritative profile a retry job refers to.
type EmployeeLookup interface {
	GetByID(ctx context.Context, id string) (*domain.EmployeeProfile, error)
}

// MirrorWorker replays failed identity metadata writes.
type MirrorWorker struct {
	source      DeliverySource
	requeue     messaging.MirrorRetryQueue
	employees   EmployeeLookup
	mirror      service.MetadataMirror
	maxAttempts int
	delay       time.Duration
	logger      *zap.Logger
}

// NewMirrorWorker builds the worker. Jobs that still fail after maxAttempts
// are dropped with an error log.
func NewMirrorWorker(source DeliverySource, requeue messaging.MirrorRetryQueue, employees EmployeeLookup, mirror service.MetadataMirror, maxAttempts int, delay time.Duration, logger *zap.Logger) *MirrorWorker {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MirrorWorker{
		source:      source,
		requeue:     requeue,
		employees:   employees,
		mirror:      mirror,
		maxAttempts: maxAttempts,
		delay:       delay,
		logger:      logger,
	}
}

// Run consumes until ctx ends or the delivery channel closes.
func (w *MirrorWorker) Run(ctx context.Context) error {
	deliveries, err := w.source.Consume("mirror-worker")
	if err != nil {
		return err
	}
	w.logger.Info("mirror worker started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				w.logger.Warn("mirror retry deliveries closed")
				return nil
			}
			var job messaging.MirrorRetryJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				w.logger.Error("malformed mirror retry job", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			if err := w.Handle(ctx, job); err != nil {
				if ctx.Err() != nil {
					_ = d.Nack(false, true)
					return nil
				}
				w.logger.Warn("mirror retry handling failed", zap.String("employee_id", job.EmployeeID), zap.Error(err))
			}
			_ = d.Ack(false)
		}
	}
}

// Handle performs one attempt for job, re-queueing it after the configured
// delay while attempts remain. The role written is the profile's current role,
// not the one captured when the job was queued.
func (w *MirrorWorker) Handle(ctx context.Context, job messaging.MirrorRetryJob) error {
	err := w.refreshRole(ctx, &job)
	if errors.Is(err, pgx.ErrNoRows) {
		w.logger.Warn("mirror retry dropped; employee no longer exists",
			zap.String("employee_id", job.EmployeeID))
		return nil
	}
	if err == nil {
		err = w.mirror.SetMetadata(ctx, job.ExternalID, job.Metadata)
	}
	if err == nil {
		w.logger.Info("identity metadata mirrored on retry",
			zap.String("employee_id", job.EmployeeID),
			zap.Int("attempt", job.Attempt))
		return nil
	}

	if job.Attempt >= w.maxAttempts {
		w.logger.Error("identity metadata mirror abandoned",
			zap.String("employee_id", job.EmployeeID),
			zap.String("external_id", job.ExternalID),
			zap.Int("attempts", job.Attempt),
			zap.Error(err))
		return nil
	}

	if w.delay > 0 {
		timer := time.NewTimer(w.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	job.Attempt++
	return w.requeue.EnqueueMirrorRetry(ctx, job)
}

func (w *MirrorWorker) refreshRole(ctx context.Context, job *messaging.MirrorRetryJob) error {
	if w.employees == nil || job.EmployeeID == "" {
		return nil
	}
	emp, err := w.employees.GetByID(ctx, job.EmployeeID)
	if err != nil {
		return err
	}
	role := emp.Role
	job.Metadata.Role = &role
	return nil
}
