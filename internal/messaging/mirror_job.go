package messaging

import (
	"context"

	"github.com/spec-kit/employee-service/internal/domain"
)

// MirrorRetryJob is a failed identity metadata write queued for another attempt.
type MirrorRetryJob struct {
	ExternalID string                  `json:"external_id"`
	EmployeeID string                  `json:"employee_id"`
	Metadata   domain.IdentityMetadata `json:"metadata"`
	Attempt    int                     `json:"attempt"`
}

// MirrorRetryQueue accepts retry jobs.
type MirrorRetryQueue interface {
	EnqueueMirrorRetry(ctx context.Context, job MirrorRetryJob) error
}

// EnqueueMirrorRetry publishes job on the queue.
func (q *RabbitQueue) EnqueueMirrorRetry(ctx context.Context, job MirrorRetryJob) error {
	return q.PublishJSON(ctx, job)
}
