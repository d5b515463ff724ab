package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/messaging"
)

// advisoryMirror writes identity metadata best-effort. A failed write is
// queued for retry and reported as a warning.
type advisoryMirror struct {
	mirror  MetadataMirror
	retries messaging.MirrorRetryQueue
	logger  *zap.Logger
}

func (m advisoryMirror) write(ctx context.Context, emp *domain.EmployeeProfile, meta domain.IdentityMetadata) *domain.TransitionWarning {
	if m.mirror == nil {
		return nil
	}
	err := m.mirror.SetMetadata(ctx, emp.ExternalID, meta)
	if err == nil {
		return nil
	}

	m.logger.Warn("identity metadata mirror failed",
		zap.String("employee_id", emp.ID),
		zap.String("external_id", emp.ExternalID),
		zap.Error(err))
	if m.retries != nil {
		job := messaging.MirrorRetryJob{ExternalID: emp.ExternalID, EmployeeID: emp.ID, Metadata: meta, Attempt: 1}
		if qerr := m.retries.EnqueueMirrorRetry(ctx, job); qerr != nil {
			m.logger.Warn("enqueue mirror retry failed", zap.String("employee_id", emp.ID), zap.Error(qerr))
		}
	}
	return &domain.TransitionWarning{
		Code:       domain.WarningMetadataMirrorFailed,
		EmployeeID: emp.ID,
		Message:    err.Error(),
	}
}
