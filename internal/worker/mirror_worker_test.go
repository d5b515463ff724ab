package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/messaging"
)

type stubMirror struct {
	mu    sync.Mutex
	calls int
	last  domain.IdentityMetadata
	err   error
}

func (m *stubMirror) SetMetadata(_ context.Context, _ string, meta domain.IdentityMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = meta
	return m.err
}

type stubEmployees struct {
	byID map[string]domain.Role
	err  error
}

func (s *stubEmployees) GetByID(_ context.Context, id string) (*domain.EmployeeProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	role, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.EmployeeProfile{ID: id, Role: role}, nil
}

type stubQueue struct {
	jobs []messaging.MirrorRetryJob
}

func (q *stubQueue) EnqueueMirrorRetry(_ context.Context, job messaging.MirrorRetryJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func retryJob(attempt int) messaging.MirrorRetryJob {
	role := domain.RoleManager
	return messaging.MirrorRetryJob{
		ExternalID: "ext-1",
		EmployeeID: "emp-1",
		Metadata:   domain.IdentityMetadata{Role: &role, RoleSetupComplete: true},
		Attempt:    attempt,
	}
}

func TestMirrorWorkerSucceeds(t *testing.T) {
	mirror := &stubMirror{}
	queue := &stubQueue{}
	w := NewMirrorWorker(nil, queue, nil, mirror, 3, 0, nil)

	require.NoError(t, w.Handle(context.Background(), retryJob(1)))
	assert.Equal(t, 1, mirror.calls)
	assert.Empty(t, queue.jobs)
}

func TestMirrorWorkerRequeuesWithNextAttempt(t *testing.T) {
	mirror := &stubMirror{err: errors.New("still down")}
	queue := &stubQueue{}
	w := NewMirrorWorker(nil, queue, nil, mirror, 3, 0, nil)

	require.NoError(t, w.Handle(context.Background(), retryJob(1)))
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, 2, queue.jobs[0].Attempt)
	assert.Equal(t, "ext-1", queue.jobs[0].ExternalID)
}

func TestMirrorWorkerGivesUpAfterMaxAttempts(t *testing.T) {
	mirror := &stubMirror{err: errors.New("still down")}
	queue := &stubQueue{}
	w := NewMirrorWorker(nil, queue, nil, mirror, 3, 0, nil)

	require.NoError(t, w.Handle(context.Background(), retryJob(3)))
	assert.Empty(t, queue.jobs)
}

func TestMirrorWorkerStopsDuringDelay(t *testing.T) {
	mirror := &stubMirror{err: errors.New("still down")}
	queue := &stubQueue{}
	w := NewMirrorWorker(nil, queue, nil, mirror, 3, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Handle(ctx, retryJob(1))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, queue.jobs)
}

func TestMirrorWorkerWritesCurrentRole(t *testing.T) {
	mirror := &stubMirror{}
	queue := &stubQueue{}
	// The job was queued at Manager; a later promotion already made the
	// profile an Administrator.
	employees := &stubEmployees{byID: map[string]domain.Role{"emp-1": domain.RoleAdministrator}}
	w := NewMirrorWorker(nil, queue, employees, mirror, 3, 0, nil)

	require.NoError(t, w.Handle(context.Background(), retryJob(1)))
	require.NotNil(t, mirror.last.Role)
	assert.Equal(t, domain.RoleAdministrator, *mirror.last.Role)
	assert.True(t, mirror.last.RoleSetupComplete)
}

func TestMirrorWorkerDropsJobForMissingEmployee(t *testing.T) {
	mirror := &stubMirror{}
	queue := &stubQueue{}
	w := NewMirrorWorker(nil, queue, &stubEmployees{byID: map[string]domain.Role{}}, mirror, 3, 0, nil)

	require.NoError(t, w.Handle(context.Background(), retryJob(1)))
	assert.Zero(t, mirror.calls)
	assert.Empty(t, queue.jobs)
}

func TestMirrorWorkerRequeuesWhenLookupFails(t *testing.T) {
	mirror := &stubMirror{}
	queue := &stubQueue{}
	w := NewMirrorWorker(nil, queue, &stubEmployees{err: errors.New("db down")}, mirror, 3, 0, nil)

	require.NoError(t, w.Handle(context.Background(), retryJob(1)))
	assert.Zero(t, mirror.calls)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, 2, queue.jobs[0].Attempt)
}
