package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/employee-service/internal/domain"
	"github.com/spec-kit/employee-service/internal/messaging"
	"github.com/spec-kit/employee-service/internal/persistence"
	"github.com/spec-kit/employee-service/internal/repository"
)

// --- shared step trace ---

type trace struct {
	mu    sync.Mutex
	steps []string
}

func (t *trace) add(step string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, step)
}

func (t *trace) all() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}

// --- employee repository ---

type fakeEmployeeRepo struct {
	mu              sync.Mutex
	byID            map[string]*domain.EmployeeProfile
	trace           *trace
	updateRoleCalls int
	updateRoleErr   map[string]error
	lookupErr       error
	// readBarrier, when set, holds each GetByID of barrierID until all
	// expected readers arrived.
	readBarrier *sync.WaitGroup
	barrierID   string
	// afterActorLookup runs once a GetByExternalID returns.
	afterActorLookup func()
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{byID: map[string]*domain.EmployeeProfile{}, updateRoleErr: map[string]error{}}
}

func (r *fakeEmployeeRepo) seed(externalID, name string, role domain.Role) *domain.EmployeeProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	emp := &domain.EmployeeProfile{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Name:       name,
		Email:      externalID + "@example.com",
		Role:       role,
		Version:    1,
		HireDate:   time.Now().UTC(),
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	r.byID[emp.ID] = emp
	cp := *emp
	return &cp
}

func (r *fakeEmployeeRepo) role(id string) domain.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].Role
}

func (r *fakeEmployeeRepo) countRole(role domain.Role) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, emp := range r.byID {
		if emp.Role == role {
			n++
		}
	}
	return n
}

func (r *fakeEmployeeRepo) insert(emp *domain.EmployeeProfile) error {
	for _, existing := range r.byID {
		if existing.ExternalID == emp.ExternalID {
			return &pgconn.PgError{Code: "23505", ConstraintName: "employees_external_id_key"}
		}
	}
	emp.ID = uuid.NewString()
	emp.Version = 1
	now := time.Now().UTC()
	if emp.HireDate.IsZero() {
		emp.HireDate = now
	}
	emp.CreatedAt = now
	emp.UpdatedAt = now
	cp := *emp
	r.byID[emp.ID] = &cp
	return nil
}

func (r *fakeEmployeeRepo) Create(_ context.Context, emp *domain.EmployeeProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(emp)
}

func (r *fakeEmployeeRepo) CreateBootstrapped(_ context.Context, emp *domain.EmployeeProfile, firstRole, defaultRole domain.Role) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	first := len(r.byID) == 0
	emp.Role = defaultRole
	if first {
		emp.Role = firstRole
	}
	if err := r.insert(emp); err != nil {
		return false, err
	}
	return first, nil
}

func (r *fakeEmployeeRepo) Update(_ context.Context, emp *domain.EmployeeProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[emp.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Name = emp.Name
	stored.Email = emp.Email
	stored.Position = emp.Position
	stored.DepartmentID = emp.DepartmentID
	stored.Version++
	emp.Version = stored.Version
	return nil
}

func (r *fakeEmployeeRepo) UpdateRole(_ context.Context, id string, role domain.Role, expectedVersion int64) (*domain.EmployeeProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateRoleCalls++
	if err := r.updateRoleErr[id]; err != nil {
		return nil, err
	}
	stored, ok := r.byID[id]
	if !ok || stored.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	stored.Role = role
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	r.trace.add("store:" + id)
	cp := *stored
	return &cp, nil
}

func (r *fakeEmployeeRepo) GetByID(_ context.Context, id string) (*domain.EmployeeProfile, error) {
	r.mu.Lock()
	if r.lookupErr != nil {
		r.mu.Unlock()
		return nil, r.lookupErr
	}
	stored, ok := r.byID[id]
	var cp domain.EmployeeProfile
	if ok {
		cp = *stored
	}
	barrier := r.readBarrier
	if r.barrierID != "" && r.barrierID != id {
		barrier = nil
	}
	r.mu.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &cp, nil
}

func (r *fakeEmployeeRepo) GetByExternalID(_ context.Context, externalID string) (*domain.EmployeeProfile, error) {
	emp, err := r.findByExternalID(externalID)
	r.mu.Lock()
	hook := r.afterActorLookup
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return emp, err
}

func (r *fakeEmployeeRepo) findByExternalID(externalID string) (*domain.EmployeeProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	for _, emp := range r.byID {
		if emp.ExternalID == externalID {
			cp := *emp
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// setRole changes a stored role out of band, as a concurrent writer would.
func (r *fakeEmployeeRepo) setRole(id string, role domain.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].Role = role
	r.byID[id].Version++
}

func (r *fakeEmployeeRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

func (r *fakeEmployeeRepo) List(_ context.Context, filter repository.EmployeeFilter) ([]domain.EmployeeProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.EmployeeProfile
	for _, emp := range r.byID {
		if filter.Role != nil && emp.Role != *filter.Role {
			continue
		}
		if filter.DepartmentID != nil && (emp.DepartmentID == nil || *emp.DepartmentID != *filter.DepartmentID) {
			continue
		}
		out = append(out, *emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- department repository ---

type fakeDepartmentRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Department
}

func newFakeDepartmentRepo() *fakeDepartmentRepo {
	return &fakeDepartmentRepo{byID: map[string]*domain.Department{}}
}

func (r *fakeDepartmentRepo) Create(_ context.Context, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dept.ID = uuid.NewString()
	dept.CreatedAt = time.Now().UTC()
	dept.UpdatedAt = dept.CreatedAt
	cp := *dept
	r.byID[dept.ID] = &cp
	return nil
}

func (r *fakeDepartmentRepo) Update(_ context.Context, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[dept.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *dept
	r.byID[dept.ID] = &cp
	return nil
}

func (r *fakeDepartmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dept, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *dept
	return &cp, nil
}

func (r *fakeDepartmentRepo) List(_ context.Context, includeInactive bool) ([]domain.Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Department
	for _, dept := range r.byID {
		if !includeInactive && !dept.IsActive {
			continue
		}
		out = append(out, *dept)
	}
	return out, nil
}

// --- notification repository and sink ---

type fakeNotificationRepo struct {
	mu      sync.Mutex
	records []domain.NotificationRecord
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *domain.NotificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	r.records = append(r.records, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByRecipient(_ context.Context, recipientID string, unreadOnly bool, limit int) ([]domain.NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.NotificationRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		n := r.records[i]
		if n.RecipientID != recipientID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].ID == id && r.records[i].RecipientID == recipientID {
			r.records[i].Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeNotifier struct {
	mu      sync.Mutex
	records []domain.NotificationRecord
	trace   *trace
	err     error
}

func (n *fakeNotifier) Create(_ context.Context, record *domain.NotificationRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.trace.add("notify:" + record.RecipientID)
	n.records = append(n.records, *record)
	return nil
}

func (n *fakeNotifier) forRecipient(id string) []domain.NotificationRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.NotificationRecord
	for _, r := range n.records {
		if r.RecipientID == id {
			out = append(out, r)
		}
	}
	return out
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.records)
}

// --- identity mirror ---

type mirrorCall struct {
	externalID string
	meta       domain.IdentityMetadata
}

type fakeMirror struct {
	mu    sync.Mutex
	calls []mirrorCall
	trace *trace
	err   error
}

func (m *fakeMirror) SetMetadata(_ context.Context, externalID string, meta domain.IdentityMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mirrorCall{externalID: externalID, meta: meta})
	if m.err != nil {
		return m.err
	}
	m.trace.add("mirror:" + externalID)
	return nil
}

func (m *fakeMirror) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// --- retry queue ---

type fakeRetryQueue struct {
	mu   sync.Mutex
	jobs []messaging.MirrorRetryJob
}

func (q *fakeRetryQueue) EnqueueMirrorRetry(_ context.Context, job messaging.MirrorRetryJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

// --- lockers ---

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (persistence.ReleaseFunc, error) {
	return func() {}, nil
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string) (persistence.ReleaseFunc, error) {
	return nil, persistence.ErrLockNotAcquired
}
