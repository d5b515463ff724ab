package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/employee-service/internal/domain"
)

// ErrVersionConflict is returned when an update carries a stale version token.
var ErrVersionConflict = errors.New("employee version conflict")

// bootstrapLockKey guards first-user creation across concurrent setup calls.
const bootstrapLockKey int64 = 0x656d706c6f796565

// EmployeeRepository handles persistence for employee profiles.
type EmployeeRepository interface {
	Create(ctx context.Context, emp *domain.EmployeeProfile) error
	// CreateBootstrapped inserts emp with firstRole when no profile exists yet
	// and defaultRole otherwise. It reports whether emp was the first profile.
	CreateBootstrapped(ctx context.Context, emp *domain.EmployeeProfile, firstRole, defaultRole domain.Role) (bool, error)
	Update(ctx context.Context, emp *domain.EmployeeProfile) error
	UpdateRole(ctx context.Context, id string, role domain.Role, expectedVersion int64) (*domain.EmployeeProfile, error)
	GetByID(ctx context.Context, id string) (*domain.EmployeeProfile, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.EmployeeProfile, error)
	Count(ctx context.Context) (int64, error)
	List(ctx context.Context, filter EmployeeFilter) ([]domain.EmployeeProfile, error)
}

// EmployeeFilter defines query params for employee listing.
type EmployeeFilter struct {
	Role         *domain.Role
	DepartmentID *string
	Limit        int
	Offset       int
}

type employeeRepository struct {
	pool *pgxpool.Pool
}

// NewEmployeeRepository instantiates the repository.
func NewEmployeeRepository(pool *pgxpool.Pool) EmployeeRepository {
	return &employeeRepository{pool: pool}
}

const employeeColumns = `id, external_id, name, email, role, position, department_id, hire_date, version, created_at, updated_at`

func (r *employeeRepository) Create(ctx context.Context, emp *domain.EmployeeProfile) error {
	return insertEmployee(ctx, r.pool, emp)
}

func (r *employeeRepository) CreateBootstrapped(ctx context.Context, emp *domain.EmployeeProfile, firstRole, defaultRole domain.Role) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return false, err
	}

	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM employees`).Scan(&count); err != nil {
		return false, err
	}

	first := count == 0
	emp.Role = defaultRole
	if first {
		emp.Role = firstRole
	}
	if err := insertEmployee(ctx, tx, emp); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return first, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertEmployee(ctx context.Context, q queryRower, emp *domain.EmployeeProfile) error {
	const query = `
        INSERT INTO employees (external_id, name, email, role, position, department_id, hire_date)
        VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7, CURRENT_DATE))
        RETURNING id, hire_date, version, created_at, updated_at`

	var hireDate any
	if !emp.HireDate.IsZero() {
		hireDate = emp.HireDate
	}
	return q.QueryRow(ctx, query,
		emp.ExternalID,
		emp.Name,
		emp.Email,
		emp.Role.String(),
		emp.Position,
		emp.DepartmentID,
		hireDate,
	).Scan(&emp.ID, &emp.HireDate, &emp.Version, &emp.CreatedAt, &emp.UpdatedAt)
}

func (r *employeeRepository) Update(ctx context.Context, emp *domain.EmployeeProfile) error {
	const query = `
        UPDATE employees
        SET name=$1, email=$2, position=$3, department_id=$4, version=version+1, updated_at=NOW()
        WHERE id=$5
        RETURNING version, updated_at`

	return r.pool.QueryRow(ctx, query,
		emp.Name,
		emp.Email,
		emp.Position,
		emp.DepartmentID,
		emp.ID,
	).Scan(&emp.Version, &emp.UpdatedAt)
}

func (r *employeeRepository) UpdateRole(ctx context.Context, id string, role domain.Role, expectedVersion int64) (*domain.EmployeeProfile, error) {
	query := `
        UPDATE employees
        SET role=$1, version=version+1, updated_at=NOW()
        WHERE id=$2 AND version=$3
        RETURNING ` + employeeColumns

	emp, err := scanEmployee(r.pool.QueryRow(ctx, query, role.String(), id, expectedVersion))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVersionConflict
	}
	return emp, err
}

func (r *employeeRepository) GetByID(ctx context.Context, id string) (*domain.EmployeeProfile, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id=$1`
	return scanEmployee(r.pool.QueryRow(ctx, query, id))
}

func (r *employeeRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.EmployeeProfile, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE external_id=$1`
	return scanEmployee(r.pool.QueryRow(ctx, query, externalID))
}

func (r *employeeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM employees`).Scan(&count)
	return count, err
}

func (r *employeeRepository) List(ctx context.Context, filter EmployeeFilter) ([]domain.EmployeeProfile, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees`
	args := []any{}
	clauses := []string{}

	if filter.Role != nil {
		args = append(args, filter.Role.String())
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY created_at ASC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EmployeeProfile
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *emp)
	}
	return result, rows.Err()
}

func scanEmployee(row pgx.Row) (*domain.EmployeeProfile, error) {
	var (
		emp  domain.EmployeeProfile
		role string
	)
	if err := row.Scan(
		&emp.ID,
		&emp.ExternalID,
		&emp.Name,
		&emp.Email,
		&role,
		&emp.Position,
		&emp.DepartmentID,
		&emp.HireDate,
		&emp.Version,
		&emp.CreatedAt,
		&emp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	emp.Role = parsed
	return &emp, nil
}

// validID reports whether id can name a row; malformed ids are simply absent.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
