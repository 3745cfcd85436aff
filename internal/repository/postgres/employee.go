package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marshaltudu14/fieldforce-auth/internal/domain"
	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/token"
)

// db is the subset of pgxpool.Pool the repositories use. pgxmock satisfies
// the same interface, which is how the repository tests run without a
// database.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EmployeeRepository implements repository.EmployeeDirectory using PostgreSQL.
type EmployeeRepository struct {
	db db
}

// NewEmployeeRepository creates a new PostgreSQL-backed employee directory.
func NewEmployeeRepository(db db) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `id, code, name, email, password_hash, employment_status, created_at, updated_at`

// GetByID retrieves an employee by their internal account id.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE id = $1`

	return r.scanEmployee(ctx, query, id)
}

// GetByIdentifier retrieves an employee by employee code or email.
func (r *EmployeeRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE code = $1 OR email = $1`

	return r.scanEmployee(ctx, query, identifier)
}

func (r *EmployeeRepository) scanEmployee(ctx context.Context, query string, arg any) (*domain.Employee, error) {
	var (
		e      domain.Employee
		status string
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&e.ID,
		&e.Code,
		&e.Name,
		&e.Email,
		&e.PasswordHash,
		&status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, autherrors.NotFound("employee", fmt.Sprintf("%v", arg))
		}
		return nil, fmt.Errorf("query employee: %w", err)
	}

	e.Status = token.EmploymentStatus(status)
	return &e, nil
}
