package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherrors "github.com/marshaltudu14/fieldforce-auth/pkg/errors"
	"github.com/marshaltudu14/fieldforce-auth/pkg/token"
)

var employeeCols = []string{"id", "code", "name", "email", "password_hash", "employment_status", "created_at", "updated_at"}

func TestEmployeeRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(employeeCols).
		AddRow("emp-1", "FF-1001", "Asha Rao", "asha@example.com", "$2a$10$hash", "ACTIVE", now, now)

	mock.ExpectQuery("SELECT (.+) FROM employees").
		WithArgs("emp-1").
		WillReturnRows(rows)

	emp, err := repo.GetByID(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "emp-1", emp.ID)
	assert.Equal(t, "FF-1001", emp.Code)
	assert.Equal(t, token.StatusActive, emp.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM employees").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(employeeCols))

	_, err = repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, autherrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeRepository_GetByIdentifier(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(employeeCols).
		AddRow("emp-2", "FF-1002", "Dev Kumar", "dev@example.com", "$2a$10$hash", "ON_LEAVE", now, now)

	mock.ExpectQuery("SELECT (.+) FROM employees").
		WithArgs("dev@example.com").
		WillReturnRows(rows)

	emp, err := repo.GetByIdentifier(context.Background(), "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, token.StatusOnLeave, emp.Status)
	assert.True(t, emp.Status.CanLogin())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeRepository_GetByID_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEmployeeRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM employees").
		WithArgs("emp-1").
		WillReturnError(errors.New("connection reset"))

	_, err = repo.GetByID(context.Background(), "emp-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, autherrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
