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
)

func TestRefreshTokenRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)
	expiresAt := time.Now().UTC().Add(7 * 24 * time.Hour)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "emp-1", "abc123hash", expiresAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), "emp-1", "abc123hash", expiresAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_GetByHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "employee_id", "token_hash", "expires_at", "created_at", "revoked_at"}).
		AddRow("rt-1", "emp-1", "abc123hash", now.Add(time.Hour), now, nil)

	mock.ExpectQuery("SELECT (.+) FROM refresh_tokens").
		WithArgs("abc123hash").
		WillReturnRows(rows)

	rt, err := repo.GetByHash(context.Background(), "abc123hash")
	require.NoError(t, err)
	assert.Equal(t, "emp-1", rt.EmployeeID)
	assert.Nil(t, rt.RevokedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_GetByHash_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	mock.ExpectQuery("SELECT (.+) FROM refresh_tokens").
		WithArgs("unknown").
		WillReturnRows(pgxmock.NewRows([]string{"id", "employee_id", "token_hash", "expires_at", "created_at", "revoked_at"}))

	_, err = repo.GetByHash(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, autherrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Revoke(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "abc123hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Revoke(context.Background(), "abc123hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Revoke_UnknownHashIsNoop(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "never-seen").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.Revoke(context.Background(), "never-seen"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeByEmployeeID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRefreshTokenRepository(mock)

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "emp-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	require.NoError(t, repo.RevokeByEmployeeID(context.Background(), "emp-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
