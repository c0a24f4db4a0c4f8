package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invomitra/internal/models"
)

func TestClientRepo_CreateAndNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewClientRepo(mock)
	ctx := context.Background()
	client := &models.Client{ID: uuid.New(), UserID: uuid.New(), Name: "Acme"}

	mock.ExpectExec(`INSERT INTO clients \(id, user_id, name, email, phone, address, gstin, created_at, updated_at\)`).
		WithArgs(client.ID, client.UserID, "Acme", client.Email, client.Phone, client.Address, client.GSTIN).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.Create(ctx, client))

	mock.ExpectQuery(`SELECT id, user_id, name, email, phone, address, gstin, created_at, updated_at FROM clients`).
		WithArgs(client.UserID, client.ID).
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(ctx, client.UserID, client.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectExec(`DELETE FROM clients WHERE user_id = \$1 AND id = \$2`).
		WithArgs(client.UserID, client.ID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	assert.ErrorIs(t, repo.Delete(ctx, client.UserID, client.ID), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
