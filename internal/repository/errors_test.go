package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/apperr"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	require.True(t, IsDuplicate(&pgconn.PgError{Code: "23505"}))
	require.True(t, IsForeignKey(fmt.Errorf("x: %w", &pgconn.PgError{Code: "23503"})))
	require.True(t, IsNotFound(fmt.Errorf("x: %w", pgx.ErrNoRows)))

	require.True(t, IsTransient(&pgconn.PgError{Code: "08006"}))
	require.True(t, IsTransient(&pgconn.PgError{Code: "40001"}))
	require.True(t, IsTransient(&pgconn.PgError{Code: "57P01"}))
	require.False(t, IsTransient(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsTransient(context.DeadlineExceeded))
	require.False(t, IsTransient(errors.New("boom")))
	require.False(t, IsTransient(nil))
}

func TestWrap_MarksTransientAsUnavailable(t *testing.T) {
	t.Parallel()

	err := wrap("get order", &pgconn.PgError{Code: "08003"})
	require.ErrorIs(t, err, apperr.ErrUnavailable)

	var pgerr *pgconn.PgError
	require.ErrorAs(t, err, &pgerr)

	plain := wrap("get order", errors.New("syntax"))
	require.NotErrorIs(t, plain, apperr.ErrUnavailable)
}
