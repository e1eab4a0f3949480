package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
)

// newPool is package state; these tests do not run in parallel.
func withStubNewPool(t *testing.T, stub func(context.Context, string) (*pgxpool.Pool, error)) {
	t.Helper()
	orig := newPool
	newPool = stub
	t.Cleanup(func() { newPool = orig })
}

func TestConnectDbWithRetry_SuccessFirstAttempt(t *testing.T) {
	wantPool := &pgxpool.Pool{}
	calls := 0
	withStubNewPool(t, func(context.Context, string) (*pgxpool.Pool, error) {
		calls++
		return wantPool, nil
	})

	pool, err := connectDbWithRetry(context.Background(), logx.Nop(), "postgres://stub", 3, 10*time.Millisecond)
	require.NoError(t, err)
	require.Same(t, wantPool, pool)
	require.Equal(t, 1, calls)
}

func TestConnectDbWithRetry_ExhaustsRetries(t *testing.T) {
	sentinelErr := errors.New("db boom")
	calls := 0
	withStubNewPool(t, func(context.Context, string) (*pgxpool.Pool, error) {
		calls++
		return nil, sentinelErr
	})

	pool, err := connectDbWithRetry(context.Background(), logx.Nop(), "postgres://stub", 3, 0)
	require.Nil(t, pool)
	require.ErrorIs(t, err, sentinelErr)
	require.Equal(t, 3, calls)
}

func TestConnectDbWithRetry_ContextCanceledBetweenRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	withStubNewPool(t, func(context.Context, string) (*pgxpool.Pool, error) {
		return nil, errors.New("db boom")
	})

	pool, err := connectDbWithRetry(ctx, logx.Nop(), "postgres://stub", 3, 50*time.Millisecond)
	require.Nil(t, pool)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadBusinessSeed(t *testing.T) {
	t.Parallel()

	got, err := loadBusinessSeed("")
	require.NoError(t, err)
	require.Empty(t, got)

	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{"id":"b1","name":"A","lat":1,"lng":2,"active":true}]`), 0o600))
	got, err = loadBusinessSeed(good)
	require.NoError(t, err)
	require.Equal(t, []domain.Business{{ID: "b1", Name: "A", Lat: 1, Lng: 2, Active: true}}, got)

	noID := filepath.Join(dir, "noid.json")
	require.NoError(t, os.WriteFile(noID, []byte(`[{"name":"A"}]`), 0o600))
	_, err = loadBusinessSeed(noID)
	require.ErrorContains(t, err, "has no id")

	_, err = loadBusinessSeed(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
