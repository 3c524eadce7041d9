package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryHealthProbes(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t, ctx)

	repo, err := NewRepository(pool, nil)
	require.NoError(t, err)

	require.NoError(t, repo.Ping(ctx))

	version, dirty, err := repo.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Positive(t, version)
	assert.False(t, dirty)

	count, installed, err := repo.ActiveJobs(ctx)
	require.NoError(t, err)
	assert.True(t, installed)
	assert.Zero(t, count)

	stats := repo.PoolStats()
	assert.Contains(t, stats, "max_connections")
}
