package postgresql_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRunRepository(t *testing.T) tracker.RunRepository {
	ctx := context.Background()
	setup, ok, err := NewTestDatabase(ctx)
	if !ok {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, err)
	t.Cleanup(setup.Close)
	require.NoError(t, setup.TruncateAllTables(ctx))
	return postgresql.NewRunRepository(setup.DB)
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	repo := setupRunRepository(t)
	ctx := context.Background()

	started := time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC)
	run := &tracker.CheckRun{
		Operation:  tracker.OperationAbsences,
		From:       time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC),
		To:         time.Date(2025, 10, 7, 0, 0, 0, 0, time.UTC),
		Success:    true,
		TotalCount: 2,
		Result:     json.RawMessage(`{"total_count": 2}`),
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}
	require.NoError(t, repo.Create(ctx, run))
	require.NotEmpty(t, run.ID)

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, tracker.OperationAbsences, got.Operation)
	assert.True(t, got.Success)
	assert.Nil(t, got.Error)
	assert.Equal(t, 2, got.TotalCount)
	assert.JSONEq(t, `{"total_count": 2}`, string(got.Result))
	assert.True(t, got.StartedAt.Equal(started))
}

func TestRunRepository_GetByID_NotFound(t *testing.T) {
	repo := setupRunRepository(t)

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, tracker.ErrRunNotFound)
}

func TestRunRepository_List(t *testing.T) {
	repo := setupRunRepository(t)
	ctx := context.Background()

	msg := "navigation timed out"
	base := time.Date(2025, 10, 8, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := &tracker.CheckRun{
			Operation:  tracker.OperationUsers,
			From:       base,
			To:         base,
			Error:      &msg,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Create(ctx, run))
	}

	runs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.Equal(t, msg, *runs[0].Error)
	assert.Nil(t, runs[0].Result)
}
