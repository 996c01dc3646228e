package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// runRetention is how many runs are kept; older ones are pruned on insert.
const runRetention = 1000

type runRepository struct {
	db *database.DB
}

// NewRunRepository creates a run history repository
func NewRunRepository(db *database.DB) tracker.RunRepository {
	return &runRepository{db: db}
}

// Create stores run and prunes history beyond the retention limit
func (r *runRepository) Create(ctx context.Context, run *tracker.CheckRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	return WithTransaction(ctx, r.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		query := `
			INSERT INTO check_runs (id, operation, date_from, date_to, success, error, total_count, result, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		var result []byte
		if len(run.Result) > 0 {
			result = run.Result
		}
		_, err := q.Exec(ctx, query,
			run.ID,
			run.Operation,
			run.From,
			run.To,
			run.Success,
			run.Error,
			run.TotalCount,
			result,
			run.StartedAt,
			run.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create check run: %w", err)
		}

		_, err = q.Exec(ctx, `
			DELETE FROM check_runs
			WHERE id IN (
				SELECT id FROM check_runs ORDER BY started_at DESC OFFSET $1
			)
		`, runRetention)
		if err != nil {
			return fmt.Errorf("failed to prune check runs: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a run including its result
func (r *runRepository) GetByID(ctx context.Context, id string) (tracker.CheckRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, operation, date_from, date_to, success, error, total_count, result, started_at, finished_at
		FROM check_runs
		WHERE id = $1
	`
	run, err := scanRun(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tracker.CheckRun{}, tracker.ErrRunNotFound
		}
		return tracker.CheckRun{}, fmt.Errorf("failed to get check run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs without their result payloads
func (r *runRepository) List(ctx context.Context, limit int) ([]tracker.CheckRun, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, operation, date_from, date_to, success, error, total_count, NULL::jsonb, started_at, finished_at
		FROM check_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list check runs: %w", err)
	}
	defer rows.Close()

	runs := make([]tracker.CheckRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate check runs: %w", err)
	}
	return runs, nil
}

func scanRun(row pgx.Row) (tracker.CheckRun, error) {
	var run tracker.CheckRun
	var result []byte
	err := row.Scan(
		&run.ID,
		&run.Operation,
		&run.From,
		&run.To,
		&run.Success,
		&run.Error,
		&run.TotalCount,
		&result,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return tracker.CheckRun{}, err
	}
	if len(result) > 0 {
		run.Result = result
	}
	return run, nil
}
