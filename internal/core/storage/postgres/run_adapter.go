package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aevon-lab/tenantflow/internal/core/storage"
	"github.com/aevon-lab/tenantflow/internal/core/workflow"
)

// RunAdapter implements workflow.Store using PostgreSQL.
type RunAdapter struct {
	db *sql.DB
}

// NewRunAdapter creates a new RunAdapter sharing the given connection.
func NewRunAdapter(db *sql.DB) *RunAdapter {
	return &RunAdapter{db: db}
}

func (a *RunAdapter) Create(ctx context.Context, run *workflow.Run) error {
	params, state, err := marshalRunJSON(run)
	if err != nil {
		return err
	}

	_, err = a.db.ExecContext(ctx, queryCreateRun,
		run.ID,
		string(run.Step),
		string(run.Status),
		params,
		state,
		run.Attempt,
		run.NextAttemptAt.UTC(),
		run.CancelRequested,
		string(run.FailedStep),
		run.LastError,
		run.CreatedAt.UTC(),
		run.UpdatedAt.UTC(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("workflow run %s already exists", run.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create workflow run: %w", err)
	}

	run.Version = 1
	return nil
}

func (a *RunAdapter) Get(ctx context.Context, id string) (*workflow.Run, error) {
	run, err := scanRunRow(a.db.QueryRowContext(ctx, queryGetRun, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return run, err
}

func (a *RunAdapter) Save(ctx context.Context, run *workflow.Run) error {
	_, state, err := marshalRunJSON(run)
	if err != nil {
		return err
	}

	var (
		version         int64
		cancelRequested bool
		nextAttemptAt   time.Time
	)
	err = a.db.QueryRowContext(ctx, querySaveRun,
		run.ID,
		string(run.Step),
		string(run.Status),
		state,
		run.Attempt,
		run.NextAttemptAt.UTC(),
		run.CancelRequested,
		string(run.FailedStep),
		run.LastError,
		run.UpdatedAt.UTC(),
		run.Version,
	).Scan(&version, &cancelRequested, &nextAttemptAt)

	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := a.db.QueryRowContext(ctx, queryRunExists, run.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check workflow run: %w", err)
		}
		if !exists {
			return storage.ErrNotFound
		}
		return workflow.ErrStaleRun
	}
	if err != nil {
		return fmt.Errorf("failed to save workflow run: %w", err)
	}

	run.Version = version
	run.CancelRequested = cancelRequested
	run.NextAttemptAt = nextAttemptAt.UTC()
	return nil
}

func (a *RunAdapter) ClaimRunnable(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*workflow.Run, error) {
	rows, err := a.db.QueryContext(ctx, queryClaimRuns, now.UTC(), now.Add(lease).UTC(), limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to claim workflow runs: %w", err)
	}
	defer rows.Close()

	var runs []*workflow.Run
	for rows.Next() {
		run, err := scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow runs: %w", err)
	}
	return runs, nil
}

func (a *RunAdapter) RequestCancel(ctx context.Context, id string, now time.Time) error {
	res, err := a.db.ExecContext(ctx, queryRequestCancel, id, now.UTC())
	if err != nil {
		return fmt.Errorf("failed to request cancel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to request cancel: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Nothing updated: either unknown or already terminal.
	var exists bool
	if err := a.db.QueryRowContext(ctx, queryRunExists, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check workflow run: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return nil
}

func (a *RunAdapter) PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, queryPurgeRuns, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge workflow runs: %w", err)
	}
	return res.RowsAffected()
}

func marshalRunJSON(run *workflow.Run) (params, state string, err error) {
	p, err := json.Marshal(run.Params)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal run params: %w", err)
	}
	s, err := json.Marshal(run.State)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal run state: %w", err)
	}
	return string(p), string(s), nil
}

// scanRunRow scans one workflow_runs row in runColumns order.
func scanRunRow(row scanner) (*workflow.Run, error) {
	var (
		run                   workflow.Run
		step, status, failed  string
		paramsJSON, stateJSON []byte
	)

	err := row.Scan(
		&run.ID,
		&step,
		&status,
		&paramsJSON,
		&stateJSON,
		&run.Attempt,
		&run.NextAttemptAt,
		&run.CancelRequested,
		&failed,
		&run.LastError,
		&run.Version,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workflow run: %w", err)
	}

	run.Step = workflow.Step(step)
	run.Status = workflow.Status(status)
	run.FailedStep = workflow.Step(failed)
	run.NextAttemptAt = run.NextAttemptAt.UTC()
	run.CreatedAt = run.CreatedAt.UTC()
	run.UpdatedAt = run.UpdatedAt.UTC()

	if err := json.Unmarshal(paramsJSON, &run.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run params: %w", err)
	}
	if err := json.Unmarshal(stateJSON, &run.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run state: %w", err)
	}
	return &run, nil
}
