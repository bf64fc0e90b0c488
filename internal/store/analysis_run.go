package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deflect.app/relay/common/id"
	"deflect.app/relay/core/db"
	"deflect.app/relay/internal/model"
	"github.com/jackc/pgx/v5"
)

const analysisRunColumns = `id, account_id, window_start, window_end, status, ticket_count,
	cluster_count, insight_count, total_potential_savings, error, started_at, finished_at, lease_until`

type analysisRunStore struct {
	q db.Querier
}

func newAnalysisRunStore(q db.Querier) AnalysisRunStore {
	return &analysisRunStore{q: q}
}

func (s *analysisRunStore) Create(ctx context.Context, run *model.AnalysisRun) error {
	if run.ID == 0 {
		run.ID = id.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = model.AnalysisStatusPending
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO analysis_runs (id, account_id, window_start, window_end, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.AccountID, run.WindowStart, run.WindowEnd, string(run.Status), run.StartedAt)
	if err != nil {
		return fmt.Errorf("inserting analysis run: %w", err)
	}
	return nil
}

func (s *analysisRunStore) GetByID(ctx context.Context, runID int64) (*model.AnalysisRun, error) {
	row := s.q.QueryRow(ctx, `SELECT `+analysisRunColumns+` FROM analysis_runs WHERE id = $1`, runID)
	run, err := scanAnalysisRun(row)
	if err != nil {
		return nil, notFound(err)
	}
	return run, nil
}

func (s *analysisRunStore) Claim(ctx context.Context, runID int64, lease time.Duration) (*model.AnalysisRun, bool, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE analysis_runs
		SET status = $2, lease_until = now() + make_interval(secs => $3)
		WHERE id = $1
		  AND (status = $4 OR (status = $2 AND (lease_until IS NULL OR lease_until < now())))
		RETURNING `+analysisRunColumns,
		runID, string(model.AnalysisStatusRunning), lease.Seconds(), string(model.AnalysisStatusPending))
	run, err := scanAnalysisRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("claiming analysis run: %w", err)
	}
	return run, true, nil
}

func (s *analysisRunStore) Renew(ctx context.Context, runID int64, lease time.Duration) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE analysis_runs SET lease_until = now() + make_interval(secs => $2)
		WHERE id = $1 AND status = $3`,
		runID, lease.Seconds(), string(model.AnalysisStatusRunning))
	if err != nil {
		return fmt.Errorf("renewing analysis run lease: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *analysisRunStore) Complete(ctx context.Context, run *model.AnalysisRun) error {
	now := time.Now()
	run.Status = model.AnalysisStatusCompleted
	run.FinishedAt = &now

	tag, err := s.q.Exec(ctx, `
		UPDATE analysis_runs
		SET status = $2, ticket_count = $3, cluster_count = $4, insight_count = $5,
		    total_potential_savings = $6, finished_at = $7, error = NULL, lease_until = NULL
		WHERE id = $1`,
		run.ID, string(run.Status), run.TicketCount, run.ClusterCount, run.InsightCount,
		run.TotalPotentialSavings, now)
	if err != nil {
		return fmt.Errorf("completing analysis run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *analysisRunStore) Fail(ctx context.Context, runID int64, errMsg string) error {
	_, err := s.q.Exec(ctx, `
		UPDATE analysis_runs SET status = $2, error = $3, finished_at = now(), lease_until = NULL
		WHERE id = $1`,
		runID, string(model.AnalysisStatusFailed), errMsg)
	if err != nil {
		return fmt.Errorf("failing analysis run: %w", err)
	}
	return nil
}

func (s *analysisRunStore) LatestByAccount(ctx context.Context, accountID int64) (*model.AnalysisRun, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+analysisRunColumns+`
		FROM analysis_runs
		WHERE account_id = $1
		ORDER BY started_at DESC, id DESC
		LIMIT 1`, accountID)
	run, err := scanAnalysisRun(row)
	if err != nil {
		return nil, notFound(err)
	}
	return run, nil
}

func scanAnalysisRun(row pgx.Row) (*model.AnalysisRun, error) {
	var (
		run    model.AnalysisRun
		status string
	)
	err := row.Scan(
		&run.ID, &run.AccountID, &run.WindowStart, &run.WindowEnd, &status, &run.TicketCount,
		&run.ClusterCount, &run.InsightCount, &run.TotalPotentialSavings, &run.Error,
		&run.StartedAt, &run.FinishedAt, &run.LeaseUntil,
	)
	if err != nil {
		return nil, err
	}
	run.Status = model.AnalysisStatus(status)
	return &run, nil
}
