package store

import (
	"context"
	"fmt"

	"deflect.app/relay/common/id"
	"deflect.app/relay/core/db"
	"deflect.app/relay/internal/model"
	"github.com/jackc/pgx/v5"
)

type insightStore struct {
	q db.Querier
}

func newInsightStore(q db.Querier) InsightStore {
	return &insightStore{q: q}
}

// ReplaceForAccount deletes the account's insights and inserts the new set.
// Run it inside a transaction so readers never see a partial set.
func (s *insightStore) ReplaceForAccount(ctx context.Context, accountID int64, insights []model.DeflectionInsight) error {
	if _, err := s.q.Exec(ctx, `DELETE FROM deflection_insights WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("deleting insights: %w", err)
	}

	for i := range insights {
		in := &insights[i]
		if in.ID == 0 {
			in.ID = id.New()
		}
		_, err := s.q.Exec(ctx, `
			INSERT INTO deflection_insights (
				id, account_id, run_id, cluster_id, category, keywords, ticket_count,
				avg_handle_time_minutes, annual_cost, monthly_cost, example_questions,
				recommended_action, confidence, priority, deflection_potential,
				customer_impact, implementation_difficulty, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			in.ID, accountID, in.RunID, in.ClusterID, in.Category, nonNil(in.Keywords), in.TicketCount,
			in.AvgHandleTimeMinutes, in.AnnualCost, in.MonthlyCost, nonNil(in.ExampleQuestions),
			in.RecommendedAction, in.Confidence, string(in.Priority), in.DeflectionPotential,
			string(in.CustomerImpact), string(in.ImplementationDifficulty), in.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting insight for cluster %d: %w", in.ClusterID, err)
		}
	}
	return nil
}

func (s *insightStore) ListByAccount(ctx context.Context, accountID int64) ([]model.DeflectionInsight, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, account_id, run_id, cluster_id, category, keywords, ticket_count,
		       avg_handle_time_minutes, annual_cost, monthly_cost, example_questions,
		       recommended_action, confidence, priority, deflection_potential,
		       customer_impact, implementation_difficulty, created_at
		FROM deflection_insights
		WHERE account_id = $1
		ORDER BY annual_cost DESC, cluster_id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}
	defer rows.Close()

	insights := make([]model.DeflectionInsight, 0)
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning insight: %w", err)
		}
		insights = append(insights, *in)
	}
	return insights, rows.Err()
}

func scanInsight(row pgx.Row) (*model.DeflectionInsight, error) {
	var (
		in                           model.DeflectionInsight
		priority, impact, difficulty string
	)
	err := row.Scan(
		&in.ID, &in.AccountID, &in.RunID, &in.ClusterID, &in.Category, &in.Keywords, &in.TicketCount,
		&in.AvgHandleTimeMinutes, &in.AnnualCost, &in.MonthlyCost, &in.ExampleQuestions,
		&in.RecommendedAction, &in.Confidence, &priority, &in.DeflectionPotential,
		&impact, &difficulty, &in.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	in.Priority = model.InsightPriority(priority)
	in.CustomerImpact = model.ImpactLevel(impact)
	in.ImplementationDifficulty = model.ImplementationDifficulty(difficulty)
	return &in, nil
}
