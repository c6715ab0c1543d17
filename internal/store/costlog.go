package store

import (
	"context"
	"fmt"
	"time"
)

type CostEntry struct {
	ProjectID string
	IconID    string
	Provider  string
	Model     string
	Cost      float64
	Timestamp time.Time
}

type CostSummary struct {
	TotalCost  float64 `json:"totalCost"`
	ImageCount int     `json:"imageCount"`
}

type ProviderCostSummary struct {
	Provider   string  `json:"provider"`
	TotalCost  float64 `json:"totalCost"`
	ImageCount int     `json:"imageCount"`
}

// LogCost records one persisted icon's cost in the same transaction as
// the icon itself.
func (t *Tx) LogCost(entry *CostEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO cost_log (project_id, icon_id, provider, model, cost, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ProjectID, entry.IconID, entry.Provider, entry.Model, entry.Cost, ts.UTC())
	if err != nil {
		return fmt.Errorf("failed to log cost: %w", err)
	}
	return nil
}

func (s *Store) GetTotalCost(ctx context.Context) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COUNT(*) FROM cost_log`)

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.ImageCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) GetProjectCost(ctx context.Context, projectID string) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COUNT(*) FROM cost_log WHERE project_id = ?`,
		projectID)

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.ImageCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) GetCostByDateRange(ctx context.Context, start, end time.Time) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COUNT(*)
		 FROM cost_log WHERE timestamp >= ? AND timestamp < ?`,
		start.UTC(), end.UTC())

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.ImageCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) GetCostByProvider(ctx context.Context) ([]ProviderCostSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, COALESCE(SUM(cost), 0), COUNT(*)
		 FROM cost_log GROUP BY provider ORDER BY provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ProviderCostSummary
	for rows.Next() {
		var ps ProviderCostSummary
		if err := rows.Scan(&ps.Provider, &ps.TotalCost, &ps.ImageCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, ps)
	}
	return summaries, rows.Err()
}
