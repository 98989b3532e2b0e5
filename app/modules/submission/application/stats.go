package submissionservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	submissiondb "github.com/clubmint/allowgate/app/modules/submission/infrastructure/repositories"
	"github.com/clubmint/allowgate/app/modules/tier"
)

// Statistics aggregates submission counts across all tiers. Full scan;
// nothing is cached between calls.
func (s *SubmissionService) Statistics(ctx context.Context) (OperationResult, error) {
	return s.withTelemetry(ctx, "Statistics", "", func(ctx context.Context) (OperationResult, error) {
		stats, err := s.store.Statistics(ctx)
		if err != nil {
			return OperationResult{}, fmt.Errorf("failed to aggregate statistics: %w", err)
		}
		return OperationResult{Success: StatsReport{Stats: stats}}, nil
	})
}

// GenerateStatsChart produces a PNG bar chart of per-tier totals for the
// stats message.
func GenerateStatsChart(stats submissiondb.Stats) ([]byte, error) {
	bars := make([]chart.Value, 0, len(tier.TiersByPriority))
	maxTotal := 1.0
	for _, t := range tier.TiersByPriority {
		total := float64(stats[t].Total)
		if total > maxTotal {
			maxTotal = total
		}
		bars = append(bars, chart.Value{
			Label: string(t),
			Value: total,
		})
	}

	graph := chart.BarChart{
		Title:    "Wallet submissions by tier",
		Width:    500,
		Height:   350,
		BarWidth: 80,
		Bars:     bars,
		YAxis: chart.YAxis{
			ValueFormatter: chart.IntValueFormatter,
			Range:          &chart.ContinuousRange{Min: 0, Max: maxTotal},
		},
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render stats chart: %w", err)
	}
	return buffer.Bytes(), nil
}
