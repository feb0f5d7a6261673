// Package monitoring collects run health metrics from the store and raises
// webhook alerts when they cross configured thresholds.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/formfill-cli/internal/model"
	"github.com/sells-group/formfill-cli/internal/store"
)

// maxRunsScanned bounds a single collection pass.
const maxRunsScanned = 10000

// MetricsSnapshot holds a point-in-time view of run health.
type MetricsSnapshot struct {
	// Runs within the lookback window.
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsActive   int     `json:"runs_active"`
	FailRate     float64 `json:"fail_rate"`

	// Answer outcomes across completed runs.
	Questions      int     `json:"questions"`
	Unresolved     int     `json:"unresolved"`
	UnresolvedRate float64 `json:"unresolved_rate"`
	Warnings       int     `json:"warnings"`

	// Generator spend.
	CostUSD   float64 `json:"cost_usd"`
	AvgTokens int64   `json:"avg_tokens"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of store.Store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers metrics from the run history.
type Collector struct {
	runs RunLister
}

// NewCollector creates a new metrics collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := snap.CollectedAt.Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.runs.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        maxRunsScanned,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalTokens, usageRuns int64

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		default:
			snap.RunsActive++
		}
		if r.Result == nil {
			continue
		}
		if r.Result.Form != nil {
			snap.Questions += len(r.Result.Form.Questions)
		}
		snap.Unresolved += len(r.Result.Unresolved())
		snap.Warnings += len(r.Result.Warnings)
		snap.CostUSD += r.Result.Usage.Cost
		if r.Result.Usage.Calls > 0 {
			totalTokens += r.Result.Usage.InputTokens + r.Result.Usage.OutputTokens
			usageRuns++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.Questions > 0 {
		snap.UnresolvedRate = float64(snap.Unresolved) / float64(snap.Questions)
	}
	if usageRuns > 0 {
		snap.AvgTokens = totalTokens / usageRuns
	}

	return snap, nil
}
