// Package service runs assignment over many bookings at once.
package service

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/householdpro/backend/internal/assignment"
	"github.com/householdpro/backend/internal/metrics"
	"github.com/householdpro/backend/internal/models"
)

const (
	RunRunning   = "RUNNING"
	RunSuccess   = "SUCCESS"
	RunFailed    = "FAILED"
	RunCancelled = "CANCELLED"

	defaultBatchLimit = 500
	maxSamples        = 5
)

type BookingLister interface {
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
}

type RunStore interface {
	CreateRun(ctx context.Context, status string) (string, error)
	FinishRun(ctx context.Context, runID string, status string, summary []byte) error
}

type Assigner interface {
	Assign(ctx context.Context, req assignment.Request) assignment.Result
}

type BatchService struct {
	Bookings BookingLister
	Runs     RunStore
	Assigner Assigner
	Metrics  metrics.Collector
	Logger   zerolog.Logger
}

type BatchOptions struct {
	Config *assignment.Configuration
	Limit  int
	Actor  string
	// Debug keeps up to five failure samples in the summary.
	Debug bool
}

type RunSummary struct {
	RunID   string           `json:"run_id"`
	Status  string           `json:"status"`
	Events  []map[string]any `json:"events"`
	Counts  map[string]any   `json:"counts"`
	Samples []map[string]any `json:"samples,omitempty"`
}

// ProcessPending assigns every pending, unassigned booking in schedule order,
// one at a time, and records the run. Each assignment sees the commits made
// before it. Per-booking failures are counted, not returned.
func (s *BatchService) ProcessPending(ctx context.Context, opts BatchOptions) (RunSummary, error) {
	runID, err := s.Runs.CreateRun(ctx, RunRunning)
	if err != nil {
		return RunSummary{}, err
	}
	summary, err := s.process(ctx, opts)
	summary.RunID = runID

	b, _ := json.Marshal(summary)
	// The run row is closed even when the request context is already gone.
	if finishErr := s.Runs.FinishRun(context.WithoutCancel(ctx), runID, summary.Status, b); finishErr != nil {
		s.Logger.Error().Err(finishErr).Str("run_id", runID).Msg("failed to finish run")
	}
	return summary, err
}

func (s *BatchService) process(ctx context.Context, opts BatchOptions) (RunSummary, error) {
	summary := RunSummary{Status: RunSuccess, Counts: map[string]any{}}
	start := time.Now()
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultBatchLimit
	}

	pending, err := s.Bookings.ListBookings(ctx, models.BookingFilter{
		Status:     models.BookingPending,
		Unassigned: true,
		Limit:      limit,
	})
	if err != nil {
		summary.Status = RunFailed
		summary.Events = append(summary.Events, map[string]any{
			"type":    "load_failed",
			"message": err.Error(),
			"time":    time.Now().UTC(),
		})
		return summary, err
	}
	summary.Events = append(summary.Events, map[string]any{
		"type":    "pending_loaded",
		"message": "Pending bookings ready for assignment",
		"count":   len(pending),
		"time":    time.Now().UTC(),
	})

	var (
		assignedCount  int
		failedCount    int
		processed      int
		scoreTotal     float64
		failureReasons = map[string]int{}
		byStrategy     = map[string]int{}
	)
	for _, b := range pending {
		if ctx.Err() != nil {
			summary.Status = RunCancelled
			break
		}
		processed++
		res := s.Assigner.Assign(ctx, assignment.Request{BookingID: b.ID, Config: opts.Config, Actor: opts.Actor})
		if res.Success {
			assignedCount++
			scoreTotal += res.Score
			byStrategy[string(res.Strategy)]++
			continue
		}
		failedCount++
		failureReasons[res.Code]++
		if opts.Debug && len(summary.Samples) < maxSamples {
			summary.Samples = append(summary.Samples, map[string]any{
				"booking_id":  b.ID,
				"code":        res.Code,
				"message":     res.Message,
				"suggestions": res.Suggestions,
			})
		}
	}

	summary.Events = append(summary.Events, map[string]any{
		"type":        "assignment",
		"assigned":    assignedCount,
		"failed":      failedCount,
		"avg_score":   avgScore(scoreTotal, assignedCount),
		"by_strategy": byStrategy,
		"time":        time.Now().UTC(),
	})
	elapsed := time.Since(start)
	summary.Events = append(summary.Events, map[string]any{
		"type":       "run_saved",
		"message":    "Batch run finished",
		"elapsed_ms": elapsed.Milliseconds(),
		"time":       time.Now().UTC(),
	})

	summary.Counts["bookings_pending"] = len(pending)
	summary.Counts["bookings_processed"] = processed
	summary.Counts["assigned"] = assignedCount
	summary.Counts["failed"] = failedCount
	summary.Counts["top_failure_codes"] = topCodes(failureReasons)

	if s.Metrics != nil {
		s.Metrics.ObserveBatch(assignedCount, failedCount, elapsed)
	}
	s.Logger.Info().
		Int("pending", len(pending)).
		Int("assigned", assignedCount).
		Int("failed", failedCount).
		Dur("elapsed", elapsed).
		Msg("batch assignment finished")
	return summary, ctx.Err()
}

type codeCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// topCodes orders failure codes by frequency, then name.
func topCodes(counts map[string]int) []codeCount {
	out := make([]codeCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, codeCount{Code: code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func avgScore(total float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return total / float64(count)
}
