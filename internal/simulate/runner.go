package simulate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/bookpickr/internal/domain/types"
	"github.com/okian/bookpickr/pkg/logger"
)

// Report summarizes one run.
type Report struct {
	RunID       string
	Strategy    Strategy
	Rounds      int
	StartRounds int
	EndRounds   int
	Wins        map[int]int
	Titles      map[int]string
	Leaderboard []types.Entry
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
}

// RoundsPerSecond is the pick throughput of the run.
func (r *Report) RoundsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Rounds) / r.Duration.Seconds()
}

// Run executes a complete simulation against cfg.BaseURL and verifies the
// server's tally afterwards.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	log := logger.Named("simulate")
	report := &Report{
		RunID:     uuid.NewString(),
		Strategy:  cfg.Prefer,
		Wins:      make(map[int]int),
		Titles:    make(map[int]string),
		StartTime: time.Now(),
	}
	client := NewClient(cfg.BaseURL, report.RunID, cfg.Timeout)

	log.Info(ctx, "starting simulation",
		logger.String("runId", report.RunID),
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rounds", cfg.Rounds),
		logger.String("prefer", string(cfg.Prefer)),
		logger.Uint64("seed", cfg.Seed))

	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	var (
		st  types.Session
		err error
	)
	if cfg.Reset {
		st, err = client.Reset(ctx)
	} else {
		st, err = client.State(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	if st.State == "blocked" {
		return nil, ErrBlocked
	}
	report.StartRounds = st.Rounds

	choose := newChooser(cfg.Prefer, cfg.Seed)
	for round := 1; round <= cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		pair, err := client.Pair(ctx)
		if err != nil {
			return report, fmt.Errorf("round %d: %w", round, err)
		}
		winner := choose(pair)
		st, err = client.Pick(ctx, winner)
		if err != nil {
			return report, fmt.Errorf("round %d: %w", round, err)
		}
		report.Rounds++
		report.Wins[winner]++
		report.Titles[pair.Champion.Index] = pair.Champion.Title
		report.Titles[pair.Challenger.Index] = pair.Challenger.Title

		if cfg.Verbose {
			log.Info(ctx, "round",
				logger.Int("round", round),
				logger.String("champion", pair.Champion.Title),
				logger.String("challenger", pair.Challenger.Title),
				logger.Int("winner", winner))
		}
	}
	report.EndRounds = st.Rounds

	report.Leaderboard, err = client.Leaderboard(ctx, cfg.TopN)
	if err != nil {
		return report, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)

	if err := Verify(report, cfg.Reset); err != nil {
		log.Warn(ctx, "verification failed", logger.String("runId", report.RunID), logger.Error(err))
		return report, err
	}

	log.Info(ctx, "simulation completed",
		logger.String("runId", report.RunID),
		logger.Int("rounds", report.Rounds),
		logger.Int("distinctWinners", len(report.Wins)),
		logger.Duration("duration", report.Duration),
		logger.Float64("roundsPerSecond", report.RoundsPerSecond()))
	return report, nil
}

// IsBlocked reports whether err means the server had no pair.
func IsBlocked(err error) bool { return errors.Is(err, ErrBlocked) }
