package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/bookpickr/internal/simulate"
)

type simulateSummary struct {
	RunID           string             `json:"runId"`
	Strategy        string             `json:"strategy"`
	Rounds          int                `json:"rounds"`
	ServerRounds    int                `json:"serverRounds"`
	Top             []simulateStanding `json:"top"`
	Duration        string             `json:"duration"`
	RoundsPerSecond float64            `json:"roundsPerSecond"`
}

type simulateStanding struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Wins  int    `json:"wins"`
}

func newSimulateCmd() *cobra.Command {
	var (
		baseURL string
		rounds  int
		prefer  string
		seed    uint64
		top     int
		timeout time.Duration
		noReset bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play scripted rounds against a running server and verify its tally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			strategy, err := simulate.ParseStrategy(prefer)
			if err != nil {
				return err
			}
			cfg := simulate.NewConfig(
				simulate.WithBaseURL(baseURL),
				simulate.WithRounds(rounds),
				simulate.WithStrategy(strategy),
				simulate.WithSeed(seed),
				simulate.WithTopN(top),
				simulate.WithTimeout(timeout),
				simulate.WithReset(!noReset),
				simulate.WithVerbose(verbose),
			)
			report, err := simulate.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			sum := simulateSummary{
				RunID:           report.RunID,
				Strategy:        string(report.Strategy),
				Rounds:          report.Rounds,
				ServerRounds:    report.EndRounds,
				Duration:        report.Duration.String(),
				RoundsPerSecond: report.RoundsPerSecond(),
			}
			for _, s := range simulate.TopWins(report.Wins, cfg.TopN) {
				sum.Top = append(sum.Top, simulateStanding{Index: s.Index, Title: report.Titles[s.Index], Wins: s.Wins})
			}
			return printJSON(cmd, sum)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", simulate.DefaultBaseURL, "Base URL of the server")
	cmd.Flags().IntVar(&rounds, "rounds", simulate.DefaultRounds, "Number of picks to make")
	cmd.Flags().StringVar(&prefer, "prefer", string(simulate.PreferChampion), "Pick strategy: champion, challenger, random or title")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for the random strategy")
	cmd.Flags().IntVar(&top, "top", simulate.DefaultTopN, "Leaderboard rows to verify")
	cmd.Flags().DurationVar(&timeout, "timeout", simulate.DefaultTimeout, "Per-request timeout")
	cmd.Flags().BoolVar(&noReset, "no-reset", false, "Keep the existing tally instead of resetting first")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every round")
	return cmd
}
