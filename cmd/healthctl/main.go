// healthctl is the operator CLI for the healthstats service: it ingests export
// files straight into the configured database and reports dataset stats.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"example.com/healthstats/internal/analytics"
	"example.com/healthstats/internal/config"
	"example.com/healthstats/internal/ingest"
	persistence "example.com/healthstats/internal/persistence/postgres"
)

var rootCmd = &cobra.Command{
	Use:   "healthctl",
	Short: "HealthStats operator CLI",
	Long: `healthctl manages the healthstats daily aggregate store directly,
without going through the HTTP API.`,
	Example: `  # Ingest an Apple Health export (raw XML or zip)
  $ healthctl ingest export.zip

  # Show dataset totals and coverage
  $ healthctl stats`,
	SilenceUsage: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a health export file into the aggregate store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd.Context(), func(ctx context.Context, repo *persistence.Repository) error {
			pipeline := ingest.NewPipeline(repo, analytics.New(repo))
			summary, err := pipeline.Run(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("run %s completed in %s\n", summary.RunID, summary.Duration)
			fmt.Printf("  sleep:    %d days (%d new)\n", summary.SleepDays, summary.SleepAdded)
			fmt.Printf("  activity: %d days (%d new)\n", summary.ActivityDays, summary.ActivityAdded)
			fmt.Printf("  vitals:   %d days (%d new)\n", summary.VitalsDays, summary.VitalsAdded)
			fmt.Printf("  derived metrics: %d\n", summary.MetricsComputed)
			fmt.Printf("  dropped observations: %d\n", summary.Dropped)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dataset totals and date coverage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRepository(cmd.Context(), func(ctx context.Context, repo *persistence.Repository) error {
			stats, err := repo.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("sleep records:    %d\n", stats.SleepCount)
			fmt.Printf("activity records: %d\n", stats.ActivityCount)
			fmt.Printf("vitals records:   %d\n", stats.VitalsCount)
			if stats.FirstDate != nil && stats.LastDate != nil {
				fmt.Printf("date range:       %s .. %s\n", stats.FirstDate, stats.LastDate)
			}
			return nil
		})
	},
}

func withRepository(ctx context.Context, fn func(context.Context, *persistence.Repository) error) error {
	cfg := config.Load()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return fn(ctx, repo)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
