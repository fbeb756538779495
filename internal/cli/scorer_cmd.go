package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/bizassess/internal/queue"
	"github.com/sbenjam1n/bizassess/internal/scorer"
	"github.com/sbenjam1n/bizassess/internal/store"
)

var scorerCmd = &cobra.Command{
	Use:   "scorer",
	Short: "Scoring worker operations",
}

var scorerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Consume score requests, evaluate and publish founder verdicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		consumer, _ := cmd.Flags().GetString("consumer")
		if consumer == "" {
			consumer = cfg.ScorerConsumer
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := loadEngine()
		if err != nil {
			return err
		}
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		q := queue.New(rdb)
		if err := q.EnsureStreams(ctx); err != nil {
			return err
		}

		w := scorer.New(e, store.New(pool), q, q, scorer.Options{
			Consumer: consumer,
			Debounce: cfg.ScoreDebounce,
		})

		fmt.Printf("Scorer %s running. Consuming %s (Ctrl+C to stop)...\n", consumer, queue.StreamScoring)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		fmt.Println("Scorer stopped.")
		return nil
	},
}

func init() {
	scorerRunCmd.Flags().String("consumer", "", "Consumer name within the scorer group (default ASSESS_SCORER_CONSUMER)")
	scorerCmd.AddCommand(scorerRunCmd)
}
