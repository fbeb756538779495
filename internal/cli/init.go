package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbenjam1n/bizassess/internal/db"
	"github.com/sbenjam1n/bizassess/internal/queue"
)

var minimal bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the PostgreSQL schema and Redis streams",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if _, err := loadCatalog(); err != nil {
			return err
		}
		fmt.Println("Question catalog OK")

		fmt.Println("Connecting to PostgreSQL...")
		pool, err := connectDB(ctx)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()

		fmt.Println("Running migrations...")
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if len(applied) == 0 {
			fmt.Println("PostgreSQL schema up to date")
		}
		for _, name := range applied {
			fmt.Printf("  applied %s\n", name)
		}

		if minimal {
			fmt.Println("\nMinimal init complete. Run 'assess init' (without --minimal) to set up Redis streams.")
			return nil
		}

		fmt.Println("Connecting to Redis...")
		rdb, err := connectRedis()
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer rdb.Close()

		q := queue.New(rdb)
		if err := q.EnsureStreams(ctx); err != nil {
			return fmt.Errorf("redis stream setup failed: %w", err)
		}
		fmt.Println("Redis streams created")

		fmt.Println("\nInitialized.")
		fmt.Println("Next steps:")
		fmt.Println("  1. Run: assess assessment create --company <id>")
		fmt.Println("  2. Run: assess assessment classify <assessment> --model <model>")
		fmt.Println("  3. Run: assess scorer run")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&minimal, "minimal", false, "Minimal init: PostgreSQL schema only")
}
