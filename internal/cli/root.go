package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sbenjam1n/bizassess/internal/assess"
	"github.com/sbenjam1n/bizassess/internal/catalog"
	"github.com/sbenjam1n/bizassess/internal/config"
	"github.com/sbenjam1n/bizassess/internal/db"
	"github.com/sbenjam1n/bizassess/internal/engine"
	"github.com/sbenjam1n/bizassess/internal/queue"
	"github.com/sbenjam1n/bizassess/internal/store"
)

var (
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:   "assess",
		Short: "Business assessment evaluation engine",
		Long: `assess tracks a founder questionnaire across twelve business domains,
computes progress over the dynamic question graph, checks answers against
the company's business model profile and turns findings into prioritized gaps.

Typical session:
  assess init
  assess assessment create --company acme
  assess assessment classify <id> --model b2b-saas --sector software
  assess assessment answer <id> revenue-engine 3.4 5
  assess evaluate <id>
  assess gaps list <id>`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(assessmentCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(gapsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(scorerCmd)
	rootCmd.AddCommand(queueCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w\nSet ASSESS_DATABASE_URL environment variable", err)
	}
	return pool, nil
}

func connectRedis() (*redis.Client, error) {
	rdb, err := queue.ConnectRedis(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%w\nSet ASSESS_REDIS_URL environment variable", err)
	}
	return rdb, nil
}

// openStore connects to Postgres. The caller closes the returned pool.
func openStore(ctx context.Context) (*store.Store, *pgxpool.Pool, error) {
	pool, err := connectDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	return store.New(pool), pool, nil
}

// catalogPath resolves ASSESS_CATALOG_PATH against the project root.
func catalogPath() string {
	p := cfg.CatalogPath
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cfg.ProjectRoot, p)
}

func loadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.Load(catalogPath())
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

func loadEngine() (*engine.Engine, error) {
	cat, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	return engine.FromCatalog(cat, engine.Options{
		SecondsPerQuestion: cfg.SecondsPerQuestion,
		Policy:             cfg.Policy,
	})
}

func parseDomain(s string) (assess.DomainID, error) {
	d := assess.DomainID(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown domain %q (run 'assess catalog list')", s)
	}
	return d, nil
}
