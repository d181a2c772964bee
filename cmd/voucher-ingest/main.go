package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		expected    uint
		batchSize   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing voucher batch files")
	flag.StringVar(&pattern, "pattern", "*.csv.gz", "glob of batch files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&expected, "expected", 1_000_000, "expected vouchers per file, sizes the bloom filters")
	flag.IntVar(&batchSize, "batch-size", 1000, "vouchers per database upsert")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		lg.Fatal("Invalid pattern", zap.Error(err))
	}
	if len(files) == 0 {
		lg.Fatal("No batch files found", zap.String("dir", dataDir), zap.String("pattern", pattern))
	}
	sort.Strings(files)

	if err := run(ctx, lg, files, databaseURL, expected, batchSize); err != nil {
		lg.Fatal("Voucher ingest failed", zap.Error(err))
	}
	lg.Info("Voucher ingest completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, files []string, databaseURL string, expected uint, batchSize int) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	in := &ingester{
		files:     files,
		expected:  expected,
		batchSize: batchSize,
		repo:      postgres.NewVouchers(pool),
		lg:        lg,
	}
	stats, err := in.Run(ctx)
	if err != nil {
		return err
	}
	lg.Info("Ingest summary",
		zap.Int("files", len(files)),
		zap.Uint64("rows", stats.rows),
		zap.Uint64("written", stats.written),
		zap.Uint64("duplicates", stats.duplicates),
		zap.Uint64("malformed", stats.malformed),
	)
	return nil
}
