package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/db"
	"github.com/xenking/pos-till/internal/domain/auth"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/storage/postgres"
	"github.com/xenking/pos-till/internal/storage/rediscache"
	"github.com/xenking/pos-till/internal/wire"
)

type options struct {
	databaseURL  string
	redisURL     string
	productsFile string
	vouchersFile string
	apiKey       string
	apiKeyID     string
	apiKeyScope  string
	apiKeyPepper string
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.redisURL, "redis-url", "", "Redis URL of the product cache to invalidate (or REDIS_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "", "path to products JSON file (default: bundled catalog)")
	flag.StringVar(&opts.vouchersFile, "vouchers-file", "", "path to vouchers JSON file (default: bundled vouchers)")
	flag.StringVar(&opts.apiKey, "api-key", "", "API key to seed (or POS_SEED_API_KEY env); empty skips key seeding")
	flag.StringVar(&opts.apiKeyID, "api-key-id", "default", "id of the seeded API key")
	flag.StringVar(&opts.apiKeyScope, "api-key-scope", auth.ScopeAdmin, "scope of the seeded API key: till or admin")
	flag.StringVar(&opts.apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or POS_AUTH_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if opts.redisURL == "" {
		opts.redisURL = os.Getenv("REDIS_URL")
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("POS_SEED_API_KEY")
	}
	if opts.apiKeyPepper == "" {
		opts.apiKeyPepper = os.Getenv("POS_AUTH_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	productRepo := postgres.NewProducts(pool)
	products, err := seedProducts(ctx, lg, productRepo, opts.productsFile)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}
	if opts.redisURL != "" {
		if err := invalidateCache(ctx, lg, opts.redisURL, productRepo, products); err != nil {
			return err
		}
	}
	if err := seedVouchers(ctx, lg, postgres.NewVouchers(pool), opts.vouchersFile); err != nil {
		return errors.Wrap(err, "seed vouchers")
	}
	if opts.apiKey == "" {
		lg.Info("No API key given, skipping key seeding")
		return nil
	}
	if err := seedAPIKey(ctx, lg, postgres.NewAPIKeys(pool), opts); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	return nil
}

// readSeed returns the contents of path, or fallback when path is empty.
func readSeed(path string, fallback []byte) ([]byte, error) {
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}

func seedProducts(ctx context.Context, lg *zap.Logger, repo *postgres.Products, path string) ([]product.Product, error) {
	data, err := readSeed(path, db.Products)
	if err != nil {
		return nil, err
	}
	products, err := wire.DecodeProducts(data)
	if err != nil {
		return nil, errors.Wrap(err, "parse products")
	}

	lg.Info("Upserting products", zap.Int("count", len(products)))
	if err := repo.Upsert(ctx, products); err != nil {
		return nil, err
	}
	for _, p := range products {
		lg.Debug("Upserted product", zap.String("id", p.ID), zap.String("name", p.Name))
	}
	return products, nil
}

// invalidateCache drops the cached entries of the upserted products so
// running servers see the new catalog before the cache TTL expires.
func invalidateCache(ctx context.Context, lg *zap.Logger, redisURL string, repo product.Catalog, products []product.Product) error {
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		return errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(ropts)
	defer func() { _ = rdb.Close() }()

	cache := rediscache.New(repo, rdb, rediscache.DefaultTTL, lg.Named("cache"))
	for _, p := range products {
		if err := cache.Invalidate(ctx, p); err != nil {
			return errors.Wrapf(err, "product %s", p.ID)
		}
	}
	lg.Info("Product cache invalidated", zap.Int("count", len(products)))
	return nil
}

func seedVouchers(ctx context.Context, lg *zap.Logger, repo *postgres.Vouchers, path string) error {
	data, err := readSeed(path, db.Vouchers)
	if err != nil {
		return err
	}
	vouchers, err := wire.DecodeVouchers(data)
	if err != nil {
		return errors.Wrap(err, "parse vouchers")
	}

	lg.Info("Upserting vouchers", zap.Int("count", len(vouchers)))
	return repo.Upsert(ctx, vouchers)
}

func seedAPIKey(ctx context.Context, lg *zap.Logger, repo *postgres.APIKeys, opts options) error {
	switch opts.apiKeyScope {
	case auth.ScopeTill, auth.ScopeAdmin:
	default:
		return errors.Errorf("unknown scope %q", opts.apiKeyScope)
	}
	if opts.apiKeyPepper == "" {
		lg.Warn("API key pepper is empty, keys are hashed without a secret")
	}

	key := auth.Key{
		ID:     opts.apiKeyID,
		Hash:   auth.Hash([]byte(opts.apiKeyPepper), opts.apiKey),
		Name:   "Seeded " + opts.apiKeyScope + " key",
		Scopes: []string{opts.apiKeyScope},
	}
	if err := repo.Upsert(ctx, key); err != nil {
		return err
	}
	lg.Info("Upserted API key", zap.String("id", key.ID), zap.String("scope", opts.apiKeyScope))
	return nil
}
