package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/pos-till/internal/settings"
)

// Keys of the gateway settings rows.
const (
	keyServiceCode = "gateway.service_code"
	keyPosAppID    = "gateway.pos_app_id"
	keyAPIURL      = "gateway.api_url"
)

const (
	getSettingsSQL = `SELECT key, value FROM settings WHERE key = ANY($1)`

	setSettingSQL = `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

var _ settings.Store = (*Settings)(nil)

// Settings stores the payment gateway configuration as key/value rows.
type Settings struct {
	pool *pgxpool.Pool
}

// NewSettings returns a Settings that uses the given pool.
func NewSettings(pool *pgxpool.Pool) *Settings {
	return &Settings{pool: pool}
}

// Get returns the stored configuration, or nil when no row exists.
func (r *Settings) Get(ctx context.Context) (*settings.Config, error) {
	rows, err := r.pool.Query(ctx, getSettingsSQL, []string{keyServiceCode, keyPosAppID, keyAPIURL})
	if err != nil {
		return nil, errors.Wrap(err, "get settings")
	}

	var (
		cfg   settings.Config
		found bool
	)
	var key, value string
	_, err = pgx.ForEachRow(rows, []any{&key, &value}, func() error {
		found = true
		switch key {
		case keyServiceCode:
			cfg.ServiceCode = value
		case keyPosAppID:
			cfg.PosAppID = value
		case keyAPIURL:
			cfg.APIURL = value
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "get settings")
	}
	if !found {
		return nil, nil
	}
	return &cfg, nil
}

// Set replaces the stored configuration in one transaction.
func (r *Settings) Set(ctx context.Context, cfg settings.Config) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(setSettingSQL, keyServiceCode, cfg.ServiceCode)
		batch.Queue(setSettingSQL, keyPosAppID, cfg.PosAppID)
		batch.Queue(setSettingSQL, keyAPIURL, cfg.APIURL)
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return errors.Wrap(err, "set settings")
	}
	return nil
}
