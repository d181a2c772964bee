// Package settings holds the payment gateway credentials of the till and
// their persistence.
package settings

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/validate"
)

// DefaultAPIURL is the earn endpoint of a locally running gateway.
const DefaultAPIURL = "http://localhost:5078/api/pos/earn"

// ErrInvalid is returned for settings that are present but malformed.
var ErrInvalid = errors.New("invalid gateway settings")

// Config is the gateway configuration.
type Config struct {
	ServiceCode string `json:"serviceCode" validate:"required"`
	PosAppID    string `json:"posAppId" validate:"required"`
	APIURL      string `json:"apiUrl" validate:"required,url"`
}

// Defaults returns the configuration used before anything is stored.
func Defaults() Config {
	return Config{APIURL: DefaultAPIURL}
}

// Check returns payment.MissingConfigurationError when a required field is
// empty and ErrInvalid when the API URL is malformed.
func (c Config) Check() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	if missing := validate.Missing(err); len(missing) > 0 {
		return &payment.MissingConfigurationError{Fields: missing}
	}
	return errors.Wrap(ErrInvalid, joinFields(validate.Fields(err)))
}

// Merge returns base with every non-empty field of override applied.
func Merge(base Config, override *Config) Config {
	if override == nil {
		return base
	}
	if v := strings.TrimSpace(override.ServiceCode); v != "" {
		base.ServiceCode = v
	}
	if v := strings.TrimSpace(override.PosAppID); v != "" {
		base.PosAppID = v
	}
	if v := strings.TrimSpace(override.APIURL); v != "" {
		base.APIURL = v
	}
	return base
}

// Patch is a partial update. Nil fields are left unchanged; an empty string
// clears the field.
type Patch struct {
	ServiceCode *string
	PosAppID    *string
	APIURL      *string
}

// Apply returns c with p applied.
func (p Patch) Apply(c Config) Config {
	if p.ServiceCode != nil {
		c.ServiceCode = strings.TrimSpace(*p.ServiceCode)
	}
	if p.PosAppID != nil {
		c.PosAppID = strings.TrimSpace(*p.PosAppID)
	}
	if p.APIURL != nil {
		c.APIURL = strings.TrimSpace(*p.APIURL)
	}
	return c
}

// Store persists the configuration. Get returns (nil, nil) when nothing is
// stored.
type Store interface {
	Get(ctx context.Context) (*Config, error)
	Set(ctx context.Context, cfg Config) error
}

// Source provides the current configuration.
type Source interface {
	Current() Config
}

// Service keeps the effective configuration: defaults merged with stored
// overrides. Safe for concurrent use.
type Service struct {
	store   Store
	lg      *zap.Logger
	current atomic.Pointer[Config]

	mu sync.Mutex // serialises Update
}

var _ Source = (*Service)(nil)

// NewService loads the stored configuration and merges it over defaults.
func NewService(ctx context.Context, store Store, defaults Config, lg *zap.Logger) (*Service, error) {
	stored, err := store.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load settings")
	}
	cfg := Merge(defaults, stored)

	s := &Service{store: store, lg: lg}
	s.current.Store(&cfg)
	if err := cfg.Check(); err != nil {
		lg.Warn("Payment gateway settings incomplete", zap.Error(err))
	}
	return s, nil
}

// Current returns the effective configuration.
func (s *Service) Current() Config {
	return *s.current.Load()
}

// Update applies p, persists the result and makes it current. Credentials may
// be left empty; a non-empty API URL must be a valid URL.
func (s *Service) Update(ctx context.Context, p Patch) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := p.Apply(s.Current())
	if next.APIURL == "" {
		next.APIURL = DefaultAPIURL
	}
	if err := checkURL(next.APIURL); err != nil {
		return Config{}, err
	}
	if err := next.Check(); err != nil && !errors.Is(err, payment.ErrMissingConfiguration) {
		return Config{}, err
	}
	if err := s.store.Set(ctx, next); err != nil {
		return Config{}, errors.Wrap(err, "store settings")
	}
	s.current.Store(&next)
	s.lg.Info("Payment gateway settings updated",
		zap.String("api_url", next.APIURL),
		zap.Bool("complete", next.Check() == nil),
	)
	return next, nil
}

// checkURL validates the API URL on its own, so missing credentials cannot
// hide a malformed URL.
func checkURL(raw string) error {
	if err := validate.Validator().Var(raw, "url"); err != nil {
		return errors.Wrapf(ErrInvalid, "apiUrl must be a valid URL, got %q", raw)
	}
	return nil
}

func joinFields(fields map[string]string) string {
	msgs := make([]string, 0, len(fields))
	for _, msg := range fields {
		msgs = append(msgs, msg)
	}
	slices.Sort(msgs)
	return strings.Join(msgs, "; ")
}
