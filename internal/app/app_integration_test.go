//go:build integration

package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/pos-till/db"
	"github.com/xenking/pos-till/internal/storage/postgres"
	"github.com/xenking/pos-till/internal/wire"
)

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

type server struct {
	baseURL string
	charges *atomic.Int32
	client  *http.Client
}

// startServer runs the application against a fresh PostgreSQL container
// seeded with the bundled catalog, and a stub payment gateway.
func startServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase("pos"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, postgres.RunMigrations(ctx, pool))
	products, err := wire.DecodeProducts(db.Products)
	require.NoError(t, err)
	require.NoError(t, postgres.NewProducts(pool).Upsert(ctx, products))
	vouchers, err := wire.DecodeVouchers(db.Vouchers)
	require.NoError(t, err)
	require.NoError(t, postgres.NewVouchers(pool).Upsert(ctx, vouchers))
	pool.Close()

	charges := &atomic.Int32{}
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		charges.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	}))
	t.Cleanup(gw.Close)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	cfg := &Config{
		Addr:        addr,
		DatabaseURL: dsn,
		Gateway: GatewayConfig{
			ServiceCode: "SC",
			PosAppID:    "APP",
			APIURL:      gw.URL + "/api/pos/earn",
			Timeout:     5 * time.Second,
		},
		Printer:   PrinterConfig{Width: 32, StoreName: "POS", Output: "discard"},
		RateLimit: RateLimitConfig{Max: 1000, Window: time.Minute},
		CORS:      CORSConfig{Origins: []string{"*"}},
		Graceful:  GracefulConfig{ShutdownTimeout: 5 * time.Second},
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- Run(runCtx, zaptest.NewLogger(t), noopTelemetry{}, cfg) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("server did not stop")
		}
	})

	s := &server{baseURL: "http://" + addr, charges: charges, client: &http.Client{Timeout: 10 * time.Second}}
	require.Eventually(t, func() bool {
		resp, err := s.client.Get(s.baseURL + "/readyz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 30*time.Second, 200*time.Millisecond)
	return s
}

func (s *server) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, s.baseURL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func field(t *testing.T, data []byte, key string) jx.Raw {
	t.Helper()
	var out jx.Raw
	require.NoError(t, jx.DecodeBytes(data).Obj(func(d *jx.Decoder, k string) error {
		if k != key {
			return d.Skip()
		}
		r, err := d.Raw()
		out = append(jx.Raw(nil), r...)
		return err
	}))
	require.NotNil(t, out, "missing %q", key)
	return out
}

func TestServer(t *testing.T) {
	s := startServer(t)

	t.Run("HealthEndpoints", func(t *testing.T) {
		for _, path := range []string{"/livez", "/readyz"} {
			resp, body := s.do(t, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, resp.StatusCode, path)
			assert.Equal(t, `"ok"`, field(t, body, "status").String())
		}
	})

	t.Run("RequestID", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, s.baseURL+"/livez", nil)
		require.NoError(t, err)
		req.Header.Set("X-Request-ID", "custom-request-id-12345")
		resp, err := s.client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, "custom-request-id-12345", resp.Header.Get("X-Request-ID"))
	})

	t.Run("CORSPreflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, s.baseURL+"/api/products", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", "GET")
		resp, err := s.client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("Sale", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodPost, "/api/tills/front/cart/items", `{"productId":"1","quantity":2}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := s.do(t, http.MethodPost, "/api/tills/front/cart/voucher", `{"code":"GIAM25K"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "true", field(t, body, "success").String())

		resp, body = s.do(t, http.MethodPost, "/api/tills/front/checkout", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		orderID, err := jx.DecodeBytes(field(t, body, "orderId")).Str()
		require.NoError(t, err)

		resp, body = s.do(t, http.MethodPost, "/api/tills/front/checkout/payment", `{"method":"card"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		assert.Equal(t, int32(1), s.charges.Load())

		resp, body = s.do(t, http.MethodGet, "/api/tills/front/orders", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), fmt.Sprintf("%q", orderID))
		assert.Contains(t, string(body), `"voucherCode":"GIAM25K"`)

		resp, _ = s.do(t, http.MethodGet, "/api/tills/front/orders/"+orderID+"/receipt", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("SettingsPersist", func(t *testing.T) {
		resp, body := s.do(t, http.MethodPut, "/api/settings/gateway", `{"serviceCode":"NEW"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		resp, body = s.do(t, http.MethodGet, "/api/settings/gateway", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `"NEW"`, field(t, body, "serviceCode").String())
		assert.Equal(t, `"APP"`, field(t, body, "posAppId").String())
	})
}
