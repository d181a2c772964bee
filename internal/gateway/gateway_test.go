package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/pos-till/internal/domain/payment"
	"github.com/xenking/pos-till/internal/settings"
)

type staticSource settings.Config

func (s staticSource) Current() settings.Config { return settings.Config(s) }

func newClient(t *testing.T, url string, cfg Config) *Client {
	t.Helper()
	src := staticSource{ServiceCode: "svc-1", PosAppID: "pos-7", APIURL: url}
	return New(src, cfg,
		WithLogger(zaptest.NewLogger(t)),
		WithTracerProvider(noop.NewTracerProvider()),
	)
}

func testRequest() payment.Request {
	return payment.Request{
		OrderID:   "ORD-1",
		Amount:    decimal.NewFromInt(125000),
		OrderDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestClient_ChargeSendsHeadersAndBody(t *testing.T) {
	var (
		gotHeader http.Header
		gotBody   map[string]jx.Raw
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		data, _ := io.ReadAll(r.Body)
		gotBody = map[string]jx.Raw{}
		_ = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			gotBody[key] = append(jx.Raw(nil), raw...)
			return nil
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Earned 125 points"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Config{})
	rcpt, err := c.Charge(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "ORD-1", rcpt.OrderID)
	assert.Equal(t, http.StatusOK, rcpt.Status)
	assert.Equal(t, "Earned 125 points", rcpt.Message)

	assert.Equal(t, "svc-1", gotHeader.Get(HeaderServiceCode))
	assert.Equal(t, "pos-7", gotHeader.Get(HeaderPosAppID))
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))

	assert.Equal(t, `"UNKNOWN"`, gotBody["cardNumber"].String())
	assert.Equal(t, `null`, gotBody["promotionId"].String())
	assert.Equal(t, `"ORD-1"`, gotBody["orderId"].String())
	assert.Equal(t, `125000`, gotBody["amount"].String())
	assert.Equal(t, `"2026-03-01T10:00:00.000Z"`, gotBody["orderDate"].String())
}

func TestClient_ChargeCustomerAndPromotion(t *testing.T) {
	var card, promo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "cardNumber":
				s, err := d.Str()
				card = s
				return err
			case "promotionId":
				s, err := d.Str()
				promo = s
				return err
			default:
				return d.Skip()
			}
		})
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	req := testRequest()
	req.CustomerID = "0901234567"
	req.PromotionID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

	rcpt, err := newClient(t, srv.URL, Config{}).Charge(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rcpt.Status)
	assert.Empty(t, rcpt.Message)
	assert.Equal(t, "0901234567", card)
	assert.Equal(t, "7c9e6679-7425-40de-944b-e07fc1f90ae7", promo)
}

func TestClient_ChargeRejected(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "message from body", status: http.StatusBadRequest, body: `{"message":"Invalid card number"}`, message: "Invalid card number"},
		{name: "no message", status: http.StatusInternalServerError, body: `{"error":"boom"}`, message: payment.DefaultGatewayMessage},
		{name: "not json", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, message: payment.DefaultGatewayMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL, Config{}).Charge(context.Background(), testRequest())
			require.Error(t, err)
			assert.ErrorIs(t, err, payment.ErrGateway)
			assert.NotErrorIs(t, err, payment.ErrTimeout)

			var gwErr *payment.GatewayError
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tt.status, gwErr.Status)
			assert.Equal(t, tt.message, gwErr.Message)
		})
	}
}

func TestClient_ChargeTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newClient(t, srv.URL, Config{Timeout: 50 * time.Millisecond}).
		Charge(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrTimeout)
	assert.ErrorIs(t, err, payment.ErrGateway)

	var gwErr *payment.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.True(t, gwErr.Timeout)
	assert.Zero(t, gwErr.Status)
}

func TestClient_ChargeMissingConfiguration(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := New(staticSource{APIURL: srv.URL}, Config{}, WithLogger(zaptest.NewLogger(t)))
	_, err := c.Charge(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrMissingConfiguration)

	var missing *payment.MissingConfigurationError
	require.True(t, errors.As(err, &missing))
	assert.ElementsMatch(t, []string{"serviceCode", "posAppId"}, missing.Fields)
	assert.Zero(t, calls.Load())
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Config{Breaker: BreakerConfig{
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	}})
	for range 2 {
		_, err := c.Charge(context.Background(), testRequest())
		require.ErrorIs(t, err, payment.ErrGateway)
	}

	_, err := c.Charge(context.Background(), testRequest())
	require.ErrorIs(t, err, payment.ErrGateway)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_RejectionsDoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Config{Breaker: BreakerConfig{ConsecutiveFailures: 1}})
	for range 3 {
		_, err := c.Charge(context.Background(), testRequest())
		var gwErr *payment.GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, http.StatusUnprocessableEntity, gwErr.Status)
	}
	assert.Equal(t, int32(3), calls.Load())
}
