package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"absapay-be/internal/signature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTripFunc lets a test fail the transport without a server.
type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(append([]Option{WithBaseURLs(srv.URL+"/test", srv.URL+"/live")}, opts...)...)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestClient_InitiateRedirectURL(t *testing.T) {
	c := NewClient()

	assert.Equal(t, "https://test.absa.co.za/api/payment/initiate", c.InitiateRedirectURL(true))
	assert.Equal(t, "https://api.absa.co.za/api/payment/initiate", c.InitiateRedirectURL(false))

	custom := NewClient(WithBaseURLs("http://sandbox.local/", ""))
	assert.Equal(t, "http://sandbox.local/payment/initiate", custom.InitiateRedirectURL(true))
	assert.Equal(t, "https://api.absa.co.za/api/payment/initiate", custom.InitiateRedirectURL(false))
}

func TestClient_VerifyPayment(t *testing.T) {
	cfg := testConfig()

	t.Run("Success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/test/payment/verify", r.URL.Path)
			assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
			assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
			assert.Equal(t, "application/json", r.Header.Get("Accept"))

			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, "M-1001", body["merchant_id"])
			assert.Equal(t, "tx-9", body["transaction_id"])
			assert.Equal(t, float64(1700000000), body["timestamp"])

			signed := map[string]string{
				"merchant_id":    "M-1001",
				"transaction_id": "tx-9",
				"timestamp":      strconv.Itoa(1700000000),
			}
			assert.True(t, signature.Verify(body["signature"].(string), signed, "topsecret"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"SUCCESS","transaction_id":"tx-9","amount":"150.00","currency":"ZAR"}`))
		})

		resp, err := c.VerifyPayment(context.Background(), "tx-9", cfg)
		require.NoError(t, err)
		assert.True(t, resp.Succeeded())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "tx-9", resp.TransactionID)
		assert.True(t, resp.Amount.Valid)
		assert.Equal(t, "150.00", resp.Amount.Decimal.StringFixed(2))
		assert.NotEmpty(t, resp.Raw)
	})

	t.Run("Live host when test mode is off", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/live/payment/verify", r.URL.Path)
			_, _ = w.Write([]byte(`{"status":"failed","amount":150}`))
		})

		live := cfg
		live.TestMode = false
		resp, err := c.VerifyPayment(context.Background(), "tx-9", live)
		require.NoError(t, err)
		assert.False(t, resp.Succeeded())
		assert.Equal(t, "150", resp.Amount.Decimal.String())
	})

	t.Run("GatewayError on parseable non-200", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":"UNKNOWN_TRANSACTION","message":"transaction not found"}`))
		})

		_, err := c.VerifyPayment(context.Background(), "tx-9", cfg)
		var gwErr *GatewayError
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, http.StatusUnprocessableEntity, gwErr.StatusCode)
		assert.Equal(t, "UNKNOWN_TRANSACTION", gwErr.Code)
		assert.Contains(t, gwErr.Error(), "transaction not found")
	})

	t.Run("ProtocolError on unparseable non-200", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`<html>bad gateway</html>`))
		})

		_, err := c.VerifyPayment(context.Background(), "tx-9", cfg)
		var protoErr *ProtocolError
		require.True(t, errors.As(err, &protoErr))
		assert.Equal(t, http.StatusBadGateway, protoErr.StatusCode)
	})

	t.Run("ProtocolError on malformed 200", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{invalid-json`))
		})

		_, err := c.VerifyPayment(context.Background(), "tx-9", cfg)
		var protoErr *ProtocolError
		assert.True(t, errors.As(err, &protoErr))
	})

	t.Run("ProtocolError on empty 200", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		_, err := c.VerifyPayment(context.Background(), "tx-9", cfg)
		var protoErr *ProtocolError
		assert.True(t, errors.As(err, &protoErr))
	})

	t.Run("ProtocolError on 200 without status", func(t *testing.T) {
		for _, body := range []string{`null`, `{}`, `{"status":"  ","transaction_id":"tx-9"}`} {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			resp, err := c.VerifyPayment(context.Background(), "tx-9", cfg)
			assert.Nil(t, resp, body)
			var protoErr *ProtocolError
			require.True(t, errors.As(err, &protoErr), body)
			assert.Equal(t, http.StatusOK, protoErr.StatusCode)
			assert.ErrorIs(t, err, errMissingStatus)
		}
	})

	t.Run("NetworkError on transport failure", func(t *testing.T) {
		c := NewClient(WithTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})))

		_, err := c.VerifyPayment(context.Background(), "tx-9", cfg)
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("NetworkError on timeout", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}, WithTimeout(50*time.Millisecond))

		_, err := c.VerifyPayment(context.Background(), "tx-9", cfg)
		var netErr *NetworkError
		assert.True(t, errors.As(err, &netErr))
	})

	t.Run("NetworkError when the caller cancels", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := c.VerifyPayment(ctx, "tx-9", cfg)
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("ConfigurationError before any request", func(t *testing.T) {
		called := false
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		bad := cfg
		bad.APIKey = ""
		_, err := c.VerifyPayment(context.Background(), "tx-9", bad)
		var cfgErr *ConfigurationError
		assert.True(t, errors.As(err, &cfgErr))
		assert.False(t, called)
	})

	t.Run("ValidationError on empty transaction id", func(t *testing.T) {
		c := NewClient()
		_, err := c.VerifyPayment(context.Background(), "", cfg)
		var valErr *ValidationError
		assert.True(t, errors.As(err, &valErr))
	})
}
