package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"absapay-be/internal/order"
	"absapay-be/internal/payment"
	"absapay-be/internal/settings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderGetter struct {
	mock.Mock
}

func (m *MockOrderGetter) GetOrder(ctx context.Context, orderID uint) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type stubStorefront struct {
	available bool
	cfg       payment.MerchantConfig
	cfgErr    error
}

func (s stubStorefront) Available(ctx context.Context, currency string) bool {
	return s.available && payment.IsSupportedCurrency(currency)
}

func (s stubStorefront) MerchantConfigFor(ctx context.Context, o *order.Order) (payment.MerchantConfig, error) {
	return s.cfg, s.cfgErr
}

func (s stubStorefront) ReturnURL(ctx context.Context, o *order.Order) string {
	return "https://shop.example.com/thank-you"
}

func (s stubStorefront) CheckoutURL() string { return "https://shop.example.com/checkout" }

func (s stubStorefront) ReceiptURL(o *order.Order) string {
	return "https://shop.example.com/checkout/pay/42?key=" + o.OrderKey
}

func (s stubStorefront) CancelURL(o *order.Order) string { return "https://shop.example.com/cart" }

func liveStorefront(testMode bool) stubStorefront {
	return stubStorefront{
		available: true,
		cfg: payment.MerchantConfig{
			MerchantID:  "M-1001",
			APIKey:      "key-123",
			APISecret:   "topsecret",
			TestMode:    testMode,
			ReturnURL:   "https://shop.example.com/thank-you",
			CallbackURL: "https://shop.example.com/payment/callback",
		},
	}
}

func pendingOrder() *order.Order {
	return &order.Order{
		ID:               42,
		OrderKey:         "key_abc",
		Total:            decimal.RequireFromString("150"),
		Currency:         "ZAR",
		Status:           order.StatusPending,
		BillingFirstName: "Thandi",
		BillingLastName:  "Nkosi",
		BillingEmail:     "thandi@example.com",
	}
}

func newRouter(orders OrderGetter, store Storefront) http.Handler {
	h := NewHandler(orders, store, payment.NewBuilder(), payment.NewClient())
	r := chi.NewRouter()
	r.Get("/checkout/pay/{orderID}", h.ReceiptPage)
	r.Post("/checkout/orders/{orderID}/pay", h.ProcessPayment)
	return r
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestReceiptPage(t *testing.T) {
	t.Run("Test mode form", func(t *testing.T) {
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(42)).Return(pendingOrder(), nil)

		w := serve(newRouter(orders, liveStorefront(true)), http.MethodGet, "/checkout/pay/42?key=key_abc")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		body := w.Body.String()
		assert.Contains(t, body, `action="https://test.absa.co.za/api/payment/initiate"`)
		assert.Contains(t, body, `name="amount" value="150.00"`)
		assert.Contains(t, body, `name="reference" value="ORD-42"`)
		assert.Contains(t, body, `href="https://shop.example.com/cart"`)
		assert.NotContains(t, body, "<script>")
	})

	t.Run("Live mode auto submits", func(t *testing.T) {
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(42)).Return(pendingOrder(), nil)

		w := serve(newRouter(orders, liveStorefront(false)), http.MethodGet, "/checkout/pay/42?key=key_abc")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `action="https://api.absa.co.za/api/payment/initiate"`)
		assert.Contains(t, w.Body.String(), "<script>")
	})

	t.Run("Wrong key", func(t *testing.T) {
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(42)).Return(pendingOrder(), nil)

		w := serve(newRouter(orders, liveStorefront(true)), http.MethodGet, "/checkout/pay/42?key=guess")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Unknown order", func(t *testing.T) {
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(9)).Return(nil, order.ErrOrderNotFound)

		w := serve(newRouter(orders, liveStorefront(true)), http.MethodGet, "/checkout/pay/9")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Invalid order id", func(t *testing.T) {
		w := serve(newRouter(new(MockOrderGetter), liveStorefront(true)), http.MethodGet, "/checkout/pay/abc")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Paid order goes to return page", func(t *testing.T) {
		o := pendingOrder()
		o.Status = order.StatusPaid
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(42)).Return(o, nil)

		w := serve(newRouter(orders, liveStorefront(true)), http.MethodGet, "/checkout/pay/42?key=key_abc")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://shop.example.com/thank-you", w.Header().Get("Location"))
	})

	t.Run("Gateway disabled", func(t *testing.T) {
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(42)).Return(pendingOrder(), nil)
		store := liveStorefront(true)
		store.cfgErr = settings.ErrGatewayDisabled

		w := serve(newRouter(orders, store), http.MethodGet, "/checkout/pay/42?key=key_abc")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Unsupported currency", func(t *testing.T) {
		o := pendingOrder()
		o.Currency = "IDR"
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(42)).Return(o, nil)

		w := serve(newRouter(orders, liveStorefront(true)), http.MethodGet, "/checkout/pay/42?key=key_abc")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://shop.example.com/checkout?payment_notice=payment_failed", w.Header().Get("Location"))
	})

	t.Run("Order store error", func(t *testing.T) {
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(42)).Return(nil, errors.New("db down"))

		w := serve(newRouter(orders, liveStorefront(true)), http.MethodGet, "/checkout/pay/42?key=key_abc")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestProcessPayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(42)).Return(pendingOrder(), nil)

		w := serve(newRouter(orders, liveStorefront(true)), http.MethodPost, "/checkout/orders/42/pay?key=key_abc")

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "success", body["result"])
		assert.Equal(t, "https://shop.example.com/checkout/pay/42?key=key_abc", body["redirect"])
	})

	t.Run("Gateway unavailable", func(t *testing.T) {
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(42)).Return(pendingOrder(), nil)
		store := liveStorefront(true)
		store.available = false

		w := serve(newRouter(orders, store), http.MethodPost, "/checkout/orders/42/pay?key=key_abc")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Closed order", func(t *testing.T) {
		o := pendingOrder()
		o.Status = order.StatusFailed
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(42)).Return(o, nil)

		w := serve(newRouter(orders, liveStorefront(true)), http.MethodPost, "/checkout/orders/42/pay?key=key_abc")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Unknown order", func(t *testing.T) {
		orders := new(MockOrderGetter)
		orders.On("GetOrder", mock.Anything, uint(7)).Return(nil, order.ErrOrderNotFound)

		w := serve(newRouter(orders, liveStorefront(true)), http.MethodPost, "/checkout/orders/7/pay")
		assert.Equal(t, http.StatusNotFound, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "failure", body["result"])
	})
}
