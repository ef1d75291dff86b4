// Package checkout serves the customer-facing steps that hand an order to the
// payment gateway.
package checkout

import (
	"context"
	"errors"
	"net/http"

	"absapay-be/internal/logger"
	"absapay-be/internal/order"
	"absapay-be/internal/payment"
	"absapay-be/internal/payment/callback"
	"absapay-be/internal/settings"
	"absapay-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderGetter interface {
	GetOrder(ctx context.Context, orderID uint) (*order.Order, error)
}

// Storefront resolves merchant configuration and customer-facing URLs.
type Storefront interface {
	Available(ctx context.Context, currency string) bool
	MerchantConfigFor(ctx context.Context, o *order.Order) (payment.MerchantConfig, error)
	ReturnURL(ctx context.Context, o *order.Order) string
	CheckoutURL() string
	ReceiptURL(o *order.Order) string
	CancelURL(o *order.Order) string
}

type Initiator interface {
	InitiateRedirectURL(testMode bool) string
}

type Handler struct {
	orders    OrderGetter
	store     Storefront
	builder   *payment.Builder
	initiator Initiator
}

func NewHandler(orders OrderGetter, store Storefront, builder *payment.Builder, initiator Initiator) *Handler {
	return &Handler{orders: orders, store: store, builder: builder, initiator: initiator}
}

type processResponse struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ProcessPayment answers the storefront's "place order" step with the receipt
// page the customer should be sent to.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	o, status := h.loadOrder(r)
	if o == nil {
		utils.WriteJSON(w, status, processResponse{Result: "failure", Message: http.StatusText(status)})
		return
	}

	if !o.Status.IsOpen() {
		utils.WriteJSON(w, http.StatusConflict, processResponse{
			Result:  "failure",
			Message: "order is not awaiting payment",
		})
		return
	}

	if !h.store.Available(r.Context(), o.Currency) {
		utils.WriteJSON(w, http.StatusUnprocessableEntity, processResponse{
			Result:  "failure",
			Message: "Absa Pay is not available for this order",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, processResponse{
		Result:   "success",
		Redirect: h.store.ReceiptURL(o),
	})
}

// ReceiptPage renders the signed form that posts the order to the gateway.
func (h *Handler) ReceiptPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx)

	o, status := h.loadOrder(r)
	if o == nil {
		http.Error(w, http.StatusText(status), status)
		return
	}

	if !o.Status.IsOpen() {
		target := h.store.CheckoutURL()
		if o.Status == order.StatusPaid {
			target = h.store.ReturnURL(ctx, o)
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	cfg, err := h.store.MerchantConfigFor(ctx, o)
	if err != nil {
		var cfgErr *payment.ConfigurationError
		if errors.As(err, &cfgErr) || errors.Is(err, settings.ErrGatewayDisabled) {
			log.Error("payment gateway misconfigured", zap.Uint("order_id", o.ID), zap.Error(err))
			http.Error(w, "Absa Pay is currently unavailable", http.StatusServiceUnavailable)
			return
		}
		log.Error("failed to load merchant config", zap.Uint("order_id", o.ID), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	req, err := h.builder.Build(o.PaymentDetails(), cfg)
	if err != nil {
		var valErr *payment.ValidationError
		if errors.As(err, &valErr) {
			log.Warn("order cannot be paid with Absa Pay", zap.Uint("order_id", o.ID), zap.Error(err))
			http.Redirect(w, r, h.checkoutWithNotice(), http.StatusFound)
			return
		}
		log.Error("failed to build payment request", zap.Uint("order_id", o.ID), zap.Error(err))
		http.Error(w, "Absa Pay is currently unavailable", http.StatusServiceUnavailable)
		return
	}

	log.Info("payment request built",
		zap.Uint("order_id", o.ID),
		zap.Bool("test_mode", cfg.TestMode),
		logger.Params("request", req.SignedParams()),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	err = payment.RenderForm(w, payment.FormPage{
		Action:     h.initiator.InitiateRedirectURL(cfg.TestMode),
		Fields:     req.Fields(),
		CancelURL:  h.store.CancelURL(o),
		AutoSubmit: !cfg.TestMode,
	})
	if err != nil {
		log.Error("failed to render payment form", zap.Uint("order_id", o.ID), zap.Error(err))
	}
}

// loadOrder returns the order named by the route, or nil and the status to
// answer with. A wrong order key is reported as not found.
func (h *Handler) loadOrder(r *http.Request) (*order.Order, int) {
	orderID, err := utils.ToUint(chi.URLParam(r, "orderID"))
	if err != nil || orderID == 0 {
		return nil, http.StatusNotFound
	}

	o, err := h.orders.GetOrder(r.Context(), orderID)
	if errors.Is(err, order.ErrOrderNotFound) {
		return nil, http.StatusNotFound
	}
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to load order", zap.Uint("order_id", orderID), zap.Error(err))
		return nil, http.StatusInternalServerError
	}

	if o.OrderKey != "" && r.URL.Query().Get("key") != o.OrderKey {
		return nil, http.StatusNotFound
	}
	return o, http.StatusOK
}

func (h *Handler) checkoutWithNotice() string {
	return h.store.CheckoutURL() + "?" + callback.NoticeParam + "=" + callback.NoticePaymentFailed
}
