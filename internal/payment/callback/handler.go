package callback

import (
	"errors"
	"net/http"
	"net/url"

	"absapay-be/internal/logger"
	"absapay-be/internal/order"
	"absapay-be/internal/payment"
	"absapay-be/internal/utils"

	"go.uber.org/zap"
)

// NoticeParam carries the customer notice on checkout redirects.
const NoticeParam = "payment_notice"

type Handler struct {
	reconciler *Reconciler
}

func NewHandler(r *Reconciler) *Handler {
	return &Handler{reconciler: r}
}

// ServeHTTP accepts the callback as query parameters or a form POST and
// redirects the customer's browser according to the decision.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.WriteJSONError(w, "invalid callback", http.StatusBadRequest)
		return
	}

	d, err := h.reconciler.Reconcile(r.Context(), ParsePayload(r.Form))
	if d == nil {
		status := http.StatusInternalServerError
		if isVerificationError(err) {
			status = http.StatusServiceUnavailable
		}
		logger.FromCtx(r.Context()).Error("payment callback not processed",
			zap.Int("status", status),
			zap.Error(err),
		)
		utils.WriteJSONError(w, "payment could not be confirmed, please try again", status)
		return
	}

	if err != nil && !errors.Is(err, ErrSignatureMismatch) && !errors.Is(err, order.ErrOrderNotFound) {
		logger.FromCtx(r.Context()).Warn("payment callback decided with error", zap.Error(err))
	}

	http.Redirect(w, r, withNotice(d.RedirectURL, d.Notice), http.StatusFound)
}

func isVerificationError(err error) bool {
	var (
		netErr   *payment.NetworkError
		gwErr    *payment.GatewayError
		protoErr *payment.ProtocolError
	)
	return errors.As(err, &netErr) || errors.As(err, &gwErr) || errors.As(err, &protoErr)
}

func withNotice(target, notice string) string {
	if notice == "" {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(NoticeParam, notice)
	u.RawQuery = q.Encode()
	return u.String()
}
