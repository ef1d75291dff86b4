package payment

import (
	"strconv"
	"strings"
	"time"

	"absapay-be/internal/signature"
)

// ReferencePrefix is prepended to the order id to form the gateway reference.
const ReferencePrefix = "ORD-"

// Builder assembles signed redirect payloads. It holds no mutable state and is
// safe for concurrent use.
type Builder struct {
	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Reference returns the gateway reference for an order id.
func Reference(orderID uint) string {
	return ReferencePrefix + strconv.FormatUint(uint64(orderID), 10)
}

// Build returns the signed payment request for order. It performs no I/O.
func (b *Builder) Build(order OrderDetails, cfg MerchantConfig) (*PaymentRequest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if order.OrderID == 0 {
		return nil, &ValidationError{Field: "order_id", Reason: "must be set"}
	}

	// Two fraction digits, '.' separator, no grouping.
	amount := order.Total.Round(2)
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "order total must be positive"}
	}

	currency := strings.ToUpper(strings.TrimSpace(order.Currency))
	if !IsSupportedCurrency(currency) {
		return nil, &ValidationError{Field: "currency", Reason: "unsupported currency " + strconv.Quote(order.Currency)}
	}

	req := &PaymentRequest{
		MerchantID:    cfg.MerchantID,
		Amount:        amount.StringFixed(2),
		Currency:      currency,
		OrderID:       strconv.FormatUint(uint64(order.OrderID), 10),
		Reference:     Reference(order.OrderID),
		CustomerEmail: order.Email,
		CustomerName:  strings.TrimSpace(order.FirstName + " " + order.LastName),
		CustomerPhone: order.Phone,
		ReturnURL:     cfg.ReturnURL,
		CallbackURL:   cfg.CallbackURL,
		Timestamp:     strconv.FormatInt(b.now().Unix(), 10),
	}

	req.Signature = signature.Sign(req.SignedParams(), cfg.APISecret)

	return req, nil
}
