package order

import (
	"time"

	"absapay-be/internal/payment"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusPaid       OrderStatus = "PAID"
	StatusFailed     OrderStatus = "FAILED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusRefunded   OrderStatus = "REFUNDED"
)

// openStatuses are the only statuses a payment callback may move away from.
var openStatuses = []OrderStatus{StatusPending, StatusProcessing}

// IsOpen reports whether a payment outcome can still be applied.
func (s OrderStatus) IsOpen() bool {
	for _, open := range openStatuses {
		if s == open {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a payment outcome has already been applied.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed
}

type Order struct {
	ID               uint
	UserID           *uint
	OrderKey         string
	Total            decimal.Decimal
	Currency         string
	Status           OrderStatus
	BillingFirstName string
	BillingLastName  string
	BillingEmail     string
	BillingPhone     string
	TransactionID    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PaymentDetails returns the data the payment request is built from.
func (o *Order) PaymentDetails() payment.OrderDetails {
	return payment.OrderDetails{
		OrderID:   o.ID,
		Total:     o.Total,
		Currency:  o.Currency,
		Email:     o.BillingEmail,
		FirstName: o.BillingFirstName,
		LastName:  o.BillingLastName,
		Phone:     o.BillingPhone,
	}
}

// OrderNote is an audit entry explaining a status change.
type OrderNote struct {
	ID        uint
	OrderID   uint
	Note      string
	CreatedAt time.Time
}
