package payment

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Redirect form field names. The gateway matches them verbatim.
const (
	FieldMerchantID    = "merchant_id"
	FieldAmount        = "amount"
	FieldCurrency      = "currency"
	FieldOrderID       = "order_id"
	FieldReference     = "reference"
	FieldCustomerEmail = "customer_email"
	FieldCustomerName  = "customer_name"
	FieldCustomerPhone = "customer_phone"
	FieldReturnURL     = "return_url"
	FieldCallbackURL   = "callback_url"
	FieldTimestamp     = "timestamp"
	FieldSignature     = "signature"
)

// Provider identifies this gateway in persisted records.
const Provider = "ABSA_PAY"

// MerchantConfig holds the credentials and URLs for one transaction.
type MerchantConfig struct {
	MerchantID  string
	APIKey      string
	APISecret   string
	TestMode    bool
	ReturnURL   string
	CallbackURL string
}

// Validate reports a ConfigurationError naming the first missing credential.
func (c MerchantConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.MerchantID) == "":
		return &ConfigurationError{Field: "merchant_id"}
	case strings.TrimSpace(c.APIKey) == "":
		return &ConfigurationError{Field: "api_key"}
	case strings.TrimSpace(c.APISecret) == "":
		return &ConfigurationError{Field: "api_secret"}
	}
	return nil
}

// OrderDetails is the order data a payment request is built from.
type OrderDetails struct {
	OrderID   uint
	Total     decimal.Decimal
	Currency  string
	Email     string
	FirstName string
	LastName  string
	Phone     string
}

// PaymentRequest is the signed redirect payload for exactly one order.
type PaymentRequest struct {
	MerchantID    string
	Amount        string
	Currency      string
	OrderID       string
	Reference     string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	ReturnURL     string
	CallbackURL   string
	Timestamp     string
	Signature     string
}

// Field is one name/value pair of the redirect form.
type Field struct {
	Name  string
	Value string
}

// Fields returns the form fields in the order the gateway documents them,
// signature last.
func (p *PaymentRequest) Fields() []Field {
	return []Field{
		{FieldMerchantID, p.MerchantID},
		{FieldAmount, p.Amount},
		{FieldCurrency, p.Currency},
		{FieldOrderID, p.OrderID},
		{FieldReference, p.Reference},
		{FieldCustomerEmail, p.CustomerEmail},
		{FieldCustomerName, p.CustomerName},
		{FieldCustomerPhone, p.CustomerPhone},
		{FieldReturnURL, p.ReturnURL},
		{FieldCallbackURL, p.CallbackURL},
		{FieldTimestamp, p.Timestamp},
		{FieldSignature, p.Signature},
	}
}

// SignedParams returns every field except the signature.
func (p *PaymentRequest) SignedParams() map[string]string {
	params := make(map[string]string, 11)
	for _, f := range p.Fields() {
		if f.Name == FieldSignature {
			continue
		}
		params[f.Name] = f.Value
	}
	return params
}

// Values encodes the request as form values.
func (p *PaymentRequest) Values() url.Values {
	v := url.Values{}
	for _, f := range p.Fields() {
		v.Set(f.Name, f.Value)
	}
	return v
}

// GatewayResponse is the decoded body of a successful verify call.
type GatewayResponse struct {
	StatusCode    int                 `json:"-"`
	Status        string              `json:"status"`
	TransactionID string              `json:"transaction_id"`
	Amount        decimal.NullDecimal `json:"amount"`
	Currency      string              `json:"currency"`
	Message       string              `json:"message"`
	Raw           json.RawMessage     `json:"-"`
}

// Succeeded reports whether the gateway considers the transaction paid.
func (r *GatewayResponse) Succeeded() bool {
	return strings.EqualFold(strings.TrimSpace(r.Status), StatusSuccess)
}

// StatusSuccess is the only status value treated as a completed payment.
const StatusSuccess = "success"

var supportedCurrencies = map[string]bool{
	"ZAR": true,
	"USD": true,
	"EUR": true,
	"GBP": true,
}

// IsSupportedCurrency reports whether the gateway accepts the ISO 4217 code.
func IsSupportedCurrency(code string) bool {
	return supportedCurrencies[strings.ToUpper(strings.TrimSpace(code))]
}

// CallbackRecord is one inbound callback as persisted for forensic review.
type CallbackRecord struct {
	EventID        string
	OrderRef       string
	Status         string
	Payload        json.RawMessage
	SignatureValid bool
}
