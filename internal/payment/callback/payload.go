package callback

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"absapay-be/internal/payment"
	"absapay-be/internal/signature"
)

const (
	fieldOrderID       = "order_id"
	fieldStatus        = "status"
	fieldTransactionID = "transaction_id"
)

var knownFields = map[string]bool{
	fieldOrderID:       true,
	fieldStatus:        true,
	fieldTransactionID: true,
	signature.Field:    true,
	"merchant_id":      true,
	"amount":           true,
	"currency":         true,
	"reference":        true,
	"timestamp":        true,
	"message":          true,
}

// Payload is an inbound callback parsed once at the HTTP boundary.
type Payload struct {
	// OrderRef is the raw order_id value; OrderID is zero when it is not a
	// positive integer.
	OrderRef      string
	OrderID       uint
	Status        string
	TransactionID string
	Signature     string
	// Fields holds every received field except the signature, exactly as
	// received. It is the set the signature is computed over.
	Fields map[string]string
	// Unknown lists received keys the gateway is not documented to send.
	Unknown []string
}

// ParsePayload takes the first value of each key.
func ParsePayload(values url.Values) Payload {
	p := Payload{Fields: make(map[string]string, len(values))}

	for key, vals := range values {
		v := ""
		if len(vals) > 0 {
			v = vals[0]
		}
		if key == signature.Field {
			p.Signature = v
			continue
		}
		p.Fields[key] = v
		if !knownFields[key] {
			p.Unknown = append(p.Unknown, key)
		}
	}
	sort.Strings(p.Unknown)

	p.OrderRef = strings.TrimSpace(p.Fields[fieldOrderID])
	if id, err := strconv.ParseUint(p.OrderRef, 10, 64); err == nil {
		p.OrderID = uint(id)
	}
	p.Status = strings.TrimSpace(p.Fields[fieldStatus])
	p.TransactionID = strings.TrimSpace(p.Fields[fieldTransactionID])
	return p
}

// Succeeded reports whether the gateway reported a completed payment.
func (p Payload) Succeeded() bool {
	return strings.EqualFold(p.Status, payment.StatusSuccess)
}

// LogFields returns every received field, signature included, for forensic
// logging through logger.Params.
func (p Payload) LogFields() map[string]string {
	all := make(map[string]string, len(p.Fields)+1)
	for k, v := range p.Fields {
		all[k] = v
	}
	if p.Signature != "" {
		all[signature.Field] = p.Signature
	}
	return all
}
