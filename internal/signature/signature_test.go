package signature

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalString(t *testing.T) {
	params := map[string]string{
		"order_id":  "42",
		"amount":    "150.00",
		"currency":  "ZAR",
		"signature": "ignored",
	}

	assert.Equal(t, "amount150.00currencyZARorder_id42topsecret", CanonicalString(params, "topsecret"))
}

func TestSign(t *testing.T) {
	params := map[string]string{
		"order_id": "42",
		"amount":   "150.00",
		"currency": "ZAR",
	}

	t.Run("Known digest", func(t *testing.T) {
		assert.Equal(t,
			"f51b9ef20820fde55af71c507ca3e7f6224726d4a67b8d044c9601c161c4a903",
			Sign(params, "topsecret"),
		)
	})

	t.Run("Empty secret", func(t *testing.T) {
		assert.Equal(t,
			"bcd81b4e7dd0541faa95b9ed96f91120bd9583a8f9636309fca0f73d237cd8a5",
			Sign(params, ""),
		)
	})

	t.Run("Deterministic across insertion order", func(t *testing.T) {
		reordered := map[string]string{}
		reordered["currency"] = "ZAR"
		reordered["order_id"] = "42"
		reordered["amount"] = "150.00"

		for i := 0; i < 20; i++ {
			assert.Equal(t, Sign(params, "topsecret"), Sign(reordered, "topsecret"))
		}
	})

	t.Run("Existing signature is excluded", func(t *testing.T) {
		withSig := map[string]string{
			"order_id":  "42",
			"amount":    "150.00",
			"currency":  "ZAR",
			"signature": "deadbeef",
		}
		assert.Equal(t, Sign(params, "topsecret"), Sign(withSig, "topsecret"))
	})

	t.Run("Empty value differs from missing key", func(t *testing.T) {
		withEmpty := map[string]string{
			"order_id":       "42",
			"amount":         "150.00",
			"currency":       "ZAR",
			"customer_phone": "",
		}
		assert.NotEqual(t, Sign(params, "topsecret"), Sign(withEmpty, "topsecret"))
	})

	t.Run("Amount is signed verbatim", func(t *testing.T) {
		short := map[string]string{"order_id": "42", "amount": "150", "currency": "ZAR"}
		assert.NotEqual(t, Sign(params, "topsecret"), Sign(short, "topsecret"))
	})

	t.Run("Lowercase hex", func(t *testing.T) {
		sig := Sign(params, "topsecret")
		assert.Len(t, sig, 64)
		assert.Equal(t, strings.ToLower(sig), sig)
	})
}

func TestSign_TamperSensitivity(t *testing.T) {
	params := map[string]string{
		"merchant_id": "M-1001",
		"order_id":    "42",
		"amount":      "150.00",
		"status":      "success",
	}
	original := Sign(params, "topsecret")

	for key, value := range params {
		for i := range value {
			tampered := make(map[string]string, len(params))
			for k, v := range params {
				tampered[k] = v
			}
			b := []byte(value)
			b[i] ^= 0x01
			tampered[key] = string(b)

			t.Run(fmt.Sprintf("%s[%d]", key, i), func(t *testing.T) {
				assert.NotEqual(t, original, Sign(tampered, "topsecret"))
			})
		}
	}
}

func TestVerify(t *testing.T) {
	params := map[string]string{
		"order_id": "42",
		"status":   "success",
	}
	sig := Sign(params, "topsecret")

	tests := []struct {
		name     string
		received string
		params   map[string]string
		secret   string
		want     bool
	}{
		{"Round trip", sig, params, "topsecret", true},
		{"Uppercase hex accepted", strings.ToUpper(sig), params, "topsecret", true},
		{"Signature field in params is stripped", sig, map[string]string{"order_id": "42", "status": "success", "signature": sig}, "topsecret", true},
		{"Wrong secret", sig, params, "other", false},
		{"Tampered status", sig, map[string]string{"order_id": "42", "status": "failed"}, "topsecret", false},
		{"Extra field", sig, map[string]string{"order_id": "42", "status": "success", "note": ""}, "topsecret", false},
		{"Empty signature", "", params, "topsecret", false},
		{"Truncated signature", sig[:32], params, "topsecret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify(tt.received, tt.params, tt.secret))
		})
	}
}
