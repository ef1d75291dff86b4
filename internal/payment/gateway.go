package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"absapay-be/internal/logger"
	"absapay-be/internal/signature"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	TestBaseURL = "https://test.absa.co.za/api"
	LiveBaseURL = "https://api.absa.co.za/api"

	initiatePath = "/payment/initiate"
	verifyPath   = "/payment/verify"

	defaultTimeout = 30 * time.Second
)

var errMissingStatus = errors.New("response has no status")

// Verifier performs the server-to-server verify call.
type Verifier interface {
	VerifyPayment(ctx context.Context, transactionID string, cfg MerchantConfig) (*GatewayResponse, error)
}

// Client talks to the gateway. It never retries; callers own retry policy.
type Client struct {
	http        *resty.Client
	testBaseURL string
	liveBaseURL string
	now         func() time.Time
}

type Option func(*Client)

// WithBaseURLs overrides the test and live hosts. Empty values keep the defaults.
func WithBaseURLs(test, live string) Option {
	return func(c *Client) {
		if test != "" {
			c.testBaseURL = strings.TrimRight(test, "/")
		}
		if live != "" {
			c.liveBaseURL = strings.TrimRight(live, "/")
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.SetTransport(rt)
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:        resty.New().SetTimeout(defaultTimeout),
		testBaseURL: TestBaseURL,
		liveBaseURL: LiveBaseURL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) baseURL(testMode bool) string {
	if testMode {
		return c.testBaseURL
	}
	return c.liveBaseURL
}

// InitiateRedirectURL is where the customer's browser posts the payment form.
func (c *Client) InitiateRedirectURL(testMode bool) string {
	return c.baseURL(testMode) + initiatePath
}

type verifyRequest struct {
	MerchantID    string `json:"merchant_id"`
	TransactionID string `json:"transaction_id"`
	Timestamp     int64  `json:"timestamp"`
	Signature     string `json:"signature"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// VerifyPayment asks the gateway for the authoritative state of a transaction.
// Failures are classified as *NetworkError, *GatewayError or *ProtocolError.
func (c *Client) VerifyPayment(ctx context.Context, transactionID string, cfg MerchantConfig) (*GatewayResponse, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(transactionID) == "" {
		return nil, &ValidationError{Field: "transaction_id", Reason: "must be set"}
	}

	ts := c.now().Unix()
	body := verifyRequest{
		MerchantID:    cfg.MerchantID,
		TransactionID: transactionID,
		Timestamp:     ts,
	}
	body.Signature = signature.Sign(map[string]string{
		FieldMerchantID:  body.MerchantID,
		"transaction_id": body.TransactionID,
		FieldTimestamp:   strconv.FormatInt(ts, 10),
	}, cfg.APISecret)

	url := c.baseURL(cfg.TestMode) + verifyPath
	log := logger.FromCtx(ctx).With(
		zap.String("transaction_id", transactionID),
		zap.Bool("test_mode", cfg.TestMode),
	)

	log.Info("verifying payment with gateway")

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(body).
		Post(url)
	if err != nil {
		log.Error("gateway verify request failed", zap.Error(err))
		return nil, &NetworkError{Err: err}
	}

	raw := resp.Body()

	if resp.StatusCode() != http.StatusOK {
		var eb errorBody
		if err := json.Unmarshal(raw, &eb); err != nil {
			log.Error("gateway returned unreadable error body",
				zap.Int("http_status", resp.StatusCode()),
				zap.ByteString("response", raw),
			)
			return nil, &ProtocolError{StatusCode: resp.StatusCode(), Err: err}
		}
		log.Error("gateway returned non-success status",
			zap.Int("http_status", resp.StatusCode()),
			zap.ByteString("response", raw),
		)
		return nil, &GatewayError{
			StatusCode: resp.StatusCode(),
			Code:       eb.Code,
			Message:    eb.Message,
			Body:       raw,
		}
	}

	var out GatewayResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Error("failed decoding gateway response", zap.Error(err))
		return nil, &ProtocolError{StatusCode: resp.StatusCode(), Err: err}
	}
	if strings.TrimSpace(out.Status) == "" {
		log.Error("gateway response has no status", zap.ByteString("response", raw))
		return nil, &ProtocolError{StatusCode: resp.StatusCode(), Err: errMissingStatus}
	}
	out.StatusCode = resp.StatusCode()
	out.Raw = json.RawMessage(raw)

	log.Info("gateway verification completed", zap.String("status", out.Status))

	return &out, nil
}
