package settings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"absapay-be/internal/logger"
	"absapay-be/internal/order"
	"absapay-be/internal/payment"

	"go.uber.org/zap"
)

const (
	PagePlaceholder = "Select Page"
	pageIndent      = " - "

	checkoutPath      = "/checkout"
	orderReceivedPath = "/checkout/order-received/"
	receiptPath       = "/checkout/pay/"
	cartPath          = "/cart"
	callbackPath      = "/payment/callback"
)

// Defaults seeds the gateway settings when none have been saved yet.
type Defaults struct {
	StoreURL   string
	MerchantID string
	APIKey     string
	APISecret  string
	TestMode   bool
}

type Service interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, in UpdateInput) (*Settings, error)
	Available(ctx context.Context, currency string) bool
	MerchantConfig(ctx context.Context) (payment.MerchantConfig, error)
	MerchantConfigFor(ctx context.Context, o *order.Order) (payment.MerchantConfig, error)
	PageOptions(ctx context.Context) ([]PageOption, error)
	ReturnURL(ctx context.Context, o *order.Order) string
	CheckoutURL() string
	ReceiptURL(o *order.Order) string
	CancelURL(o *order.Order) string
	CallbackURL() string
}

type service struct {
	repo     Repository
	defaults Defaults
}

func NewService(repo Repository, defaults Defaults) Service {
	defaults.StoreURL = strings.TrimRight(defaults.StoreURL, "/")
	return &service{repo: repo, defaults: defaults}
}

func (s *service) Get(ctx context.Context) (*Settings, error) {
	st, err := s.repo.GetSettings(ctx)
	if errors.Is(err, ErrSettingsNotFound) {
		return s.fromDefaults(), nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *service) fromDefaults() *Settings {
	return &Settings{
		Enabled:     true,
		Title:       DefaultTitle,
		Description: DefaultDescription,
		TestMode:    s.defaults.TestMode,
		MerchantID:  s.defaults.MerchantID,
		APIKey:      s.defaults.APIKey,
		APISecret:   s.defaults.APISecret,
	}
}

func (s *service) Update(ctx context.Context, in UpdateInput) (*Settings, error) {
	if !in.HasAnyField() {
		return nil, ErrEmptyUpdate
	}

	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if in.Enabled != nil {
		st.Enabled = *in.Enabled
	}
	if in.Title != nil {
		st.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		st.Description = strings.TrimSpace(*in.Description)
	}
	if in.TestMode != nil {
		st.TestMode = *in.TestMode
	}
	if in.MerchantID != nil {
		st.MerchantID = strings.TrimSpace(*in.MerchantID)
	}
	if in.APIKey != nil {
		st.APIKey = strings.TrimSpace(*in.APIKey)
	}
	// The masked placeholder echoed back by the admin form keeps the stored secret.
	if in.APISecret != nil && *in.APISecret != SecretMask {
		st.APISecret = strings.TrimSpace(*in.APISecret)
	}
	if in.ReturnPageID != nil {
		if *in.ReturnPageID == 0 {
			st.ReturnPageID = nil
		} else {
			if _, err := s.repo.GetPage(ctx, *in.ReturnPageID); err != nil {
				return nil, err
			}
			id := *in.ReturnPageID
			st.ReturnPageID = &id
		}
	}

	if st.Title == "" {
		st.Title = DefaultTitle
	}
	if st.Enabled {
		if err := s.credentials(st).Validate(); err != nil {
			return nil, err
		}
	}

	if err := s.repo.SaveSettings(ctx, st); err != nil {
		logger.FromCtx(ctx).Error("failed to save gateway settings", zap.Error(err))
		return nil, err
	}

	logger.FromCtx(ctx).Info("gateway settings updated",
		zap.Bool("enabled", st.Enabled),
		zap.Bool("test_mode", st.TestMode),
	)
	return st, nil
}

func (s *service) credentials(st *Settings) payment.MerchantConfig {
	return payment.MerchantConfig{
		MerchantID:  st.MerchantID,
		APIKey:      st.APIKey,
		APISecret:   st.APISecret,
		TestMode:    st.TestMode,
		ReturnURL:   s.CheckoutURL(),
		CallbackURL: s.CallbackURL(),
	}
}

// Available reports whether checkout may offer the gateway for the currency.
func (s *service) Available(ctx context.Context, currency string) bool {
	st, err := s.Get(ctx)
	if err != nil {
		logger.FromCtx(ctx).Warn("gateway settings unavailable", zap.Error(err))
		return false
	}
	return st.Enabled && payment.IsSupportedCurrency(currency)
}

// MerchantConfig returns the credentials callbacks are verified with. It
// ignores the enabled flag: orders already sent to the gateway must still
// settle after an admin switches the gateway off.
func (s *service) MerchantConfig(ctx context.Context) (payment.MerchantConfig, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return payment.MerchantConfig{}, err
	}
	return s.validCredentials(st)
}

// MerchantConfigFor is the checkout variant: the gateway must be enabled and
// the return URL is resolved for the order.
func (s *service) MerchantConfigFor(ctx context.Context, o *order.Order) (payment.MerchantConfig, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return payment.MerchantConfig{}, err
	}
	if !st.Enabled {
		return payment.MerchantConfig{}, ErrGatewayDisabled
	}

	cfg, err := s.validCredentials(st)
	if err != nil {
		return cfg, err
	}
	cfg.ReturnURL = s.ReturnURL(ctx, o)
	return cfg, nil
}

func (s *service) validCredentials(st *Settings) (payment.MerchantConfig, error) {
	cfg := s.credentials(st)
	if err := cfg.Validate(); err != nil {
		return payment.MerchantConfig{}, err
	}
	return cfg, nil
}

// PageOptions lists published pages for the return page selector. The first
// entry is the placeholder; each label is prefixed once per ancestor.
func (s *service) PageOptions(ctx context.Context) ([]PageOption, error) {
	pages, err := s.repo.ListPages(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]Page, len(pages))
	for _, p := range pages {
		byID[p.ID] = p
	}

	options := make([]PageOption, 0, len(pages)+1)
	options = append(options, PageOption{ID: 0, Label: PagePlaceholder})
	for _, p := range pages {
		options = append(options, PageOption{
			ID:    p.ID,
			Label: strings.Repeat(pageIndent, depth(p, byID)) + p.Title,
		})
	}
	return options, nil
}

func depth(p Page, byID map[uint]Page) int {
	d := 0
	for p.ParentID != nil && d < len(byID) {
		parent, ok := byID[*p.ParentID]
		if !ok {
			break
		}
		d++
		p = parent
	}
	return d
}

// ReturnURL is the configured return page with order_id and key appended,
// or the order-received page when no return page is set.
func (s *service) ReturnURL(ctx context.Context, o *order.Order) string {
	q := url.Values{}
	q.Set("key", o.OrderKey)
	fallback := fmt.Sprintf("%s%s%d?%s", s.defaults.StoreURL, orderReceivedPath, o.ID, q.Encode())

	st, err := s.Get(ctx)
	if err != nil || st.ReturnPageID == nil {
		return fallback
	}

	page, err := s.repo.GetPage(ctx, *st.ReturnPageID)
	if err != nil {
		logger.FromCtx(ctx).Warn("return page unavailable, using order received page",
			zap.Uint("page_id", *st.ReturnPageID),
			zap.Error(err),
		)
		return fallback
	}

	q.Set("order_id", fmt.Sprint(o.ID))
	return fmt.Sprintf("%s/%s?%s", s.defaults.StoreURL, strings.Trim(page.Slug, "/"), q.Encode())
}

func (s *service) CheckoutURL() string {
	return s.defaults.StoreURL + checkoutPath
}

func (s *service) ReceiptURL(o *order.Order) string {
	q := url.Values{}
	q.Set("key", o.OrderKey)
	return fmt.Sprintf("%s%s%d?%s", s.defaults.StoreURL, receiptPath, o.ID, q.Encode())
}

// CancelURL sends the customer back to the cart with the order cancelled.
func (s *service) CancelURL(o *order.Order) string {
	q := url.Values{}
	q.Set("cancel_order", "true")
	q.Set("order_id", fmt.Sprint(o.ID))
	q.Set("order", o.OrderKey)
	return fmt.Sprintf("%s%s?%s", s.defaults.StoreURL, cartPath, q.Encode())
}

func (s *service) CallbackURL() string {
	return s.defaults.StoreURL + callbackPath
}
