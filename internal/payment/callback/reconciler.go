// Package callback turns inbound gateway callbacks into order outcomes.
package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"absapay-be/internal/lock"
	"absapay-be/internal/logger"
	"absapay-be/internal/metrics"
	"absapay-be/internal/order"
	"absapay-be/internal/payment"
	"absapay-be/internal/signature"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State string

const (
	StateReceived         State = "RECEIVED"
	StateSignatureChecked State = "SIGNATURE_CHECKED"
	StateApplied          State = "APPLIED"
	StateRejected         State = "REJECTED"
	StateAlreadyTerminal  State = "ALREADY_TERMINAL"
)

// Customer-facing notice codes. They never carry signature details.
const (
	NoticePaymentFailed      = "payment_failed"
	NoticeVerificationFailed = "verification_failed"
)

const (
	NotePaid              = "Absa Pay payment completed successfully."
	NoteSignatureMismatch = "Absa Pay payment verification failed: invalid signature."
	noteUnknownStatus     = "unknown"
)

// Decision is what the caller acts on: where to send the customer and what
// happened to the order.
type Decision struct {
	State       State
	OrderID     uint
	OrderStatus order.OrderStatus
	// Paid is true when the order is paid after this callback.
	Paid        bool
	RedirectURL string
	Notice      string
}

// OrderStore is the order collaborator. MarkAsPaid and MarkAsFailed only move
// open orders and report whether they did.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID uint) (*order.Order, error)
	MarkAsPaid(ctx context.Context, orderID uint, transactionID, note string) (bool, error)
	MarkAsFailed(ctx context.Context, orderID uint, note string) (bool, error)
}

type CartClearer interface {
	ClearCart(ctx context.Context, userID uint) error
}

// MerchantStore supplies the merchant configuration and redirect targets.
type MerchantStore interface {
	MerchantConfig(ctx context.Context) (payment.MerchantConfig, error)
	ReturnURL(ctx context.Context, o *order.Order) string
	CheckoutURL() string
}

type Reconciler struct {
	orders   OrderStore
	carts    CartClearer
	merchant MerchantStore
	locker   lock.Locker
	verifier payment.Verifier
	journal  payment.Repository
	metrics  *metrics.Callbacks
}

type Option func(*Reconciler)

// WithVerifier re-checks successful callbacks that carry a transaction id
// against the gateway before the order is marked paid.
func WithVerifier(v payment.Verifier) Option {
	return func(r *Reconciler) { r.verifier = v }
}

// WithJournal records every callback in the payment callback journal.
func WithJournal(repo payment.Repository) Option {
	return func(r *Reconciler) { r.journal = repo }
}

func WithMetrics(m *metrics.Callbacks) Option {
	return func(r *Reconciler) { r.metrics = m }
}

func NewReconciler(orders OrderStore, carts CartClearer, merchant MerchantStore, locker lock.Locker, opts ...Option) *Reconciler {
	r := &Reconciler{
		orders:   orders,
		carts:    carts,
		merchant: merchant,
		locker:   locker,
		metrics:  &metrics.Callbacks{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) Metrics() *metrics.Callbacks {
	return r.metrics
}

// Reconcile applies one callback. A non-nil Decision means the customer must
// be redirected; it comes with ErrSignatureMismatch or order.ErrOrderNotFound
// when the callback was rejected. A nil Decision means nothing was decided
// (infrastructure or verification failure) and the callback may be retried.
func (r *Reconciler) Reconcile(ctx context.Context, p Payload) (*Decision, error) {
	r.metrics.Received.Inc()
	defer r.metrics.Reconcile.Since(time.Now())

	ctx = logger.WithFields(ctx, zap.String("order_ref", p.OrderRef))
	log := logger.FromCtx(ctx)

	log.Info("payment callback received",
		logger.Params("payload", p.LogFields()),
		zap.Strings("unknown_fields", p.Unknown),
	)

	cfg, err := r.merchant.MerchantConfig(ctx)
	if err != nil {
		log.Error("merchant configuration unavailable", zap.Error(err))
		return nil, fmt.Errorf("load merchant config: %w", err)
	}

	valid := signature.Verify(p.Signature, p.Fields, cfg.APISecret)
	callbackID := r.record(ctx, p, valid)

	d, err := r.reconcile(ctx, p, cfg, valid)
	r.finish(ctx, callbackID, d, err)
	return d, err
}

func (r *Reconciler) reconcile(ctx context.Context, p Payload, cfg payment.MerchantConfig, valid bool) (*Decision, error) {
	log := logger.FromCtx(ctx)

	if p.OrderID == 0 {
		return r.reject(ctx, p, nil, fmt.Errorf("order %q: %w", p.OrderRef, order.ErrOrderNotFound))
	}

	o, err := r.orders.GetOrder(ctx, p.OrderID)
	if errors.Is(err, order.ErrOrderNotFound) {
		return r.reject(ctx, p, nil, fmt.Errorf("order %d: %w", p.OrderID, err))
	}
	if err != nil {
		log.Error("failed to load order", zap.Uint("order_id", p.OrderID), zap.Error(err))
		return nil, err
	}

	if !valid {
		return r.rejectForgery(ctx, p, o)
	}
	log.Debug("callback signature verified", zap.String("state", string(StateSignatureChecked)))

	if !o.Status.IsOpen() {
		return r.alreadyTerminal(ctx, o), nil
	}

	paid := p.Succeeded()
	note := failureNote(p.Status)

	// Verification runs before the lock so no lock is held across the network call.
	if paid && r.verifier != nil && p.TransactionID != "" {
		resp, err := r.verifier.VerifyPayment(ctx, p.TransactionID, cfg)
		if err != nil {
			r.metrics.VerifyFailures.Inc()
			log.Warn("payment verification failed",
				zap.String("transaction_id", p.TransactionID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("verify transaction %s: %w", p.TransactionID, err)
		}
		if !resp.Succeeded() {
			paid = false
			note = failureNote(resp.Status)
			log.Warn("gateway did not confirm payment",
				zap.String("transaction_id", p.TransactionID),
				zap.String("verified_status", resp.Status),
			)
		}
	}

	unlock, err := r.locker.Lock(ctx, lockKey(o.ID))
	if err != nil {
		log.Error("failed to lock order", zap.Uint("order_id", o.ID), zap.Error(err))
		return nil, err
	}
	defer unlock()

	var applied bool
	if paid {
		applied, err = r.orders.MarkAsPaid(ctx, o.ID, p.TransactionID, paidNote(p.TransactionID))
	} else {
		applied, err = r.orders.MarkAsFailed(ctx, o.ID, note)
	}
	if err != nil {
		log.Error("failed to apply payment outcome", zap.Uint("order_id", o.ID), zap.Error(err))
		return nil, err
	}

	if !applied {
		// Another callback moved the order first.
		current, err := r.orders.GetOrder(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		return r.alreadyTerminal(ctx, current), nil
	}

	r.metrics.Applied.Inc()
	d := &Decision{State: StateApplied, OrderID: o.ID, Paid: paid}

	if paid {
		o.Status = order.StatusPaid
		o.TransactionID = p.TransactionID
		r.clearCart(ctx, o)
		d.RedirectURL = r.merchant.ReturnURL(ctx, o)
	} else {
		o.Status = order.StatusFailed
		d.RedirectURL = r.merchant.CheckoutURL()
		d.Notice = NoticePaymentFailed
	}
	d.OrderStatus = o.Status

	log.Info("payment outcome applied",
		zap.Uint("order_id", o.ID),
		zap.String("status", string(o.Status)),
		zap.String("transaction_id", p.TransactionID),
	)
	return d, nil
}

// rejectForgery fails an open order whose callback could not be verified.
// Failing the order is the only side effect.
func (r *Reconciler) rejectForgery(ctx context.Context, p Payload, o *order.Order) (*Decision, error) {
	log := logger.FromCtx(ctx)

	if o.Status.IsOpen() {
		unlock, err := r.locker.Lock(ctx, lockKey(o.ID))
		if err != nil {
			log.Error("failed to lock order", zap.Uint("order_id", o.ID), zap.Error(err))
			return nil, err
		}
		applied, err := r.orders.MarkAsFailed(ctx, o.ID, NoteSignatureMismatch)
		unlock()
		if err != nil {
			log.Error("failed to fail order after signature mismatch", zap.Uint("order_id", o.ID), zap.Error(err))
			return nil, err
		}
		if applied {
			o.Status = order.StatusFailed
		}
	}

	d, err := r.reject(ctx, p, o, ErrSignatureMismatch)
	d.Notice = NoticeVerificationFailed
	return d, err
}

func (r *Reconciler) reject(ctx context.Context, p Payload, o *order.Order, cause error) (*Decision, error) {
	r.metrics.Rejected.Inc()

	d := &Decision{
		State:       StateRejected,
		OrderID:     p.OrderID,
		RedirectURL: r.merchant.CheckoutURL(),
		Notice:      NoticePaymentFailed,
	}
	if o != nil {
		d.OrderStatus = o.Status
	}

	logger.FromCtx(ctx).Warn("payment callback rejected",
		zap.Error(cause),
		logger.Params("payload", p.LogFields()),
	)
	return d, cause
}

func (r *Reconciler) alreadyTerminal(ctx context.Context, o *order.Order) *Decision {
	r.metrics.AlreadyTerminal.Inc()

	d := &Decision{
		State:       StateAlreadyTerminal,
		OrderID:     o.ID,
		OrderStatus: o.Status,
		Paid:        o.Status == order.StatusPaid,
	}
	if d.Paid {
		d.RedirectURL = r.merchant.ReturnURL(ctx, o)
	} else {
		d.RedirectURL = r.merchant.CheckoutURL()
	}

	logger.FromCtx(ctx).Info("order already closed, acknowledging callback",
		zap.Uint("order_id", o.ID),
		zap.String("status", string(o.Status)),
	)
	return d
}

func (r *Reconciler) clearCart(ctx context.Context, o *order.Order) {
	if r.carts == nil || o.UserID == nil {
		return
	}
	if err := r.carts.ClearCart(ctx, *o.UserID); err != nil {
		// The order is already paid; a stale cart must not undo that.
		logger.FromCtx(ctx).Error("failed to clear cart after payment",
			zap.Uint("order_id", o.ID),
			zap.Uint("user_id", *o.UserID),
			zap.Error(err),
		)
	}
}

// record journals the callback. Journal failures are logged, never fatal.
func (r *Reconciler) record(ctx context.Context, p Payload, valid bool) int64 {
	if r.journal == nil {
		return 0
	}

	raw, err := json.Marshal(p.Fields)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to encode callback payload", zap.Error(err))
		return 0
	}

	id, dup, err := r.journal.SaveCallback(ctx, payment.CallbackRecord{
		EventID:        eventID(p, valid),
		OrderRef:       p.OrderRef,
		Status:         p.Status,
		Payload:        raw,
		SignatureValid: valid,
	})
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to journal payment callback", zap.Error(err))
		return 0
	}
	if dup {
		logger.FromCtx(ctx).Info("duplicate payment callback", zap.String("transaction_id", p.TransactionID))
	}
	return id
}

func (r *Reconciler) finish(ctx context.Context, callbackID int64, d *Decision, cause error) {
	if r.journal == nil || callbackID == 0 {
		return
	}

	var err error
	if d != nil && d.State != StateRejected {
		err = r.journal.MarkCallbackProcessed(ctx, callbackID, string(d.State))
	} else {
		reason := string(StateRejected)
		if cause != nil {
			reason = cause.Error()
		}
		err = r.journal.MarkCallbackFailed(ctx, callbackID, reason)
	}
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to update payment callback journal",
			zap.Int64("callback_id", callbackID),
			zap.Error(err),
		)
	}
}

// eventID identifies gateway redeliveries of the same outcome. Only signed
// callbacks share ids, so a forgery cannot take the slot of the genuine
// delivery. Callbacks without a transaction id are always new events.
func eventID(p Payload, valid bool) string {
	if !valid || p.TransactionID == "" {
		return uuid.NewString()
	}
	return p.TransactionID + ":" + p.Status
}

func lockKey(orderID uint) string {
	return fmt.Sprintf("order:%d", orderID)
}

func paidNote(transactionID string) string {
	if transactionID == "" {
		return NotePaid
	}
	return fmt.Sprintf("%s Transaction ID: %s", NotePaid, transactionID)
}

func failureNote(status string) string {
	if status == "" {
		return noteUnknownStatus
	}
	return status
}
