package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type Repository interface {
	GetByID(ctx context.Context, orderID uint) (*Order, error)
	// Transition moves an open order to status and records note in the same
	// transaction. It reports false when the order was no longer open.
	Transition(ctx context.Context, orderID uint, status OrderStatus, transactionID, note string) (bool, error)
	ListNotes(ctx context.Context, orderID uint) ([]OrderNote, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, orderID uint) (*Order, error) {
	query := `
		SELECT id, user_id, order_key, total, currency, status,
			billing_first_name, billing_last_name, billing_email, billing_phone,
			transaction_id, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var (
		o      Order
		userID sql.NullInt64
		txID   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&o.ID, &userID, &o.OrderKey, &o.Total, &o.Currency, &o.Status,
		&o.BillingFirstName, &o.BillingLastName, &o.BillingEmail, &o.BillingPhone,
		&txID, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if userID.Valid {
		uid := uint(userID.Int64)
		o.UserID = &uid
	}
	o.TransactionID = txID.String

	return &o, nil
}

func (r *repository) Transition(
	ctx context.Context,
	orderID uint,
	status OrderStatus,
	transactionID string,
	note string,
) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	open := make([]string, 0, len(openStatuses))
	for _, s := range openStatuses {
		open = append(open, string(s))
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
			transaction_id = COALESCE(NULLIF($2, ''), transaction_id),
			updated_at = now()
		WHERE id = $3 AND status = ANY($4)
	`, string(status), transactionID, orderID, pq.Array(open))
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO order_notes (order_id, note)
		VALUES ($1, $2)
	`, orderID, note)
	if err != nil {
		return false, fmt.Errorf("insert order note: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) ListNotes(ctx context.Context, orderID uint) ([]OrderNote, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, note, created_at
		FROM order_notes
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []OrderNote
	for rows.Next() {
		var n OrderNote
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Note, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
