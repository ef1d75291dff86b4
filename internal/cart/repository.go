package cart

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository interface {
	// ClearCart removes every cart line of the user together with the stock
	// reservations held for their checkout, and returns how many lines were
	// removed. Either both go or neither does.
	ClearCart(ctx context.Context, userID uint) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ClearCart(ctx context.Context, userID uint) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM carts
	 WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart for user %d: %w", userID, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_reservations
	 WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("release reservations for user %d: %w", userID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}
