package payment

import (
	"context"
	"database/sql"
	"errors"
)

// Repository keeps the forensic journal of inbound callbacks.
type Repository interface {
	SaveCallback(ctx context.Context, rec CallbackRecord) (callbackID int64, isDuplicate bool, err error)
	MarkCallbackProcessed(ctx context.Context, callbackID int64, outcome string) error
	MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SaveCallback(ctx context.Context, rec CallbackRecord) (int64, bool, error) {
	const q = `
	INSERT INTO payment_callbacks (
		provider,
		event_id,
		order_ref,
		status,
		signature_valid,
		payload
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (provider, event_id)
	DO NOTHING
	RETURNING id;
	`

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		q,
		Provider,
		rec.EventID,
		rec.OrderRef,
		rec.Status,
		rec.SignatureValid,
		[]byte(rec.Payload),
	).Scan(&id)

	if err != nil {
		// Already journaled: same provider and event id.
		if errors.Is(err, sql.ErrNoRows) {
			return 0, true, nil
		}
		return 0, false, err
	}

	return id, false, nil
}

func (r *repository) MarkCallbackProcessed(ctx context.Context, callbackID int64, outcome string) error {
	const q = `
	UPDATE payment_callbacks
	SET processed_at = now(), outcome = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, callbackID, outcome)
	return err
}

func (r *repository) MarkCallbackFailed(ctx context.Context, callbackID int64, reason string) error {
	const q = `
	UPDATE payment_callbacks
	SET processed_at = now(), process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, callbackID, reason)
	return err
}
