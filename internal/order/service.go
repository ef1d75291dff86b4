package order

import (
	"context"
	"fmt"

	"absapay-be/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	GetOrder(ctx context.Context, orderID uint) (*Order, error)
	// MarkAsPaid and MarkAsFailed report whether this call performed the
	// transition; false means the order had already left the open states.
	MarkAsPaid(ctx context.Context, orderID uint, transactionID, note string) (bool, error)
	MarkAsFailed(ctx context.Context, orderID uint, note string) (bool, error)
	Notes(ctx context.Context, orderID uint) ([]OrderNote, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetOrder(ctx context.Context, orderID uint) (*Order, error) {
	if orderID == 0 {
		return nil, ErrOrderNotFound
	}
	return s.repo.GetByID(ctx, orderID)
}

func (s *service) MarkAsPaid(ctx context.Context, orderID uint, transactionID, note string) (bool, error) {
	return s.transition(ctx, orderID, StatusPaid, transactionID, note)
}

func (s *service) MarkAsFailed(ctx context.Context, orderID uint, note string) (bool, error) {
	return s.transition(ctx, orderID, StatusFailed, "", note)
}

func (s *service) transition(ctx context.Context, orderID uint, status OrderStatus, transactionID, note string) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.Uint("order_id", orderID),
		zap.String("to_status", string(status)),
	)

	if !status.IsTerminal() {
		return false, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	applied, err := s.repo.Transition(ctx, orderID, status, transactionID, note)
	if err != nil {
		log.Error("failed to transition order", zap.Error(err))
		return false, err
	}

	if !applied {
		log.Info("order already closed, transition skipped")
		return false, nil
	}

	log.Info("order transitioned", zap.String("note", note))
	return true, nil
}

func (s *service) Notes(ctx context.Context, orderID uint) ([]OrderNote, error) {
	return s.repo.ListNotes(ctx, orderID)
}
