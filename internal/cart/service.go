package cart

import (
	"context"

	"absapay-be/internal/logger"

	"go.uber.org/zap"
)

// Service clears the cart and session state left over from a paid checkout.
type Service interface {
	ClearCart(ctx context.Context, userID uint) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// ClearCart empties the user's cart and releases its reservations. An already
// empty cart is not an error.
func (s *service) ClearCart(ctx context.Context, userID uint) error {
	if userID == 0 {
		return ErrNoCustomer
	}

	log := logger.FromCtx(ctx).With(zap.Uint("user_id", userID))

	removed, err := s.repo.ClearCart(ctx, userID)
	if err != nil {
		log.Error("failed to clear cart", zap.Error(err))
		return err
	}

	log.Info("cart cleared", zap.Int64("removed_items", removed))
	return nil
}
