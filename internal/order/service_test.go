package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, orderID uint) (*Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Order), args.Error(1)
}

func (m *MockRepository) Transition(ctx context.Context, orderID uint, status OrderStatus, transactionID, note string) (bool, error) {
	args := m.Called(ctx, orderID, status, transactionID, note)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListNotes(ctx context.Context, orderID uint) ([]OrderNote, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]OrderNote), args.Error(1)
}

func TestOrderStatus(t *testing.T) {
	tests := []struct {
		status   OrderStatus
		open     bool
		terminal bool
	}{
		{StatusPending, true, false},
		{StatusProcessing, true, false},
		{StatusPaid, false, true},
		{StatusFailed, false, true},
		{StatusCancelled, false, false},
		{StatusRefunded, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.open, tt.status.IsOpen())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestService_GetOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		repo.On("GetByID", ctx, uint(42)).Return(&Order{ID: 42, Status: StatusPending}, nil)

		o, err := svc.GetOrder(ctx, 42)
		assert.NoError(t, err)
		assert.Equal(t, uint(42), o.ID)
	})

	t.Run("Zero id never hits the repository", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)

		_, err := svc.GetOrder(ctx, 0)
		assert.ErrorIs(t, err, ErrOrderNotFound)
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestService_MarkAsPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("Applied", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		repo.On("Transition", ctx, uint(42), StatusPaid, "tx-9", "paid").Return(true, nil)

		applied, err := svc.MarkAsPaid(ctx, 42, "tx-9", "paid")
		assert.NoError(t, err)
		assert.True(t, applied)
		repo.AssertExpectations(t)
	})

	t.Run("Already closed", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		repo.On("Transition", ctx, uint(42), StatusPaid, "tx-9", "paid").Return(false, nil)

		applied, err := svc.MarkAsPaid(ctx, 42, "tx-9", "paid")
		assert.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("Repository error", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo)
		repo.On("Transition", ctx, uint(42), StatusPaid, "tx-9", "paid").Return(false, errors.New("db error"))

		applied, err := svc.MarkAsPaid(ctx, 42, "tx-9", "paid")
		assert.Error(t, err)
		assert.False(t, applied)
	})
}

func TestService_MarkAsFailed(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo)
	repo.On("Transition", ctx, uint(42), StatusFailed, "", "declined").Return(true, nil)

	applied, err := svc.MarkAsFailed(ctx, 42, "declined")
	assert.NoError(t, err)
	assert.True(t, applied)
	repo.AssertExpectations(t)
}

func TestService_Notes(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo)
	repo.On("ListNotes", ctx, uint(42)).Return([]OrderNote{{ID: 1, OrderID: 42, Note: "paid"}}, nil)

	notes, err := svc.Notes(ctx, 42)
	assert.NoError(t, err)
	assert.Len(t, notes, 1)
}
