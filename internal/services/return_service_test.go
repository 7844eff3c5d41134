package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"orders-client/internal/clients"
	"orders-client/internal/lifecycle"
	"orders-client/internal/models"
	"orders-client/internal/monitoring"
	"orders-client/internal/repository"
)

type MockOrdersAPI struct {
	mock.Mock
}

func (m *MockOrdersAPI) FetchOrders(ctx context.Context) ([]map[string]any, *clients.FetchMeta, error) {
	args := m.Called(ctx)
	var list []map[string]any
	if args.Get(0) != nil {
		list = args.Get(0).([]map[string]any)
	}
	var meta *clients.FetchMeta
	if args.Get(1) != nil {
		meta = args.Get(1).(*clients.FetchMeta)
	}
	return list, meta, args.Error(2)
}

func (m *MockOrdersAPI) SubmitReturn(ctx context.Context, orderID string, request *models.ReturnRequest) (*models.ReturnConfirmation, error) {
	args := m.Called(ctx, orderID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReturnConfirmation), args.Error(1)
}

func newTestService(api *MockOrdersAPI) (*ReturnService, *repository.OrderRepository) {
	repo := repository.NewOrderRepository(nil)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	return NewReturnService(api, repo, metrics, nil), repo
}

func rawDeliveredOrder() map[string]any {
	return map[string]any{
		"id":             "42",
		"numeroAtencion": "A-042",
		"estado":         "entregado",
		"fechaPedido":    "2025-03-10T14:30:00Z",
		"total":          float64(8000),
		"detalles": []any{
			map[string]any{"id": "1", "cantidad": float64(2), "precioUnitario": float64(4000)},
		},
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("loads fetched orders", func(t *testing.T) {
		api := new(MockOrdersAPI)
		service, repo := newTestService(api)
		api.On("FetchOrders", ctx).Return([]map[string]any{rawDeliveredOrder()}, &clients.FetchMeta{Count: 1}, nil)

		meta, err := service.Refresh(ctx)
		require.NoError(t, err)
		assert.False(t, meta.Unavailable)
		assert.Equal(t, 1, repo.Len())
		api.AssertExpectations(t)
	})

	t.Run("unavailable backend empties the collection without error", func(t *testing.T) {
		api := new(MockOrdersAPI)
		service, repo := newTestService(api)
		repo.Load([]map[string]any{rawDeliveredOrder()})
		api.On("FetchOrders", ctx).Return([]map[string]any{}, &clients.FetchMeta{Unavailable: true}, nil)

		meta, err := service.Refresh(ctx)
		require.NoError(t, err)
		assert.True(t, meta.Unavailable)
		assert.Zero(t, repo.Len())
	})

	t.Run("real errors propagate", func(t *testing.T) {
		api := new(MockOrdersAPI)
		service, repo := newTestService(api)
		repo.Load([]map[string]any{rawDeliveredOrder()})
		api.On("FetchOrders", ctx).Return(nil, nil, errors.New("boom"))

		_, err := service.Refresh(ctx)
		require.Error(t, err)
		assert.Equal(t, 1, repo.Len(), "a failed refresh leaves the collection alone")
	})
}

func TestPreviewRefund(t *testing.T) {
	api := new(MockOrdersAPI)
	service, repo := newTestService(api)
	repo.Load([]map[string]any{rawDeliveredOrder()})

	preview, err := service.PreviewRefund("42", &models.ReturnRequest{
		CancellationType: models.CancellationPartial,
		LinesToCancel:    []models.LineSelection{{LineID: "1", QuantityToCancel: 1}},
	})
	require.NoError(t, err)
	assert.True(t, preview.Amount.Equal(decimal.NewFromInt(4000)))
	assert.Equal(t, lifecycle.ActionReturn, preview.Action.Action)
	assert.True(t, preview.Action.RequiresStoreVisit, "delivered orders must come back to the store")
}

func TestPreviewRefund_UnknownOrder(t *testing.T) {
	api := new(MockOrdersAPI)
	service, _ := newTestService(api)

	_, err := service.PreviewRefund("missing", &models.ReturnRequest{CancellationType: models.CancellationComplete})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSubmit_ConfirmThenApply(t *testing.T) {
	ctx := context.Background()
	api := new(MockOrdersAPI)
	service, repo := newTestService(api)
	repo.Load([]map[string]any{rawDeliveredOrder()})

	request := &models.ReturnRequest{
		CancellationType: models.CancellationPartial,
		LinesToCancel:    []models.LineSelection{{LineID: "1", QuantityToCancel: 1}},
	}
	api.On("SubmitReturn", ctx, "42", request).Return(&models.ReturnConfirmation{
		OrderID:         "42",
		CreditNoteCode:  "NC-1",
		ConfirmedAmount: decimal.NewFromInt(4000),
	}, nil)

	confirmation, err := service.Submit(ctx, "42", request)
	require.NoError(t, err)
	assert.Equal(t, "NC-1", confirmation.CreditNoteCode)

	order, found := repo.Get("42")
	require.True(t, found)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 1, order.Lines[0].Quantity)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(4000)))
}

func TestSubmit_NoLocalChangeOnRejection(t *testing.T) {
	ctx := context.Background()
	api := new(MockOrdersAPI)
	service, repo := newTestService(api)
	repo.Load([]map[string]any{rawDeliveredOrder()})

	request := &models.ReturnRequest{CancellationType: models.CancellationComplete}
	api.On("SubmitReturn", ctx, "42", request).Return(nil, &clients.APIError{
		StatusCode: 409, Message: "el pedido ya fue retirado",
	})

	_, err := service.Submit(ctx, "42", request)
	require.Error(t, err)
	var apiErr *clients.APIError
	assert.ErrorAs(t, err, &apiErr)

	order, found := repo.Get("42")
	require.True(t, found)
	assert.Equal(t, models.OrderStatusDelivered, order.Status, "local state stays untouched until a success response")
	assert.True(t, order.Total.Equal(decimal.NewFromInt(8000)))
}

func TestSubmit_ValidationFailureNeverCallsBackend(t *testing.T) {
	ctx := context.Background()
	api := new(MockOrdersAPI)
	service, repo := newTestService(api)
	repo.Load([]map[string]any{rawDeliveredOrder()})

	// Scenario: PARTIAL with an empty selection is rejected before any
	// network call is attempted.
	_, err := service.Submit(ctx, "42", &models.ReturnRequest{CancellationType: models.CancellationPartial})
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrEmptySelection)
	api.AssertNotCalled(t, "SubmitReturn", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_DuplicateGuard(t *testing.T) {
	ctx := context.Background()
	api := new(MockOrdersAPI)
	service, repo := newTestService(api)
	repo.Load([]map[string]any{rawDeliveredOrder()})

	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})
	request := &models.ReturnRequest{CancellationType: models.CancellationComplete}
	api.On("SubmitReturn", ctx, "42", request).Run(func(args mock.Arguments) {
		close(firstEntered)
		<-releaseFirst
	}).Return(&models.ReturnConfirmation{OrderID: "42", ConfirmedAmount: decimal.NewFromInt(8000)}, nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := service.Submit(ctx, "42", request)
		assert.NoError(t, err)
	}()

	<-firstEntered
	_, err := service.Submit(ctx, "42", request)
	assert.ErrorIs(t, err, ErrSubmitInFlight, "the action stays disabled while a submit is in flight")

	close(releaseFirst)
	wg.Wait()
}
