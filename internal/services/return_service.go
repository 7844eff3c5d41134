package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"orders-client/internal/clients"
	"orders-client/internal/lifecycle"
	"orders-client/internal/models"
	"orders-client/internal/monitoring"
	"orders-client/internal/repository"
)

var (
	ErrOrderNotFound  = errors.New("order not found in current collection")
	ErrSubmitInFlight = errors.New("a return for this order is already being submitted")
)

// OrdersAPI is the backend surface the service needs.
type OrdersAPI interface {
	FetchOrders(ctx context.Context) ([]map[string]any, *clients.FetchMeta, error)
	SubmitReturn(ctx context.Context, orderID string, request *models.ReturnRequest) (*models.ReturnConfirmation, error)
}

// RefundPreview is what the confirm screen shows before submission.
type RefundPreview struct {
	Order  *models.Order              `json:"order"`
	Action lifecycle.ActionDescriptor `json:"action"`
	Amount decimal.Decimal            `json:"amount"`
}

// ReturnService orchestrates the confirm-then-apply return flow: validate
// locally, submit, and only after the backend confirms, reconcile the local
// collection. Local state is never touched before a success response, so
// there is nothing to roll back on failure.
type ReturnService struct {
	api     OrdersAPI
	repo    *repository.OrderRepository
	metrics *monitoring.Metrics
	logger  *logrus.Entry

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewReturnService(api OrdersAPI, repo *repository.OrderRepository, metrics *monitoring.Metrics, logger *logrus.Logger) *ReturnService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReturnService{
		api:      api,
		repo:     repo,
		metrics:  metrics,
		logger:   logger.WithField("component", "return_service"),
		inFlight: make(map[string]struct{}),
	}
}

// Refresh re-fetches the order list and replaces the collection. An
// unavailable backend is not an error: the collection becomes empty and the
// screen shows the unavailable state. Overlapping refreshes are
// last-write-wins, matching the screen-driven polling model.
func (s *ReturnService) Refresh(ctx context.Context) (*clients.FetchMeta, error) {
	s.metrics.RefreshTotal.Inc()

	rawList, meta, err := s.api.FetchOrders(ctx)
	if err != nil {
		s.metrics.RefreshFailures.Inc()
		return nil, fmt.Errorf("refresh failed: %w", err)
	}
	if meta != nil && meta.Unavailable {
		s.metrics.BackendUnavailable.Inc()
	}

	stats := s.repo.Load(rawList)
	s.metrics.OrdersLoaded.Set(float64(stats.Loaded))
	s.metrics.OrdersDropped.Add(float64(stats.Dropped))
	s.metrics.LinesDropped.Add(float64(stats.DroppedLines))
	s.metrics.DatesSynthesized.Add(float64(stats.Synthesized))

	s.logger.WithFields(logrus.Fields{
		"loaded":      stats.Loaded,
		"dropped":     stats.Dropped,
		"synthesized": stats.Synthesized,
	}).Info("order collection refreshed")
	return meta, nil
}

// PreviewRefund validates the request against the current order and returns
// the locally computed amount with the action descriptor for framing the
// confirm step. Validation failures block confirmation before any network
// call.
func (s *ReturnService) PreviewRefund(orderID string, request *models.ReturnRequest) (*RefundPreview, error) {
	order, ok := s.repo.Get(orderID)
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	request.Normalize()

	amount, err := lifecycle.ComputeRefund(order, request)
	if err != nil {
		return nil, err
	}
	return &RefundPreview{
		Order:  order,
		Action: lifecycle.ResolveAction(order.Status),
		Amount: amount,
	}, nil
}

// Submit sends the return to the backend and reconciles local state on
// success. Duplicate submits for the same order are refused while one is in
// flight; in-flight submits cannot be cancelled.
func (s *ReturnService) Submit(ctx context.Context, orderID string, request *models.ReturnRequest) (*models.ReturnConfirmation, error) {
	if err := s.acquire(orderID); err != nil {
		return nil, err
	}
	defer s.release(orderID)

	order, ok := s.repo.Get(orderID)
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}
	request.Normalize()

	preview, err := lifecycle.ComputeRefund(order, request)
	if err != nil {
		return nil, err
	}

	s.metrics.SubmitsTotal.Inc()
	confirmation, err := s.api.SubmitReturn(ctx, orderID, request)
	if err != nil {
		s.metrics.SubmitRejections.Inc()
		s.logger.WithError(err).WithField("order_id", orderID).Warn("return rejected by backend")
		return nil, err
	}

	// The server's confirmed amount is authoritative over the local preview.
	if !confirmation.ConfirmedAmount.IsZero() && !confirmation.ConfirmedAmount.Equal(preview) {
		s.logger.WithFields(logrus.Fields{
			"order_id":  orderID,
			"preview":   preview.String(),
			"confirmed": confirmation.ConfirmedAmount.String(),
		}).Warn("confirmed refund differs from local preview")
	}

	updated, err := lifecycle.ApplyReturnLocally(order, request)
	if err != nil {
		// The backend accepted the request, so only the local mirror is off;
		// the next refresh restores server truth.
		s.logger.WithError(err).WithField("order_id", orderID).Error("local reconciliation failed after confirmed return")
		return confirmation, nil
	}
	s.repo.Reconcile(orderID, updated)

	s.logger.WithFields(logrus.Fields{
		"order_id":    orderID,
		"credit_note": confirmation.CreditNoteCode,
		"amount":      confirmation.ConfirmedAmount.String(),
	}).Info("return confirmed and reconciled")
	return confirmation, nil
}

func (s *ReturnService) acquire(orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[orderID]; busy {
		return fmt.Errorf("order %s: %w", orderID, ErrSubmitInFlight)
	}
	s.inFlight[orderID] = struct{}{}
	return nil
}

func (s *ReturnService) release(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, orderID)
}
