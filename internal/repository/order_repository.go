package repository

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"orders-client/internal/models"
	"orders-client/internal/normalizer"
)

// LoadStats describes what a refresh did to the collection.
type LoadStats struct {
	Loaded       int
	Dropped      int // raw orders with no resolvable identifier
	DroppedLines int // detail rows skipped inside otherwise valid orders
	Synthesized  int // orders whose date was filled in locally
}

// ListFilter narrows List results. Zero value matches everything.
type ListFilter struct {
	Text   string // case-insensitive match against the attention number
	Status *models.OrderStatus
}

// OrderRepository holds the normalized orders for one session-scoped view.
// A fetch fully replaces the collection: the backend is the source of truth
// and a refresh always wins over any local optimistic edit. Mutation happens
// from the caller's goroutine and the refresh poller, so access is
// mutex-guarded; overlapping refreshes are last-write-wins by design.
type OrderRepository struct {
	mu          sync.RWMutex
	orders      []*models.Order
	byID        map[string]int
	refreshedAt time.Time
	logger      *logrus.Entry
}

func NewOrderRepository(logger *logrus.Logger) *OrderRepository {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OrderRepository{
		byID:   make(map[string]int),
		logger: logger.WithField("component", "order_repository"),
	}
}

// Load normalizes rawList and replaces the stored collection, preserving
// arrival order. Records with no resolvable identifier are dropped with a
// warning rather than fabricated.
func (r *OrderRepository) Load(rawList []map[string]any) LoadStats {
	var stats LoadStats
	orders := make([]*models.Order, 0, len(rawList))
	byID := make(map[string]int, len(rawList))

	for _, raw := range rawList {
		order, droppedLines, err := normalizer.NormalizeOrder(raw)
		if err != nil {
			stats.Dropped++
			r.logger.WithError(err).Warn("dropping unidentifiable order record")
			continue
		}
		stats.DroppedLines += droppedLines
		if order.DateSynthesized {
			stats.Synthesized++
		}
		byID[order.ID] = len(orders)
		orders = append(orders, order)
	}
	stats.Loaded = len(orders)

	r.mu.Lock()
	r.orders = orders
	r.byID = byID
	r.refreshedAt = time.Now()
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"loaded":  stats.Loaded,
		"dropped": stats.Dropped,
	}).Debug("order collection replaced")
	return stats
}

// Reconcile replaces a single order in place by id after a confirmed return.
// No-op when the order is not in the collection anymore (a refresh may have
// landed in between).
func (r *OrderRepository) Reconcile(orderID string, updated *models.Order) {
	if updated == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byID[orderID]
	if !ok {
		r.logger.WithField("order_id", orderID).Debug("reconcile skipped, order not in collection")
		return
	}
	r.orders[idx] = updated.Clone()
}

// Get returns a copy of the order with the given id.
func (r *OrderRepository) Get(orderID string) (*models.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[orderID]
	if !ok {
		return nil, false
	}
	return r.orders[idx].Clone(), true
}

// List returns copies of the orders matching the filter, in arrival order.
func (r *OrderRepository) List(filter ListFilter) []*models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	text := strings.ToLower(strings.TrimSpace(filter.Text))
	result := make([]*models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(order.AttentionNumber), text) {
			continue
		}
		result = append(result, order.Clone())
	}
	return result
}

func (r *OrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// RefreshedAt is the time of the last Load, zero before the first one.
func (r *OrderRepository) RefreshedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshedAt
}

// Stale reports whether the collection is older than maxAge. A repository
// that was never loaded is always stale.
func (r *OrderRepository) Stale(maxAge time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.refreshedAt.IsZero() {
		return true
	}
	return time.Since(r.refreshedAt) > maxAge
}
