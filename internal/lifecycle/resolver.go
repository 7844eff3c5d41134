// Package lifecycle is the single source of truth for which cancel/return
// action an order currently supports, how it is framed to the user, and how
// much money a given return request refunds. Everything here is a pure
// function over already-normalized orders; all I/O stays with the callers.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"orders-client/internal/models"
)

type ActionType string

const (
	ActionNone   ActionType = "none"
	ActionCancel ActionType = "cancel"
	ActionReturn ActionType = "return"
)

type RefundModel string

const (
	RefundNone           RefundModel = "none"
	RefundPreFulfillment RefundModel = "pre_fulfillment"
	RefundPrePickup      RefundModel = "pre_pickup"
	RefundPostDelivery   RefundModel = "post_delivery"
)

// ActionDescriptor is advisory metadata for rendering the action button. It
// carries no side effects and grants no permission by itself; eligibility is
// decided by IsEligible.
type ActionDescriptor struct {
	Action             ActionType  `json:"action"`
	Label              string      `json:"label"`
	RequiresStoreVisit bool        `json:"requires_store_visit"`
	RefundModel        RefundModel `json:"refund_model"`
	Severity           string      `json:"severity"` // styling hint
}

var (
	ErrOrderNotEligible        = errors.New("order is not eligible for cancellation or return")
	ErrEmptyOrder              = errors.New("order has no lines to cancel")
	ErrEmptySelection          = errors.New("partial return requires at least one line selection")
	ErrUnknownLine             = errors.New("selection references a line not present in the order")
	ErrInvalidQuantity         = errors.New("quantity to cancel must be positive")
	ErrQuantityExceedsLine     = errors.New("quantity to cancel exceeds line quantity")
	ErrUnknownCancellationType = errors.New("unknown cancellation type")
)

// ResolveAction maps an order status to its available action. Pure table.
func ResolveAction(status models.OrderStatus) ActionDescriptor {
	switch status {
	case models.OrderStatusPending, models.OrderStatusPaid, models.OrderStatusInPreparation:
		return ActionDescriptor{
			Action:      ActionCancel,
			Label:       "Cancelar pedido",
			RefundModel: RefundPreFulfillment,
			Severity:    "danger",
		}
	case models.OrderStatusReady:
		return ActionDescriptor{
			Action:      ActionReturn,
			Label:       "Devolver pedido",
			RefundModel: RefundPrePickup,
			Severity:    "warning",
		}
	case models.OrderStatusDelivered:
		return ActionDescriptor{
			Action:             ActionReturn,
			Label:              "Devolver pedido",
			RequiresStoreVisit: true,
			RefundModel:        RefundPostDelivery,
			Severity:           "warning",
		}
	case models.OrderStatusCancelled:
		return ActionDescriptor{Action: ActionNone, RefundModel: RefundNone}
	default:
		// Legacy catch-all for status values outside the enum. Orders that
		// reached us through the normalizer can never hit this branch: an
		// unrecognized wire status parses to pending with StatusRecognized
		// false, and IsEligible refuses those outright.
		return ActionDescriptor{
			Action:      ActionCancel,
			Label:       "Cancelar pedido",
			RefundModel: RefundPreFulfillment,
			Severity:    "danger",
		}
	}
}

// IsEligible reports whether the order currently supports any cancel/return
// action. The explicit cancelled check is redundant with the status set but
// kept deliberately as a defensive invariant.
func IsEligible(order *models.Order) bool {
	if order == nil || !order.StatusRecognized {
		return false
	}
	switch order.Status {
	case models.OrderStatusPending, models.OrderStatusPaid, models.OrderStatusInPreparation,
		models.OrderStatusReady, models.OrderStatusDelivered:
	default:
		return false
	}
	if order.IsCancelled() {
		return false
	}
	return order.Total.IsPositive()
}

// ValidateRequest rejects a malformed return request before any refund math
// or network call happens. The zero-quantity convention is enforced here: a
// selection of exactly zero units means "not part of the request" and must be
// excluded by the caller, never submitted.
func ValidateRequest(order *models.Order, req *models.ReturnRequest) error {
	if order == nil {
		return ErrOrderNotEligible
	}
	if !IsEligible(order) {
		return fmt.Errorf("order %s: %w", order.ID, ErrOrderNotEligible)
	}

	switch req.CancellationType {
	case models.CancellationComplete:
		if !order.HasLines() {
			return fmt.Errorf("order %s: %w", order.ID, ErrEmptyOrder)
		}
		return nil

	case models.CancellationPartial:
		if len(req.LinesToCancel) == 0 {
			return fmt.Errorf("order %s: %w", order.ID, ErrEmptySelection)
		}
		// Quantities are checked per line id in aggregate: a selection may
		// name the same line more than once, and the summed quantity must
		// still fit within what the line holds.
		requested := make(map[string]int, len(req.LinesToCancel))
		for _, sel := range req.LinesToCancel {
			line := order.Line(sel.LineID)
			if line == nil {
				return fmt.Errorf("order %s line %s: %w", order.ID, sel.LineID, ErrUnknownLine)
			}
			if sel.QuantityToCancel <= 0 {
				return fmt.Errorf("order %s line %s: %w", order.ID, sel.LineID, ErrInvalidQuantity)
			}
			requested[sel.LineID] += sel.QuantityToCancel
			if requested[sel.LineID] > line.Quantity {
				return fmt.Errorf("order %s line %s: %w", order.ID, sel.LineID, ErrQuantityExceedsLine)
			}
		}
		return nil

	default:
		return fmt.Errorf("%q: %w", req.CancellationType, ErrUnknownCancellationType)
	}
}

// ComputeRefund returns the amount a request refunds. COMPLETE refunds the
// order total; PARTIAL refunds unit price times quantity summed over the
// selection. The result is a local preview only: the backend's confirmed
// amount is authoritative for what the user sees.
func ComputeRefund(order *models.Order, req *models.ReturnRequest) (decimal.Decimal, error) {
	if err := ValidateRequest(order, req); err != nil {
		return decimal.Zero, err
	}

	if req.CancellationType == models.CancellationComplete {
		return order.Total, nil
	}

	refund := decimal.Zero
	for _, sel := range req.LinesToCancel {
		line := order.Line(sel.LineID)
		refund = refund.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(sel.QuantityToCancel))))
	}
	return refund, nil
}

// ApplyReturnLocally produces the order as it should display after the
// backend confirmed the request. It is a reconciliation optimization, never
// the authority on whether the return succeeded, and must only be called
// after a success response.
//
// COMPLETE keeps line history and only moves status and total. PARTIAL drops
// lines that reach zero quantity and recomputes every touched subtotal and
// the order total from scratch, so repeated returns never accumulate
// rounding drift.
func ApplyReturnLocally(order *models.Order, req *models.ReturnRequest) (*models.Order, error) {
	if err := ValidateRequest(order, req); err != nil {
		return nil, err
	}

	updated := order.Clone()

	if req.CancellationType == models.CancellationComplete {
		updated.Status = models.OrderStatusCancelled
		updated.Total = decimal.Zero
		return updated, nil
	}

	selected := make(map[string]int, len(req.LinesToCancel))
	for _, sel := range req.LinesToCancel {
		selected[sel.LineID] += sel.QuantityToCancel
	}

	kept := updated.Lines[:0]
	for _, line := range updated.Lines {
		if qty, ok := selected[line.ID]; ok {
			line.Quantity -= qty
			if line.Quantity <= 0 {
				continue
			}
			line.Subtotal = line.DerivedSubtotal()
		}
		kept = append(kept, line)
	}
	updated.Lines = kept

	total := decimal.Zero
	for _, line := range updated.Lines {
		total = total.Add(line.Subtotal)
	}
	updated.Total = total

	// A partial covering every unit of every line is a complete cancellation
	// in all but name.
	if len(updated.Lines) == 0 {
		updated.Status = models.OrderStatusCancelled
	}
	return updated, nil
}
