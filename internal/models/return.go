package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type CancellationType string

const (
	CancellationComplete CancellationType = "complete"
	CancellationPartial  CancellationType = "partial"
)

// DefaultReturnReason is substituted when the caller leaves the reason blank.
const DefaultReturnReason = "Solicitado por el cliente"

// LineSelection picks one order line and how many units of it to return.
// A quantity of zero means "leave this line out of the request"; callers
// should drop such selections rather than submit them.
type LineSelection struct {
	LineID           string `json:"detalle_id" validate:"required"`
	QuantityToCancel int    `json:"cantidad_anular" validate:"min=0"`
}

// ReturnRequest is the transient payload for a cancellation or return. It is
// never persisted client-side beyond submission. Wire field names follow the
// backend's convention.
type ReturnRequest struct {
	CancellationType CancellationType `json:"tipo_anulacion" validate:"required,oneof=complete partial"`
	Reason           string           `json:"motivo"`
	LinesToCancel    []LineSelection  `json:"detalles,omitempty" validate:"dive"`
}

// Normalize fills the default reason and drops zero-quantity selections.
func (r *ReturnRequest) Normalize() {
	if strings.TrimSpace(r.Reason) == "" {
		r.Reason = DefaultReturnReason
	}
	if r.CancellationType == CancellationPartial {
		// fresh slice: the caller may still hold the original selection
		kept := make([]LineSelection, 0, len(r.LinesToCancel))
		for _, sel := range r.LinesToCancel {
			if sel.QuantityToCancel != 0 {
				kept = append(kept, sel)
			}
		}
		r.LinesToCancel = kept
	}
}

// ReturnConfirmation is the backend's answer to a submitted return. The
// confirmed amount here, not the locally computed preview, is what gets shown
// to the user.
type ReturnConfirmation struct {
	OrderID         string          `json:"order_id"`
	CreditNoteCode  string          `json:"credit_note_code"`
	ConfirmedAmount decimal.Decimal `json:"confirmed_amount"`
	Message         string          `json:"message,omitempty"`
}
