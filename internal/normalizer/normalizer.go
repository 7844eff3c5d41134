package normalizer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"orders-client/internal/models"
)

// ErrNoIdentifier is returned when a raw record carries no resolvable id under
// any known alias. Such records must be dropped or flagged by the caller; the
// normalizer never fabricates identifiers.
var ErrNoIdentifier = errors.New("no identifier field could be resolved")

// ParseStatus maps a raw status value onto the canonical enum. The second
// result is false for unknown or missing values, which display as pending but
// must never become actionable.
func ParseStatus(v any) (models.OrderStatus, bool) {
	s := strings.ToLower(AsString(v))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if status, ok := statusAliases[s]; ok {
		return status, true
	}
	return models.OrderStatusPending, false
}

// NormalizeOrder converts an arbitrarily-shaped backend order object into the
// canonical shape. Missing optional fields take documented defaults; lines
// without a resolvable id are skipped and counted in dropped. Pure transform,
// no I/O.
func NormalizeOrder(raw map[string]any) (order *models.Order, dropped int, err error) {
	idVal, ok := Lookup(raw, orderAliases["id"])
	if !ok {
		return nil, 0, fmt.Errorf("order: %w", ErrNoIdentifier)
	}
	id := AsString(idVal)
	if id == "" {
		return nil, 0, fmt.Errorf("order: %w", ErrNoIdentifier)
	}

	order = &models.Order{ID: id}

	if v, ok := Lookup(raw, orderAliases["attentionNumber"]); ok {
		order.AttentionNumber = AsString(v)
	}
	if order.AttentionNumber == "" {
		order.AttentionNumber = "#" + id
	}

	statusVal, _ := Lookup(raw, orderAliases["status"])
	order.Status, order.StatusRecognized = ParseStatus(statusVal)

	if v, ok := Lookup(raw, orderAliases["orderDate"]); ok {
		if t, parsed := AsTime(v); parsed {
			order.OrderDate = t
		}
	}
	if order.OrderDate.IsZero() {
		// Upstream sometimes omits the order date entirely. Keeping the
		// historical "default to now" behavior, but flagged so telemetry can
		// tell synthesized dates apart from real ones.
		order.OrderDate = time.Now()
		order.DateSynthesized = true
	}

	if v, ok := Lookup(raw, orderAliases["deliveryDate"]); ok {
		if t, parsed := AsTime(v); parsed {
			order.DeliveryDate = &t
		}
	}
	if v, ok := Lookup(raw, orderAliases["notes"]); ok {
		order.Notes = AsString(v)
	}

	if v, ok := Lookup(raw, orderAliases["lines"]); ok {
		if items, isList := v.([]any); isList {
			for _, item := range items {
				rawLine, isMap := AsMap(item)
				if !isMap {
					dropped++
					continue
				}
				line, lineErr := NormalizeLine(rawLine)
				if lineErr != nil {
					dropped++
					continue
				}
				order.Lines = append(order.Lines, *line)
			}
		}
	}

	order.Total = resolveTotal(raw, order.Lines)

	return order, dropped, nil
}

// resolveTotal prefers the explicit total field; when it is absent or
// unparseable the total is rebuilt from the line subtotals.
func resolveTotal(raw map[string]any, lines []models.OrderLine) decimal.Decimal {
	if v, ok := Lookup(raw, orderAliases["total"]); ok {
		if d, parsed := AsDecimal(v); parsed && !d.IsNegative() {
			return d
		}
	}
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// NormalizeLine converts one raw detail row. The subtotal is computed from
// quantity times unit price only when no explicit subtotal field is present,
// so re-normalizing an already-canonical line is a fixed point.
func NormalizeLine(raw map[string]any) (*models.OrderLine, error) {
	idVal, ok := Lookup(raw, lineAliases["id"])
	if !ok {
		return nil, fmt.Errorf("line: %w", ErrNoIdentifier)
	}
	id := AsString(idVal)
	if id == "" {
		return nil, fmt.Errorf("line: %w", ErrNoIdentifier)
	}

	line := &models.OrderLine{ID: id, Quantity: 1}

	// Product fields may live flat on the line or inside a nested product
	// object; the flat aliases win when both are present.
	var product map[string]any
	if v, ok := Lookup(raw, lineAliases["product"]); ok {
		product, _ = AsMap(v)
	}
	line.ProductID = lineField(raw, product, "productId", "id")
	line.ProductName = lineField(raw, product, "productName", "name")
	line.ProductDescription = lineField(raw, product, "productDescription", "description")
	line.ProductImageURL = lineField(raw, product, "productImageURL", "imageURL")

	if line.ProductName == "" {
		if line.ProductID != "" {
			line.ProductName = fmt.Sprintf("Product #%s", line.ProductID)
		} else {
			line.ProductName = "Product #" + id
		}
	}

	if v, ok := Lookup(raw, lineAliases["quantity"]); ok {
		if q, parsed := AsInt(v); parsed && q >= 1 {
			line.Quantity = q
		}
	}
	if v, ok := Lookup(raw, lineAliases["unitPrice"]); ok {
		if d, parsed := AsDecimal(v); parsed && !d.IsNegative() {
			line.UnitPrice = d
		}
	}
	if v, ok := Lookup(raw, lineAliases["specialNotes"]); ok {
		line.SpecialNotes = AsString(v)
	}

	if v, ok := Lookup(raw, lineAliases["subtotal"]); ok {
		if d, parsed := AsDecimal(v); parsed && !d.IsNegative() {
			line.Subtotal = d
			return line, nil
		}
	}
	line.Subtotal = line.DerivedSubtotal()
	return line, nil
}

// lineField resolves a product attribute, flat line aliases first, then the
// nested product object.
func lineField(raw, product map[string]any, lineKey, productKey string) string {
	if v, ok := Lookup(raw, lineAliases[lineKey]); ok {
		if s := AsString(v); s != "" {
			return s
		}
	}
	if product != nil {
		if v, ok := Lookup(product, productAliases[productKey]); ok {
			return AsString(v)
		}
	}
	return ""
}
