package normalizer

import "orders-client/internal/models"

// The backend has gone through several naming conventions (camelCase Spanish,
// snake_case Spanish, English) and older records still arrive in all of them.
// Every canonical field resolves through one ordered alias list, first
// non-null wins, so the priority order is visible and testable in one place.

var orderAliases = map[string][]string{
	"id":              {"id", "pedidoId", "pedido_id", "ordenId", "orden_id"},
	"attentionNumber": {"numeroAtencion", "numero_atencion", "nroAtencion", "nro_atencion", "attention_number"},
	"orderDate":       {"fechaPedido", "fecha_pedido", "fecha", "order_date", "createdAt", "created_at"},
	"deliveryDate":    {"fechaEntrega", "fecha_entrega", "delivery_date"},
	"status":          {"estado", "estadoPedido", "estado_pedido", "status"},
	"total":           {"total", "montoTotal", "monto_total", "importeTotal", "importe_total"},
	"notes":           {"observaciones", "notas", "notes"},
	"lines":           {"detalles", "detalle", "details", "items", "lineas", "lines"},
}

var lineAliases = map[string][]string{
	"id":                 {"id", "detalleId", "detalle_id"},
	"productId":          {"productoId", "producto_id", "idProducto", "id_producto", "product_id"},
	"productName":        {"nombreProducto", "nombre_producto", "producto_nombre", "product_name"},
	"productDescription": {"descripcionProducto", "descripcion_producto", "product_description"},
	"productImageURL":    {"imagenProducto", "imagen_producto", "imagenUrl", "imagen_url", "product_image_url"},
	"quantity":           {"cantidad", "qty", "quantity"},
	"unitPrice":          {"precioUnitario", "precio_unitario", "precio", "unit_price"},
	"subtotal":           {"subtotal", "subTotal", "sub_total", "importe"},
	"specialNotes":       {"notasEspeciales", "notas_especiales", "observaciones", "special_notes"},
	"product":            {"producto", "Producto", "product"},
}

// nested product object fields, same first-non-null rule
var productAliases = map[string][]string{
	"id":          {"id", "productoId", "producto_id", "product_id"},
	"name":        {"nombre", "name"},
	"description": {"descripcion", "description"},
	"imageURL":    {"imagenUrl", "imagen_url", "imagen", "image_url"},
}

// statusAliases maps every historical wire value onto the canonical enum.
// Lookup is case-insensitive on the trimmed value.
var statusAliases = map[string]models.OrderStatus{
	"pendiente":       models.OrderStatusPending,
	"pending":         models.OrderStatusPending,
	"pagado":          models.OrderStatusPaid,
	"paid":            models.OrderStatusPaid,
	"en_preparacion":  models.OrderStatusInPreparation,
	"enpreparacion":   models.OrderStatusInPreparation,
	"preparacion":     models.OrderStatusInPreparation,
	"in_preparation":  models.OrderStatusInPreparation,
	"listo":           models.OrderStatusReady,
	"lista":           models.OrderStatusReady,
	"ready":           models.OrderStatusReady,
	"entregado":       models.OrderStatusDelivered,
	"delivered":       models.OrderStatusDelivered,
	"cancelado":       models.OrderStatusCancelled,
	"anulado":         models.OrderStatusCancelled,
	"cancelled":       models.OrderStatusCancelled,
	"canceled":        models.OrderStatusCancelled,
}
