package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orders-client/internal/models"
)

type staticToken string

func (t staticToken) Token() string { return string(t) }

func newTestClient(t *testing.T, handler http.HandlerFunc) *OrdersClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOrdersClient(&OrdersClientConfig{BaseURL: server.URL}, staticToken("tok-123"), nil)
}

func TestFetchOrders_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pedidos", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"pedidos": [
				{"id": 1, "numeroAtencion": "A-001", "estado": "pagado", "total": 15000},
				{"id": 2, "numeroAtencion": "A-002", "estado": "pendiente", "total": 3000}
			],
			"total": 2,
			"mensaje": "ok"
		}`))
	})

	orders, meta, err := client.FetchOrders(context.Background())
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.False(t, meta.Unavailable)
	assert.Equal(t, 2, meta.Count)
	assert.Equal(t, "ok", meta.Message)
	require.Len(t, orders, 2)
	assert.Equal(t, "A-001", orders[0]["numeroAtencion"])
}

func TestFetchOrders_BareArrayPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1}]`))
	})

	orders, meta, err := client.FetchOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Count)
	assert.Len(t, orders, 1)
}

func TestFetchOrders_UnavailableStatuses(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		orders, meta, err := client.FetchOrders(context.Background())
		require.NoError(t, err, "status %d must degrade, not fail", status)
		require.NotNil(t, meta)
		assert.True(t, meta.Unavailable)
		assert.Empty(t, orders)
	}
}

func TestFetchOrders_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on
	client := NewOrdersClient(&OrdersClientConfig{BaseURL: server.URL}, staticToken(""), nil)

	orders, meta, err := client.FetchOrders(context.Background())
	require.NoError(t, err)
	assert.True(t, meta.Unavailable)
	assert.Empty(t, orders)
}

func TestFetchOrders_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"mensaje": "se cayó la base"}`))
	})

	_, _, err := client.FetchOrders(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "se cayó la base", apiErr.Message)
}

func TestSubmitReturn_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/pedidos/42/anulaciones", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Idempotency-Key"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "partial", payload["tipo_anulacion"])
		assert.Equal(t, models.DefaultReturnReason, payload["motivo"], "blank reason gets the default")

		_, _ = w.Write([]byte(`{
			"codigoNotaCredito": "NC-2025-0099",
			"montoConfirmado": 4000,
			"mensaje": "anulación parcial registrada"
		}`))
	})

	confirmation, err := client.SubmitReturn(context.Background(), "42", &models.ReturnRequest{
		CancellationType: models.CancellationPartial,
		LinesToCancel:    []models.LineSelection{{LineID: "1", QuantityToCancel: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", confirmation.OrderID)
	assert.Equal(t, "NC-2025-0099", confirmation.CreditNoteCode)
	assert.True(t, confirmation.ConfirmedAmount.Equal(decimal.NewFromInt(4000)))
	assert.Equal(t, "anulación parcial registrada", confirmation.Message)
}

func TestSubmitReturn_DropsZeroQuantitySelections(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Lines []models.LineSelection `json:"detalles"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Lines, 1, "zero-quantity selections are excluded, not sent as zero amounts")
		assert.Equal(t, "2", payload.Lines[0].LineID)

		_, _ = w.Write([]byte(`{"codigoNotaCredito": "NC-1", "montoConfirmado": 100}`))
	})

	_, err := client.SubmitReturn(context.Background(), "42", &models.ReturnRequest{
		CancellationType: models.CancellationPartial,
		LinesToCancel: []models.LineSelection{
			{LineID: "1", QuantityToCancel: 0},
			{LineID: "2", QuantityToCancel: 1},
		},
	})
	require.NoError(t, err)
}

func TestSubmitReturn_InvalidRequestNeverReachesNetwork(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.SubmitReturn(context.Background(), "42", &models.ReturnRequest{
		CancellationType: "sideways",
	})
	require.Error(t, err)
	assert.False(t, called, "validation failures must be rejected before any network call")
}

func TestSubmitReturn_BackendRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"mensaje": "el pedido ya fue retirado"}`))
	})

	_, err := client.SubmitReturn(context.Background(), "42", &models.ReturnRequest{
		CancellationType: models.CancellationComplete,
	})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "el pedido ya fue retirado", apiErr.Message, "server message travels verbatim")
}

func TestPing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, client.Ping(context.Background()))
}
