package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"orders-client/internal/models"
	"orders-client/internal/normalizer"
)

// TokenProvider supplies the bearer token for each call. The session store
// satisfies it; the client never reads ambient state.
type TokenProvider interface {
	Token() string
}

type OrdersClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// OrdersClient talks to the storefront backend's order endpoints. It returns
// raw order objects; normalization is the repository's job.
type OrdersClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	tokens     TokenProvider
	validate   *validator.Validate
	logger     *logrus.Entry
}

// APIError is a non-2xx backend answer. The message travels verbatim to the
// user when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend rejected request (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend rejected request (status %d)", e.StatusCode)
}

// FetchMeta carries the list envelope fields that are not orders.
type FetchMeta struct {
	Count       int
	Message     string
	Unavailable bool
}

func NewOrdersClient(config *OrdersClientConfig, tokens TokenProvider, logger *logrus.Logger) *OrdersClient {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &OrdersClient{
		baseURL:   config.BaseURL,
		userAgent: config.UserAgent,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger.WithField("component", "orders_client"),
	}
}

// FetchOrders retrieves the raw order list. Transport failures and
// 401/403/404 answers degrade to an empty list with Unavailable set instead
// of an error, so list screens render an "unavailable" state rather than
// crash; any other non-2xx status is a real error.
func (c *OrdersClient) FetchOrders(ctx context.Context) ([]map[string]any, *FetchMeta, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/pedidos", nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Warn("order fetch failed, serving unavailable state")
		return []map[string]any{}, &FetchMeta{Unavailable: true, Message: "orders temporarily unavailable"}, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		c.logger.WithField("status", resp.StatusCode).Warn("order fetch not available")
		return []map[string]any{}, &FetchMeta{Unavailable: true, Message: "orders temporarily unavailable"}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, c.apiError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read orders response: %w", err)
	}

	return parseOrderList(body)
}

// Envelope shapes the backend has used for the order list endpoint.
var (
	listPayloadAliases = []string{"pedidos", "orders", "data", "resultado"}
	listCountAliases   = []string{"total", "cantidad", "count"}
	listMessageAliases = []string{"mensaje", "message"}
)

func parseOrderList(body []byte) ([]map[string]any, *FetchMeta, error) {
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		// The oldest deployments returned a bare array.
		var bare []map[string]any
		if bareErr := json.Unmarshal(body, &bare); bareErr == nil {
			return bare, &FetchMeta{Count: len(bare)}, nil
		}
		return nil, nil, fmt.Errorf("failed to decode orders response: %w", err)
	}

	meta := &FetchMeta{}
	if v, ok := normalizer.Lookup(envelope, listCountAliases); ok {
		meta.Count, _ = normalizer.AsInt(v)
	}
	if v, ok := normalizer.Lookup(envelope, listMessageAliases); ok {
		meta.Message = normalizer.AsString(v)
	}

	raw, ok := normalizer.Lookup(envelope, listPayloadAliases)
	if !ok {
		return []map[string]any{}, meta, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return []map[string]any{}, meta, nil
	}

	orders := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, isMap := item.(map[string]any); isMap {
			orders = append(orders, m)
		}
	}
	if meta.Count == 0 {
		meta.Count = len(orders)
	}
	return orders, meta, nil
}

// SubmitReturn posts a cancellation/return for the order. The request is
// shape-validated before any network I/O; an idempotency key makes a blind
// retry safe server-side. Backend rejections come back as *APIError with the
// server's message verbatim.
func (c *OrdersClient) SubmitReturn(ctx context.Context, orderID string, request *models.ReturnRequest) (*models.ReturnConfirmation, error) {
	request.Normalize()
	if err := c.validate.Struct(request); err != nil {
		return nil, fmt.Errorf("invalid return request: %w", err)
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode return request: %w", err)
	}

	path := fmt.Sprintf("/api/pedidos/%s/anulaciones", orderID)
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit return for order %s: %w", orderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.apiError(resp)
	}

	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode return confirmation: %w", err)
	}
	return parseConfirmation(orderID, envelope), nil
}

var (
	confirmCodeAliases    = []string{"codigoNotaCredito", "codigo_nota_credito", "credit_note_code"}
	confirmAmountAliases  = []string{"montoConfirmado", "monto_confirmado", "confirmed_amount", "monto"}
	confirmMessageAliases = []string{"mensaje", "message"}
)

func parseConfirmation(orderID string, envelope map[string]any) *models.ReturnConfirmation {
	confirmation := &models.ReturnConfirmation{OrderID: orderID}
	if v, ok := normalizer.Lookup(envelope, confirmCodeAliases); ok {
		confirmation.CreditNoteCode = normalizer.AsString(v)
	}
	if v, ok := normalizer.Lookup(envelope, confirmAmountAliases); ok {
		if d, parsed := normalizer.AsDecimal(v); parsed {
			confirmation.ConfirmedAmount = d
		}
	}
	if v, ok := normalizer.Lookup(envelope, confirmMessageAliases); ok {
		confirmation.Message = normalizer.AsString(v)
	}
	return confirmation
}

// Ping checks backend reachability.
func (c *OrdersClient) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *OrdersClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *OrdersClient) apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return apiErr
	}
	var envelope map[string]any
	if json.Unmarshal(body, &envelope) == nil {
		if v, ok := normalizer.Lookup(envelope, confirmMessageAliases); ok {
			apiErr.Message = normalizer.AsString(v)
		} else if v, ok := normalizer.Lookup(envelope, []string{"error", "detalle"}); ok {
			apiErr.Message = normalizer.AsString(v)
		}
	}
	return apiErr
}
