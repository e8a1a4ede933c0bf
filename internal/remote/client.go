package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Catalina-leal/Huertohogarapp/internal/domain"
	apperrors "github.com/Catalina-leal/Huertohogarapp/pkg/errors"
	"github.com/Catalina-leal/Huertohogarapp/pkg/httpclient"
)

const apiName = "order api"

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CircuitOpenFallback answers for the backend while the breaker is open, so
// callers see RemoteUnavailable instead of the raw breaker error.
func CircuitOpenFallback(_ context.Context, err error) (*http.Response, error) {
	return nil, apperrors.RemoteUnavailable("order api is temporarily unavailable", err)
}

// Client talks to the storefront backend (orders, products, payments).
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a backend client rooted at baseURL, e.g.
// "https://api.huertohogar.cl/api/".
func NewClient(doer HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CreateOrder sends a locally created order to the backend and returns the
// backend's copy.
func (c *Client) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	var out OrderDTO
	if err := c.call(ctx, http.MethodPost, "/orders", OrderToDTO(order), &out); err != nil {
		return nil, fmt.Errorf("create remote order: %w", err)
	}
	c.logger.InfoContext(ctx, "order sent to backend",
		slog.String("order_id", order.ID),
		slog.String("remote_order_id", out.OrderID),
	)
	return out.ToOrder(), nil
}

// OrdersByUser lists a user's orders as the backend knows them.
func (c *Client) OrdersByUser(ctx context.Context, email string) ([]domain.Order, error) {
	var out []OrderDTO
	if err := c.call(ctx, http.MethodGet, "/orders/user/"+url.PathEscape(email), nil, &out); err != nil {
		return nil, fmt.Errorf("list remote orders: %w", err)
	}
	orders := make([]domain.Order, len(out))
	for i := range out {
		orders[i] = *out[i].ToOrder()
	}
	return orders, nil
}

// GetOrder fetches one order.
func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var out OrderDTO
	if err := c.call(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get remote order: %w", err)
	}
	return out.ToOrder(), nil
}

// UpdateStatus changes an order's status on the backend.
func (c *Client) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	var out OrderDTO
	path := "/orders/" + url.PathEscape(id) + "/status"
	if err := c.call(ctx, http.MethodPut, path, statusUpdateRequest{Status: status.String()}, &out); err != nil {
		return nil, fmt.Errorf("update remote order status: %w", err)
	}
	return out.ToOrder(), nil
}

// ListProducts fetches the backend catalog.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []ProductDTO
	if err := c.call(ctx, http.MethodGet, "/products", nil, &out); err != nil {
		return nil, fmt.Errorf("list remote products: %w", err)
	}
	products := make([]domain.Product, len(out))
	for i := range out {
		products[i] = *out[i].ToProduct()
	}
	return products, nil
}

// GetProduct fetches one catalog entry.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var out ProductDTO
	if err := c.call(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get remote product: %w", err)
	}
	return out.ToProduct(), nil
}

// ProcessPayment asks the backend to charge an order.
func (c *Client) ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	var out PaymentResult
	if err := c.call(ctx, http.MethodPost, "/payments/process", req, &out); err != nil {
		return nil, fmt.Errorf("process payment: %w", err)
	}
	return &out, nil
}

// call sends in as the JSON body (when non-nil) and decodes a 2xx response
// into out. Transport failures and undecodable bodies become
// RemoteUnavailable; other statuses go through ParseResponseError.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.RemoteUnavailable(apiName+" unreachable", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, apiName)
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.RemoteUnavailable(apiName+" returned an unreadable response", err)
	}
	return nil
}
