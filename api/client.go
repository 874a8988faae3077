// Package api is the typed client for the storefront backend. It wraps
// the request dispatcher with one method per endpoint and normalizes
// inconsistent identifier fields at this boundary, so the rest of the
// core only ever sees canonical ids.
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tiendio/storefront-go/transport"

	storefront "github.com/tiendio/storefront-go"
)

// Client talks to the storefront backend through a dispatcher.
type Client struct {
	dispatcher *transport.Dispatcher
}

// NewClient creates a typed client over the given dispatcher.
func NewClient(dispatcher *transport.Dispatcher) *Client {
	return &Client{dispatcher: dispatcher}
}

// ============================================================================
// Catalog
// ============================================================================

// ListProducts fetches the catalog. Individual records may use "id",
// "productId" or "_id"; identifiers come back normalized.
func (c *Client) ListProducts(ctx context.Context) ([]storefront.Product, error) {
	resp, err := c.dispatcher.Get(ctx, "/productRoutes")
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := resp.DecodeData(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode product list: %w", err)
	}

	products := make([]storefront.Product, 0, len(raw))
	for _, record := range raw {
		product, err := storefront.DecodeProduct(record)
		if err != nil {
			return nil, fmt.Errorf("failed to decode product record: %w", err)
		}
		products = append(products, product)
	}
	return products, nil
}

// GetProduct fetches one product by its canonical id.
func (c *Client) GetProduct(ctx context.Context, id string) (*storefront.Product, error) {
	resp, err := c.dispatcher.Get(ctx, "/productRoutes/"+id)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := resp.DecodeData(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	product, err := storefront.DecodeProduct(raw)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ============================================================================
// Orders
// ============================================================================

// CreateOrder submits an order. The submission's ClientRequestID is the
// idempotency key the backend deduplicates by; resubmitting the same
// submission must not create a second order.
func (c *Client) CreateOrder(ctx context.Context, sub storefront.OrderSubmission) (*storefront.OrderReceipt, error) {
	resp, err := c.dispatcher.Post(ctx, "/orderRoutes", sub)
	if err != nil {
		return nil, err
	}

	envelope, err := resp.Envelope()
	if err != nil {
		return nil, err
	}

	receipt := &storefront.OrderReceipt{Message: envelope.Message, Total: sub.Total}
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, receipt); err != nil {
			return nil, fmt.Errorf("failed to decode order receipt: %w", err)
		}
	}
	return receipt, nil
}

// ListMyOrders fetches the caller's order history.
func (c *Client) ListMyOrders(ctx context.Context) ([]storefront.Order, error) {
	resp, err := c.dispatcher.Get(ctx, "/orders")
	if err != nil {
		return nil, err
	}
	return decodeOrderList(resp)
}

func decodeOrderList(resp *transport.Response) ([]storefront.Order, error) {
	var raw []json.RawMessage
	if err := resp.DecodeData(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode order list: %w", err)
	}

	orders := make([]storefront.Order, 0, len(raw))
	for _, record := range raw {
		order, err := storefront.DecodeOrder(record)
		if err != nil {
			return nil, fmt.Errorf("failed to decode order record: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// Ensure Client satisfies the orchestrator's seam
var _ storefront.OrderCreator = (*Client)(nil)
