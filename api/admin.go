package api

import (
	"context"
	"encoding/json"
	"fmt"

	storefront "github.com/tiendio/storefront-go"
)

// ============================================================================
// Admin Back-Office Endpoints
// ============================================================================
//
// These calls require a credential whose user has the admin role; the
// backend enforces that, the client only forwards the bearer token.

// ProductInput is the payload for creating or updating a catalog record.
type ProductInput struct {
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Description string  `json:"description,omitempty"`
	Stock       int     `json:"stock"`
}

// CreateProduct adds a catalog record.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*storefront.Product, error) {
	resp, err := c.dispatcher.Post(ctx, "/products", in)
	if err != nil {
		return nil, err
	}
	return decodeSingleProduct(resp.DecodeData)
}

// UpdateProduct replaces a catalog record.
func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) (*storefront.Product, error) {
	resp, err := c.dispatcher.Put(ctx, "/products/"+id, in)
	if err != nil {
		return nil, err
	}
	return decodeSingleProduct(resp.DecodeData)
}

// DeleteProduct removes a catalog record.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.dispatcher.Delete(ctx, "/products/"+id)
	return err
}

// ListUsers fetches every registered user.
func (c *Client) ListUsers(ctx context.Context) ([]storefront.UserProfile, error) {
	resp, err := c.dispatcher.Get(ctx, "/userRoutes")
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if err := resp.DecodeData(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode user list: %w", err)
	}

	users := make([]storefront.UserProfile, 0, len(raw))
	for _, record := range raw {
		var user storefront.UserProfile
		if err := json.Unmarshal(record, &user); err != nil {
			return nil, fmt.Errorf("failed to decode user record: %w", err)
		}
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(record, &fields); err == nil {
			user.ID = storefront.ResolveID(fields)
		}
		users = append(users, user)
	}
	return users, nil
}

// UpdateUserRole changes a user's role.
func (c *Client) UpdateUserRole(ctx context.Context, id, role string) error {
	_, err := c.dispatcher.Put(ctx, "/userRoutes/"+id, map[string]string{"role": role})
	return err
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.dispatcher.Delete(ctx, "/userRoutes/"+id)
	return err
}

// ListAllOrders fetches every order in the system.
func (c *Client) ListAllOrders(ctx context.Context) ([]storefront.Order, error) {
	resp, err := c.dispatcher.Get(ctx, "/orders/admin/all")
	if err != nil {
		return nil, err
	}
	return decodeOrderList(resp)
}

// UpdateOrderStatus moves an order through fulfillment (e.g. "created"
// → "shipped" → "delivered").
func (c *Client) UpdateOrderStatus(ctx context.Context, id, status string) error {
	_, err := c.dispatcher.Put(ctx, "/orders/"+id, map[string]string{"status": status})
	return err
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	_, err := c.dispatcher.Delete(ctx, "/orders/"+id)
	return err
}

func decodeSingleProduct(decode func(interface{}) error) (*storefront.Product, error) {
	var raw json.RawMessage
	if err := decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	product, err := storefront.DecodeProduct(raw)
	if err != nil {
		return nil, err
	}
	return &product, nil
}
