package polar

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	var out Checkout
	if err := c.do(ctx, http.MethodPost, "/checkouts/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCheckout(ctx context.Context, id string) (*Checkout, error) {
	var out Checkout
	if err := c.do(ctx, http.MethodGet, "/checkouts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	path := "/products/"
	if c.orgID != "" {
		path += "?organization_id=" + url.QueryEscape(c.orgID)
	}
	var out listResponse[Product]
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodPost, "/customers/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var out Customer
	if err := c.do(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelSubscription schedules cancellation at the end of the current period.
func (c *Client) CancelSubscription(ctx context.Context, id string) (*Subscription, error) {
	return c.UpdateSubscription(ctx, id, map[string]any{"cancel_at_period_end": true})
}

// ResumeSubscription clears a scheduled cancellation.
func (c *Client) ResumeSubscription(ctx context.Context, id string) (*Subscription, error) {
	return c.UpdateSubscription(ctx, id, map[string]any{"cancel_at_period_end": false})
}

// RevokeSubscription ends the subscription immediately.
func (c *Client) RevokeSubscription(ctx context.Context, id string) (*Subscription, error) {
	var out Subscription
	if err := c.do(ctx, http.MethodDelete, "/subscriptions/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangeSubscriptionProduct moves the subscription to another product.
func (c *Client) ChangeSubscriptionProduct(ctx context.Context, id, productID string) (*Subscription, error) {
	return c.UpdateSubscription(ctx, id, map[string]any{"product_id": productID})
}

func (c *Client) UpdateSubscription(ctx context.Context, id string, patch map[string]any) (*Subscription, error) {
	var out Subscription
	if err := c.do(ctx, http.MethodPatch, "/subscriptions/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context, customerID string) ([]Order, error) {
	path := "/orders/"
	if customerID != "" {
		path += "?customer_id=" + url.QueryEscape(customerID)
	}
	var out listResponse[Order]
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) GetOrderInvoice(ctx context.Context, orderID string) (*OrderInvoice, error) {
	var out OrderInvoice
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/invoice", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
