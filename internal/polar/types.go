package polar

import "time"

// Checkout is a Polar checkout session.
type Checkout struct {
	ID            string         `json:"id"`
	URL           string         `json:"url"`
	Status        string         `json:"status"`
	CustomerID    string         `json:"customer_id,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	ProductID     string         `json:"product_id,omitempty"`
	ProductPriceID string        `json:"product_price_id,omitempty"`
	SuccessURL    string         `json:"success_url,omitempty"`
	TotalAmount   int64          `json:"total_amount,omitempty"`
	TaxAmount     int64          `json:"tax_amount,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty"`
}

// CheckoutRequest creates a checkout session.
type CheckoutRequest struct {
	Products      []string       `json:"products,omitempty"`
	ProductPriceID string        `json:"product_price_id,omitempty"`
	SuccessURL    string         `json:"success_url,omitempty"`
	CustomerID    string         `json:"customer_id,omitempty"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Price is a product price.
type Price struct {
	ID                string `json:"id"`
	AmountType        string `json:"amount_type,omitempty"`
	PriceAmount       int64  `json:"price_amount,omitempty"`
	PriceCurrency     string `json:"price_currency,omitempty"`
	RecurringInterval string `json:"recurring_interval,omitempty"`
}

// Product is a Polar product.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	IsRecurring bool    `json:"is_recurring"`
	IsArchived  bool    `json:"is_archived"`
	Prices      []Price `json:"prices,omitempty"`
}

// Customer is a Polar customer.
type Customer struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CustomerRequest creates a remote customer.
type CustomerRequest struct {
	Name     string         `json:"name,omitempty"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Subscription is the remote subscription representation.
type Subscription struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	CustomerID         string     `json:"customer_id,omitempty"`
	ProductID          string     `json:"product_id,omitempty"`
	PriceID            string     `json:"price_id,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
}

// Order is a completed purchase.
type Order struct {
	ID             string         `json:"id"`
	Status         string         `json:"status,omitempty"`
	Amount         int64          `json:"amount"`
	TaxAmount      int64          `json:"tax_amount"`
	Currency       string         `json:"currency"`
	CustomerID     string         `json:"customer_id,omitempty"`
	SubscriptionID string         `json:"subscription_id,omitempty"`
	CheckoutID     string         `json:"checkout_id,omitempty"`
	BillingReason  string         `json:"billing_reason,omitempty"`
	CreatedAt      *time.Time     `json:"created_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// OrderInvoice carries the hosted invoice URL for an order.
type OrderInvoice struct {
	URL string `json:"url"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}
