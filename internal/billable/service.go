package billable

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/solvance/cashier-polar/internal/clock"
	"github.com/solvance/cashier-polar/internal/config"
	customerdomain "github.com/solvance/cashier-polar/internal/customer/domain"
	"github.com/solvance/cashier-polar/internal/polar"
	subscriptiondomain "github.com/solvance/cashier-polar/internal/subscription/domain"
	transactiondomain "github.com/solvance/cashier-polar/internal/transaction/domain"
	"github.com/solvance/cashier-polar/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultSubscriptionType names the subscription slot used when callers do
// not distinguish multiple concurrent subscriptions.
const DefaultSubscriptionType = "default"

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Config        config.Config
	Polar         *polar.Client
	Customers     customerdomain.Service
	Subscriptions subscriptiondomain.Repository
	Transactions  transactiondomain.Repository
}

// Service exposes billing operations for a billable entity.
type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	cfg           config.Config
	polar         *polar.Client
	customers     customerdomain.Service
	subscriptions subscriptiondomain.Repository
	transactions  transactiondomain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("billable.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		cfg:           p.Config,
		polar:         p.Polar,
		customers:     p.Customers,
		subscriptions: p.Subscriptions,
		transactions:  p.Transactions,
	}
}

// CheckoutRequest starts a checkout for a billable entity.
type CheckoutRequest struct {
	Products      []string       `json:"products"`
	SuccessURL    string         `json:"success_url,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Checkout creates a provider checkout session with the billable reference
// stamped into metadata, which is what later lets webhooks resolve the owner.
// An already linked customer is attached to the session, with its name and
// email filling any the caller left blank.
func (s *Service) Checkout(ctx context.Context, ref Ref, req CheckoutRequest) (*polar.Checkout, error) {
	if !ref.Valid() {
		return nil, ErrInvalidRef
	}

	metadata := map[string]any{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata[MetadataBillableType] = ref.Kind
	metadata[MetadataBillableID] = ref.ID

	successURL := strings.TrimSpace(req.SuccessURL)
	if successURL == "" {
		successURL = s.cfg.CheckoutSuccessURL
	}

	customerID := ""
	customerName := req.CustomerName
	customerEmail := req.CustomerEmail
	owner, err := s.customer(ctx, ref)
	if err != nil && !errors.Is(err, ErrNoCustomer) {
		return nil, err
	}
	if owner != nil {
		customerID = owner.PolarID
		if customerName == "" {
			customerName = owner.Name
		}
		if customerEmail == "" {
			customerEmail = owner.Email
		}
	}

	checkout, err := s.polar.CreateCheckout(ctx, polar.CheckoutRequest{
		Products:      req.Products,
		SuccessURL:    successURL,
		CustomerID:    customerID,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("checkout created",
		zap.String("checkout_id", checkout.ID),
		zap.String(MetadataBillableType, ref.Kind),
		zap.String(MetadataBillableID, ref.ID),
	)
	return checkout, nil
}

// GetOrCreateCustomer returns the customer row for the billable, creating
// the remote customer and the local link when none exists yet.
func (s *Service) GetOrCreateCustomer(ctx context.Context, ref Ref, name, email string) (customerdomain.Customer, error) {
	if !ref.Valid() {
		return customerdomain.Customer{}, ErrInvalidRef
	}

	existing, err := s.customers.GetByBillable(ctx, ref.Kind, ref.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, customerdomain.ErrNotFound) {
		return customerdomain.Customer{}, err
	}
	return s.provisionCustomer(ctx, ref, name, email)
}

// CreateCustomer provisions a new provider customer and fails when the
// billable is already linked to one.
func (s *Service) CreateCustomer(ctx context.Context, ref Ref, name, email string) (customerdomain.Customer, error) {
	if !ref.Valid() {
		return customerdomain.Customer{}, ErrInvalidRef
	}

	_, err := s.customers.GetByBillable(ctx, ref.Kind, ref.ID)
	if err == nil {
		return customerdomain.Customer{}, ErrCustomerExists
	}
	if !errors.Is(err, customerdomain.ErrNotFound) {
		return customerdomain.Customer{}, err
	}
	return s.provisionCustomer(ctx, ref, name, email)
}

func (s *Service) provisionCustomer(ctx context.Context, ref Ref, name, email string) (customerdomain.Customer, error) {
	remote, err := s.polar.CreateCustomer(ctx, polar.CustomerRequest{
		Name:  name,
		Email: email,
		Metadata: map[string]any{
			MetadataBillableType: ref.Kind,
			MetadataBillableID:   ref.ID,
		},
	})
	if err != nil {
		return customerdomain.Customer{}, err
	}

	customer, err := s.customers.Upsert(ctx, customerdomain.UpsertCustomerRequest{
		BillableType: ref.Kind,
		BillableID:   ref.ID,
		PolarID:      remote.ID,
		Name:         name,
		Email:        email,
	})
	if err != nil {
		// A concurrent provision for the same billable lands here through
		// the unique pair constraint.
		if db.IsDuplicateKeyErr(err) {
			return customerdomain.Customer{}, ErrCustomerExists
		}
		return customerdomain.Customer{}, err
	}

	s.log.Info("customer provisioned",
		zap.String("polar_id", remote.ID),
		zap.String(MetadataBillableType, ref.Kind),
		zap.String(MetadataBillableID, ref.ID),
	)
	return customer, nil
}

// PolarID returns the provider customer ID linked to the billable.
func (s *Service) PolarID(ctx context.Context, ref Ref) (string, error) {
	customer, err := s.customer(ctx, ref)
	if err != nil {
		return "", err
	}
	return customer.PolarID, nil
}

// Subscription returns the most recent subscription of the given type.
func (s *Service) Subscription(ctx context.Context, ref Ref, subType string) (subscriptiondomain.Subscription, error) {
	customer, err := s.customer(ctx, ref)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	if subType == "" {
		subType = DefaultSubscriptionType
	}
	subscription, err := s.subscriptions.FindByCustomer(ctx, s.db, customer.ID, subType)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if subscription == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *subscription, nil
}

// Subscribed reports whether the billable has a valid subscription of the
// given type.
func (s *Service) Subscribed(ctx context.Context, ref Ref, subType string) (bool, error) {
	subscription, err := s.Subscription(ctx, ref, subType)
	if err != nil {
		if errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) || errors.Is(err, ErrNoCustomer) {
			return false, nil
		}
		return false, err
	}
	return subscription.Valid(s.clock.Now()), nil
}

// SubscribedToProduct reports whether a valid subscription covers the
// given product.
func (s *Service) SubscribedToProduct(ctx context.Context, ref Ref, productID, subType string) (bool, error) {
	subscription, err := s.Subscription(ctx, ref, subType)
	if err != nil {
		if errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound) || errors.Is(err, ErrNoCustomer) {
			return false, nil
		}
		return false, err
	}
	if !subscription.Valid(s.clock.Now()) {
		return false, nil
	}

	items, err := s.subscriptions.ListItems(ctx, s.db, subscription.ID)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

// OnPlan reports whether a valid subscription carries the given price.
func (s *Service) OnPlan(ctx context.Context, ref Ref, priceID string) (bool, error) {
	customer, err := s.customer(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNoCustomer) {
			return false, nil
		}
		return false, err
	}

	now := s.clock.Now()
	subscriptions, err := s.subscriptions.ListByCustomer(ctx, s.db, customer.ID)
	if err != nil {
		return false, err
	}
	for _, subscription := range subscriptions {
		if !subscription.Valid(now) {
			continue
		}
		items, err := s.subscriptions.ListItems(ctx, s.db, subscription.ID)
		if err != nil {
			return false, err
		}
		for _, item := range items {
			if item.PriceID == priceID {
				return true, nil
			}
		}
	}
	return false, nil
}

// Transactions lists recorded charges for the billable, newest first.
func (s *Service) Transactions(ctx context.Context, ref Ref) ([]transactiondomain.Transaction, error) {
	customer, err := s.customer(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.transactions.ListByCustomer(ctx, s.db, customer.ID)
}

// Orders lists provider orders for the billable.
func (s *Service) Orders(ctx context.Context, ref Ref) ([]polar.Order, error) {
	customer, err := s.customer(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.polar.ListOrders(ctx, customer.PolarID)
}

// GetInvoice returns the hosted invoice URL for an order.
func (s *Service) GetInvoice(ctx context.Context, orderID string) (string, error) {
	invoice, err := s.polar.GetOrderInvoice(ctx, orderID)
	if err != nil {
		return "", err
	}
	return invoice.URL, nil
}

func (s *Service) customer(ctx context.Context, ref Ref) (*customerdomain.Customer, error) {
	if !ref.Valid() {
		return nil, ErrInvalidRef
	}
	customer, err := s.customers.GetByBillable(ctx, ref.Kind, ref.ID)
	if err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) {
			return nil, ErrNoCustomer
		}
		return nil, err
	}
	return &customer, nil
}
