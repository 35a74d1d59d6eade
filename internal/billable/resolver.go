package billable

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/solvance/cashier-polar/internal/clock"
	customerdomain "github.com/solvance/cashier-polar/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResolverParams struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Registry  *Registry
	Customers customerdomain.Repository
}

// Resolver locates the customer row a webhook payload belongs to. Metadata
// stamped at checkout time wins over the provider's customer_id, and a
// metadata match for an unlinked account provisions the customer row in the
// same transaction as the event's other writes.
type Resolver struct {
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	registry  *Registry
	customers customerdomain.Repository
}

func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{
		log:       p.Log.Named("billable.resolver"),
		genID:     p.GenID,
		clock:     p.Clock,
		registry:  p.Registry,
		customers: p.Customers,
	}
}

// Resolve runs against the provided db handle so callers can keep the
// lookup inside an open transaction.
func (r *Resolver) Resolve(ctx context.Context, db *gorm.DB, data map[string]any) (*customerdomain.Customer, error) {
	metadata := stringMap(data["metadata"])
	billableType := stringValue(metadata[MetadataBillableType])
	billableID := stringValue(metadata[MetadataBillableID])
	polarCustomerID := stringValue(data["customer_id"])

	if billableType != "" && billableID != "" {
		known, err := r.registry.Exists(ctx, billableType, billableID)
		if err != nil {
			return nil, err
		}
		if !known {
			r.log.Warn("metadata names an unknown account, ignoring",
				zap.String(MetadataBillableType, billableType),
				zap.String(MetadataBillableID, billableID),
			)
			billableType, billableID = "", ""
		}
	}

	if billableType != "" && billableID != "" {
		existing, err := r.customers.FindByBillable(ctx, db, billableType, billableID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if polarCustomerID != "" && existing.PolarID != polarCustomerID {
				r.log.Warn("billable already linked to another provider customer",
					zap.String("linked_polar_id", existing.PolarID),
					zap.String("customer_id", polarCustomerID),
				)
			}
			return existing, nil
		}

		if polarCustomerID != "" {
			now := r.clock.Now()
			customer := customerdomain.Customer{
				ID:           r.genID.Generate(),
				BillableType: billableType,
				BillableID:   billableID,
				PolarID:      polarCustomerID,
				Name:         customerName(data),
				Email:        customerEmail(data),
				Metadata:     datatypes.JSONMap{},
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := r.customers.Upsert(ctx, db, &customer); err != nil {
				return nil, err
			}
			stored, err := r.customers.FindByPolarID(ctx, db, polarCustomerID)
			if err != nil {
				return nil, err
			}
			if stored != nil {
				return stored, nil
			}
			return &customer, nil
		}
	}

	if polarCustomerID != "" {
		existing, err := r.customers.FindByPolarID(ctx, db, polarCustomerID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	r.log.Warn("no billable resolved",
		zap.String("customer_id", polarCustomerID),
		zap.String(MetadataBillableType, billableType),
		zap.String(MetadataBillableID, billableID),
	)
	return nil, ErrNoBillable
}

func customerName(data map[string]any) string {
	if name := stringValue(data["customer_name"]); name != "" {
		return name
	}
	return stringValue(stringMap(data["customer"])["name"])
}

func customerEmail(data map[string]any) string {
	if email := stringValue(data["customer_email"]); email != "" {
		return email
	}
	return stringValue(stringMap(data["customer"])["email"])
}

func stringMap(value any) map[string]any {
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func stringValue(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}
