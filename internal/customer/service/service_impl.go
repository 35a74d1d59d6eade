package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/solvance/cashier-polar/internal/clock"
	"github.com/solvance/cashier-polar/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertCustomerRequest) (domain.Customer, error) {
	polarID := strings.TrimSpace(req.PolarID)
	if polarID == "" {
		return domain.Customer{}, domain.ErrInvalidPolarID
	}
	billableType := strings.TrimSpace(req.BillableType)
	billableID := strings.TrimSpace(req.BillableID)
	if billableType == "" || billableID == "" {
		return domain.Customer{}, domain.ErrInvalidBillable
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:           s.genID.Generate(),
		BillableType: billableType,
		BillableID:   billableID,
		PolarID:      polarID,
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Metadata:     toJSONMap(req.Metadata),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Upsert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	// Re-read so callers see the surviving row when the upsert hit an
	// existing polar_id.
	stored, err := s.repo.FindByPolarID(ctx, s.db, polarID)
	if err != nil {
		return domain.Customer{}, err
	}
	if stored == nil {
		return customer, nil
	}
	return *stored, nil
}

func (s *Service) GetByPolarID(ctx context.Context, polarID string) (domain.Customer, error) {
	polarID = strings.TrimSpace(polarID)
	if polarID == "" {
		return domain.Customer{}, domain.ErrInvalidPolarID
	}

	item, err := s.repo.FindByPolarID(ctx, s.db, polarID)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByBillable(ctx context.Context, billableType, billableID string) (domain.Customer, error) {
	billableType = strings.TrimSpace(billableType)
	billableID = strings.TrimSpace(billableID)
	if billableType == "" || billableID == "" {
		return domain.Customer{}, domain.ErrInvalidBillable
	}

	item, err := s.repo.FindByBillable(ctx, s.db, billableType, billableID)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func toJSONMap(value map[string]any) datatypes.JSONMap {
	if len(value) == 0 {
		return datatypes.JSONMap{}
	}
	out := datatypes.JSONMap{}
	for k, v := range value {
		out[k] = v
	}
	return out
}
