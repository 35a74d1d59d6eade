package service

import (
	"context"
	"strings"

	"github.com/solvance/cashier-polar/internal/clock"
	"github.com/solvance/cashier-polar/internal/polar"
	"github.com/solvance/cashier-polar/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
	Polar *polar.Client
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
	polar *polar.Client
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("subscription.service"),
		clock: p.Clock,
		repo:  p.Repo,
		polar: p.Polar,
	}
}

func (s *Service) GetByPolarID(ctx context.Context, polarID string) (domain.Subscription, error) {
	subscription, err := s.find(ctx, polarID)
	if err != nil {
		return domain.Subscription{}, err
	}
	return *subscription, nil
}

func (s *Service) Detail(ctx context.Context, polarID string) (domain.SubscriptionDetail, error) {
	subscription, err := s.find(ctx, polarID)
	if err != nil {
		return domain.SubscriptionDetail{}, err
	}

	items, err := s.repo.ListItems(ctx, s.db, subscription.ID)
	if err != nil {
		return domain.SubscriptionDetail{}, err
	}
	return domain.SubscriptionDetail{Subscription: *subscription, Items: items}, nil
}

func (s *Service) Items(ctx context.Context, polarID string) ([]domain.SubscriptionItem, error) {
	subscription, err := s.find(ctx, polarID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListItems(ctx, s.db, subscription.ID)
}

func (s *Service) Cancel(ctx context.Context, polarID string) (domain.Subscription, error) {
	subscription, err := s.find(ctx, polarID)
	if err != nil {
		return domain.Subscription{}, err
	}

	if _, err := s.polar.CancelSubscription(ctx, subscription.PolarID); err != nil {
		return domain.Subscription{}, err
	}

	now := s.clock.Now()
	subscription.Status = domain.StatusCanceled
	subscription.CancelAtPeriodEnd = true
	if subscription.CurrentPeriodEnd != nil {
		subscription.EndsAt = subscription.CurrentPeriodEnd
	} else {
		subscription.EndsAt = &now
	}
	subscription.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, subscription); err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("subscription canceled",
		zap.String("polar_id", subscription.PolarID),
		zap.Timep("ends_at", subscription.EndsAt),
	)
	return *subscription, nil
}

func (s *Service) Resume(ctx context.Context, polarID string) (domain.Subscription, error) {
	subscription, err := s.find(ctx, polarID)
	if err != nil {
		return domain.Subscription{}, err
	}

	if !subscription.Canceled() {
		return domain.Subscription{}, domain.ErrNotCanceled
	}
	now := s.clock.Now()
	if !subscription.OnGracePeriod(now) {
		return domain.Subscription{}, domain.ErrGracePeriodExpired
	}

	if _, err := s.polar.ResumeSubscription(ctx, subscription.PolarID); err != nil {
		return domain.Subscription{}, err
	}

	subscription.Status = domain.StatusActive
	subscription.CancelAtPeriodEnd = false
	subscription.EndsAt = nil
	subscription.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, subscription); err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("subscription resumed", zap.String("polar_id", subscription.PolarID))
	return *subscription, nil
}

func (s *Service) Revoke(ctx context.Context, polarID string) (domain.Subscription, error) {
	subscription, err := s.find(ctx, polarID)
	if err != nil {
		return domain.Subscription{}, err
	}

	if _, err := s.polar.RevokeSubscription(ctx, subscription.PolarID); err != nil {
		return domain.Subscription{}, err
	}

	now := s.clock.Now()
	subscription.Status = domain.StatusRevoked
	subscription.EndsAt = &now
	subscription.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, subscription); err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("subscription revoked", zap.String("polar_id", subscription.PolarID))
	return *subscription, nil
}

func (s *Service) ChangePlan(ctx context.Context, polarID, productID string) (domain.Subscription, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Subscription{}, domain.ErrInvalidProduct
	}

	subscription, err := s.find(ctx, polarID)
	if err != nil {
		return domain.Subscription{}, err
	}

	// The provider confirms the change through subscription.updated, which
	// refreshes the item rows.
	if _, err := s.polar.ChangeSubscriptionProduct(ctx, subscription.PolarID, productID); err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("subscription plan change requested",
		zap.String("polar_id", subscription.PolarID),
		zap.String("product_id", productID),
	)
	return *subscription, nil
}

func (s *Service) find(ctx context.Context, polarID string) (*domain.Subscription, error) {
	polarID = strings.TrimSpace(polarID)
	if polarID == "" {
		return nil, domain.ErrInvalidSubscription
	}

	subscription, err := s.repo.FindByPolarID(ctx, s.db, polarID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return subscription, nil
}
