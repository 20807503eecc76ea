package settings

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/pkg/config"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

// Setting keys the platform recognizes. Values are stored as text and
// parsed on read.
const (
	KeyHomeDeliveryFee   = "delivery_fee_home"
	KeyPickupDeliveryFee = "delivery_fee_pickup"
)

// Service reads operator tunable platform settings, falling back to the
// deploy-time configuration when a key has never been set.
type Service interface {
	DeliveryFee(ctx context.Context, method enums.DeliveryMethod) (float64, error)
	Set(ctx context.Context, key, value string, updatedBy string) error
}

// Repository persists platform settings.
type Repository interface {
	Find(ctx context.Context, key string) (*models.PlatformSetting, error)
	Upsert(ctx context.Context, setting *models.PlatformSetting) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Find(ctx context.Context, key string) (*models.PlatformSetting, error) {
	var setting models.PlatformSetting
	if err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repository) Upsert(ctx context.Context, setting *models.PlatformSetting) error {
	return r.db.WithContext(ctx).Save(setting).Error
}

type service struct {
	repo     Repository
	delivery config.DeliveryConfig
}

// NewService wires a settings service with the provided repository and
// configuration defaults.
func NewService(repo Repository, delivery config.DeliveryConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settings repository required")
	}
	return &service{repo: repo, delivery: delivery}, nil
}

func (s *service) DeliveryFee(ctx context.Context, method enums.DeliveryMethod) (float64, error) {
	var key string
	var fallback float64
	switch method {
	case enums.DeliveryMethodHome:
		key, fallback = KeyHomeDeliveryFee, s.delivery.HomeFee
	case enums.DeliveryMethodPickup:
		key, fallback = KeyPickupDeliveryFee, s.delivery.PickupFee
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery method").
			WithDetails(map[string]any{"delivery_method": string(method)})
	}

	setting, err := s.repo.Find(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fallback, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read platform setting")
	}

	fee, err := strconv.ParseFloat(setting.Value, 64)
	if err != nil || fee < 0 {
		// A corrupt override must not zero out delivery fees platform wide.
		return fallback, nil
	}
	return fee, nil
}

func (s *service) Set(ctx context.Context, key, value string, updatedBy string) error {
	if key != KeyHomeDeliveryFee && key != KeyPickupDeliveryFee {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown setting key").
			WithDetails(map[string]any{"key": key})
	}
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "setting value must be numeric")
	}
	setting := &models.PlatformSetting{Key: key, Value: value, UpdatedBy: &updatedBy}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save platform setting")
	}
	return nil
}
