package pickupsites

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sokonihq/sokoni-backend/pkg/db/models"
)

// Repository persists pickup sites and their occupancy counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByID(ctx context.Context, id uuid.UUID) (*models.PickupSite, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PickupSite, error)
	ListActive(ctx context.Context) ([]models.PickupSite, error)

	// IncrementOccupancy reserves a slot with a guarded update and
	// reports how many rows matched. Zero means the site filled up
	// between the caller's pre-check and the write.
	IncrementOccupancy(ctx context.Context, id uuid.UUID) (int64, error)
	DecrementOccupancy(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a pickup site repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PickupSite, error) {
	var site models.PickupSite
	if err := r.db.WithContext(ctx).First(&site, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PickupSite, error) {
	var site models.PickupSite
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&site, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.PickupSite, error) {
	var sites []models.PickupSite
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&sites).Error
	if err != nil {
		return nil, err
	}
	return sites, nil
}

func (r *repository) IncrementOccupancy(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PickupSite{}).
		Where("id = ? AND current_orders < max_capacity", id).
		UpdateColumn("current_orders", gorm.Expr("current_orders + 1"))
	return res.RowsAffected, res.Error
}

func (r *repository) DecrementOccupancy(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PickupSite{}).
		Where("id = ? AND current_orders > 0", id).
		UpdateColumn("current_orders", gorm.Expr("current_orders - 1")).Error
}
