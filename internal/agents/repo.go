package agents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// Repository persists delivery agent records and their load counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Agent, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	FindAvailable(ctx context.Context, agentType enums.AgentType) (*models.Agent, error)

	IncrementLoad(ctx context.Context, id uuid.UUID) error
	DecrementLoad(ctx context.Context, id uuid.UUID) error
	RecordDelivery(ctx context.Context, id uuid.UUID, earned float64) error
	RecordRating(ctx context.Context, id uuid.UUID, rating int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an agents repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.WithContext(ctx).First(&agent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.WithContext(ctx).First(&agent, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&agent, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// FindAvailable picks the least loaded available agent of the given type,
// locking the row so concurrent assignments cannot double-book it.
func (r *repository) FindAvailable(ctx context.Context, agentType enums.AgentType) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: "SKIP LOCKED"}).
		Where("type = ? AND status = ? AND current_orders < max_orders", agentType, enums.AgentStatusAvailable).
		Order("current_orders ASC, delivered_count DESC").
		First(&agent).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) IncrementLoad(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ? AND current_orders < max_orders", id).
		UpdateColumn("current_orders", gorm.Expr("current_orders + 1")).Error
}

func (r *repository) DecrementLoad(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ? AND current_orders > 0", id).
		UpdateColumn("current_orders", gorm.Expr("current_orders - 1")).Error
}

func (r *repository) RecordDelivery(ctx context.Context, id uuid.UUID, earned float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"delivered_count": gorm.Expr("delivered_count + 1"),
			"total_earnings":  gorm.Expr("total_earnings + ?", earned),
		}).Error
}

func (r *repository) RecordRating(ctx context.Context, id uuid.UUID, rating int) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"rating_sum":   gorm.Expr("rating_sum + ?", rating),
			"rating_count": gorm.Expr("rating_count + 1"),
		}).Error
}
