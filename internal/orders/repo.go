package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
)

// ListQuery filters a buyer's order history page.
type ListQuery struct {
	BuyerID uuid.UUID
	Status  *enums.OrderStatus
	Limit   int
	Cursor  *pagination.Cursor
}

// Repository persists orders, their items, tracking events and the
// per-order commission earnings rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, query ListQuery) ([]models.Order, *pagination.Cursor, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error

	AppendTrackingEvent(ctx context.Context, event *models.OrderTrackingEvent) error

	CreateEarnings(ctx context.Context, earnings []models.AgentEarning) error
	ListEarnings(ctx context.Context, orderID uuid.UUID) ([]models.AgentEarning, error)
	UpdateEarningStatus(ctx context.Context, orderID uuid.UUID, from, to enums.EarningStatus, stamp map[string]any) error
	SetEarningRecipient(ctx context.Context, orderID uuid.UUID, role enums.EarningRole, recipientUserID uuid.UUID) error

	FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Delete exists only for the compensating path when a just-created order
// fails its ownership check. Settled orders are never deleted.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Order{}).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(query.Limit)

	q := r.db.WithContext(ctx).
		Where("buyer_id = ?", query.BuyerID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var rows []models.Order
	if err := q.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) AppendTrackingEvent(ctx context.Context, event *models.OrderTrackingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) CreateEarnings(ctx context.Context, earnings []models.AgentEarning) error {
	if len(earnings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&earnings).Error
}

func (r *repository) ListEarnings(ctx context.Context, orderID uuid.UUID) ([]models.AgentEarning, error) {
	var earnings []models.AgentEarning
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&earnings).Error
	if err != nil {
		return nil, err
	}
	return earnings, nil
}

// UpdateEarningStatus moves all of an order's earnings rows in status
// `from` to status `to`, applying any extra timestamp columns in stamp.
func (r *repository) UpdateEarningStatus(ctx context.Context, orderID uuid.UUID, from, to enums.EarningStatus, stamp map[string]any) error {
	updates := map[string]any{"status": to}
	for column, value := range stamp {
		updates[column] = value
	}
	return r.db.WithContext(ctx).
		Model(&models.AgentEarning{}).
		Where("order_id = ? AND status = ?", orderID, from).
		Updates(updates).Error
}

// SetEarningRecipient backfills the recipient on an earnings row once
// the matching agent is known.
func (r *repository) SetEarningRecipient(ctx context.Context, orderID uuid.UUID, role enums.EarningRole, recipientUserID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.AgentEarning{}).
		Where("order_id = ? AND role = ? AND recipient_user_id IS NULL", orderID, role).
		UpdateColumn("recipient_user_id", recipientUserID).Error
}

func (r *repository) FindStalePending(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status IN ? AND created_at < ?",
			enums.OrderStatusPending,
			[]enums.PaymentStatus{enums.PaymentStatusUnpaid, enums.PaymentStatusAwaitingApproval},
			before,
		).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
