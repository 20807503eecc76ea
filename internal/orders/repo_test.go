package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  buyer_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  delivery_agent_id TEXT,
  site_manager_id TEXT,
  pickup_site_id TEXT,
  marketplace_type TEXT NOT NULL,
  delivery_method TEXT NOT NULL,
  delivery_address TEXT,
  referral_code TEXT,
  manual_order INTEGER NOT NULL DEFAULT 0,
  base_amount NUMERIC NOT NULL,
  platform_margin NUMERIC NOT NULL,
  delivery_fee NUMERIC NOT NULL DEFAULT 0,
  total_amount NUMERIC NOT NULL,
  seller_payout NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  rating INTEGER,
  assigned_at DATETIME,
  picked_up_at DATETIME,
  delivered_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL,
  line_total NUMERIC NOT NULL,
  created_at DATETIME
);`
	trackingEvents := `
CREATE TABLE IF NOT EXISTS order_tracking_events (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  notes TEXT,
  location TEXT,
  actor_user_id TEXT,
  created_at DATETIME
);`
	earnings := `
CREATE TABLE IF NOT EXISTS agent_earnings (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  recipient_user_id TEXT,
  role TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payable_at DATETIME,
  paid_at DATETIME,
  reversed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(trackingEvents).Error)
	require.NoError(t, db.Exec(earnings).Error)
	return db
}

func createOrder(t *testing.T, db *gorm.DB, buyerID uuid.UUID, number string, created time.Time, status enums.OrderStatus, payment enums.PaymentStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     number,
		BuyerID:         buyerID,
		SellerID:        uuid.New(),
		MarketplaceType: enums.MarketplaceTypeLocal,
		DeliveryMethod:  enums.DeliveryMethodPickup,
		BaseAmount:      10000,
		PlatformMargin:  1500,
		DeliveryFee:     1500,
		TotalAmount:     13000,
		SellerPayout:    10000,
		Status:          status,
		PaymentStatus:   payment,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryList_pagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	buyerID := uuid.New()
	now := time.Now().UTC()
	createOrder(t, db, buyerID, "SOK-1", now.Add(-2*time.Hour), enums.OrderStatusCompleted, enums.PaymentStatusPaid)
	createOrder(t, db, buyerID, "SOK-2", now.Add(-time.Hour), enums.OrderStatusPending, enums.PaymentStatusUnpaid)
	createOrder(t, db, buyerID, "SOK-3", now, enums.OrderStatusConfirmed, enums.PaymentStatusPaid)
	createOrder(t, db, uuid.New(), "SOK-OTHER", now, enums.OrderStatusPending, enums.PaymentStatusUnpaid)

	first, next, err := repo.List(context.Background(), ListQuery{BuyerID: buyerID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, next)
	assert.Equal(t, "SOK-3", first[0].OrderNumber)
	assert.Equal(t, "SOK-2", first[1].OrderNumber)

	second, last, err := repo.List(context.Background(), ListQuery{BuyerID: buyerID, Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Nil(t, last)
	assert.Equal(t, "SOK-1", second[0].OrderNumber)
}

func TestRepositoryList_statusFilter(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	buyerID := uuid.New()
	now := time.Now().UTC()
	createOrder(t, db, buyerID, "SOK-A", now.Add(-time.Minute), enums.OrderStatusPending, enums.PaymentStatusUnpaid)
	createOrder(t, db, buyerID, "SOK-B", now, enums.OrderStatusCompleted, enums.PaymentStatusPaid)

	status := enums.OrderStatusPending
	rows, next, err := repo.List(context.Background(), ListQuery{BuyerID: buyerID, Status: &status, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, next)
	assert.Equal(t, "SOK-A", rows[0].OrderNumber)
}

func TestRepositoryFindByID_preloadsItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := createOrder(t, db, uuid.New(), "SOK-ITEMS", time.Now().UTC(), enums.OrderStatusPending, enums.PaymentStatusUnpaid)
	item := &models.OrderItem{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: uuid.New(),
		Name:      "Maize Flour 5kg",
		UnitPrice: 5000,
		Quantity:  2,
		LineTotal: 10000,
	}
	require.NoError(t, db.Create(item).Error)

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Maize Flour 5kg", found.Items[0].Name)
	assert.Equal(t, 2, found.Items[0].Quantity)
}

func TestRepositoryEarningsLifecycle(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := createOrder(t, db, uuid.New(), "SOK-EARN", time.Now().UTC(), enums.OrderStatusConfirmed, enums.PaymentStatusPaid)
	agentID := uuid.New()
	require.NoError(t, repo.CreateEarnings(context.Background(), []models.AgentEarning{
		{ID: uuid.New(), OrderID: order.ID, Role: enums.EarningRolePickupDeliveryAgent, Amount: 500, Status: enums.EarningStatusPending},
		{ID: uuid.New(), OrderID: order.ID, Role: enums.EarningRolePlatform, Amount: 1000, Status: enums.EarningStatusPending},
	}))

	require.NoError(t, repo.SetEarningRecipient(context.Background(), order.ID, enums.EarningRolePickupDeliveryAgent, agentID))

	now := time.Now().UTC()
	require.NoError(t, repo.UpdateEarningStatus(context.Background(), order.ID,
		enums.EarningStatusPending, enums.EarningStatusPayable,
		map[string]any{"payable_at": now},
	))

	earnings, err := repo.ListEarnings(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, earnings, 2)
	for _, earning := range earnings {
		assert.Equal(t, enums.EarningStatusPayable, earning.Status)
		require.NotNil(t, earning.PayableAt)
		switch earning.Role {
		case enums.EarningRolePickupDeliveryAgent:
			require.NotNil(t, earning.RecipientUserID)
			assert.Equal(t, agentID, *earning.RecipientUserID)
		case enums.EarningRolePlatform:
			assert.Nil(t, earning.RecipientUserID)
		}
	}
}

func TestRepositoryFindStalePending(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	buyerID := uuid.New()
	now := time.Now().UTC()
	stale := createOrder(t, db, buyerID, "SOK-STALE", now.Add(-8*24*time.Hour), enums.OrderStatusPending, enums.PaymentStatusUnpaid)
	createOrder(t, db, buyerID, "SOK-FRESH", now.Add(-time.Hour), enums.OrderStatusPending, enums.PaymentStatusUnpaid)
	createOrder(t, db, buyerID, "SOK-PAID", now.Add(-8*24*time.Hour), enums.OrderStatusConfirmed, enums.PaymentStatusPaid)

	cutoff := now.Add(-7 * 24 * time.Hour)
	found, err := repo.FindStalePending(context.Background(), cutoff, 50)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestRepositoryAppendTrackingEvent(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := createOrder(t, db, uuid.New(), "SOK-TRACK", time.Now().UTC(), enums.OrderStatusConfirmed, enums.PaymentStatusPaid)
	actorID := uuid.New()
	notes := "packed and ready"
	require.NoError(t, repo.AppendTrackingEvent(context.Background(), &models.OrderTrackingEvent{
		ID:          uuid.New(),
		OrderID:     order.ID,
		Status:      enums.OrderStatusReadyForPickup,
		Notes:       &notes,
		ActorUserID: &actorID,
	}))

	var events []models.OrderTrackingEvent
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.OrderStatusReadyForPickup, events[0].Status)
}
