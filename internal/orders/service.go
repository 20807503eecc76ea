package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/internal/agents"
	"github.com/sokonihq/sokoni-backend/internal/audit"
	"github.com/sokonihq/sokoni-backend/internal/cart"
	"github.com/sokonihq/sokoni-backend/internal/commission"
	"github.com/sokonihq/sokoni-backend/internal/escrow"
	"github.com/sokonihq/sokoni-backend/internal/notifications"
	"github.com/sokonihq/sokoni-backend/internal/pickupsites"
	"github.com/sokonihq/sokoni-backend/internal/products"
	"github.com/sokonihq/sokoni-backend/internal/referrals"
	"github.com/sokonihq/sokoni-backend/internal/users"
	"github.com/sokonihq/sokoni-backend/internal/wallet"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/logger"
	"github.com/sokonihq/sokoni-backend/pkg/metrics"
	"github.com/sokonihq/sokoni-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the order lifecycle: creation, payment decision, status
// tracking, delivery confirmation, cancellation and issue reporting.
// Every financially meaningful mutation runs in one database transaction.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.UserRole) (*models.Order, error)
	List(ctx context.Context, input ListInput) ([]models.Order, *pagination.Cursor, error)
	UpdateTrackingStatus(ctx context.Context, orderID uuid.UUID, input TrackingInput) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, orderID uuid.UUID, input ConfirmDeliveryInput) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, input CancelInput) (*models.Order, error)
	ReportIssue(ctx context.Context, orderID uuid.UUID, input ReportIssueInput) (*models.Order, error)
	DecidePayment(ctx context.Context, orderID uuid.UUID, input PaymentDecisionInput) (*models.Order, error)
	ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// ServiceParams bundles the service's many collaborators.
type ServiceParams struct {
	Repo      Repository
	Products  products.Repository
	Carts     cart.Repository
	Sites     pickupsites.Repository
	Users     users.Repository
	Agents    agents.Service
	Referrals referrals.Service
	Pricing   *commission.PricingService
	Escrow    escrow.Service
	Wallets   wallet.Service
	Notifier  notifications.Service
	Auditor   audit.Recorder
	Tx        txRunner
	Log       *logger.Logger

	// Metrics is optional. A nil value disables instrumentation.
	Metrics *metrics.OrderMetrics
}

type service struct {
	ServiceParams
	now func() time.Time
}

// NewService validates the wiring and returns the order service.
func NewService(params ServiceParams) (Service, error) {
	required := map[string]bool{
		"orders repository":   params.Repo == nil,
		"products repository": params.Products == nil,
		"cart repository":     params.Carts == nil,
		"sites repository":    params.Sites == nil,
		"users repository":    params.Users == nil,
		"agents service":      params.Agents == nil,
		"referrals service":   params.Referrals == nil,
		"pricing service":     params.Pricing == nil,
		"escrow service":      params.Escrow == nil,
		"wallet service":      params.Wallets == nil,
		"notifier":            params.Notifier == nil,
		"audit recorder":      params.Auditor == nil,
		"transaction runner":  params.Tx == nil,
		"logger":              params.Log == nil,
	}
	for name, missing := range required {
		if missing {
			return nil, fmt.Errorf("orders service: %s required", name)
		}
	}
	return &service{ServiceParams: params, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if !input.ActorRole.CanCreateOrders() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers and site managers can create orders")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery method")
	}
	if input.DeliveryMethod == enums.DeliveryMethodHome &&
		(input.DeliveryAddress == nil || strings.TrimSpace(*input.DeliveryAddress) == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address required for home delivery")
	}
	if input.DeliveryMethod == enums.DeliveryMethodPickup && input.PickupSiteID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup site required for pickup delivery")
	}
	if input.ManualOrder && input.ActorRole != enums.UserRoleSiteManager {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only site managers can create manual orders")
	}

	buyer, err := s.Users.FindByID(ctx, input.ActorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "buyer account not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}

	// The catalog treats the whole order as single-seller, keyed off the
	// first line's product. Multi-seller carts are out of scope.
	first, err := s.Products.FindByID(ctx, input.Items[0].ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"product_id": input.Items[0].ProductID})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.ReferralCode != nil && *input.ReferralCode != "" {
		// Validation only; crediting is deferred to payment approval so
		// commissions never accrue on unpaid orders.
		if _, err := s.Referrals.Resolve(ctx, *input.ReferralCode, input.ActorID); err != nil {
			return nil, err
		}
	}

	if input.PickupSiteID != nil {
		site, err := s.Sites.FindByID(ctx, *input.PickupSiteID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pickup site not found")
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup site")
		}
		if !site.Active {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup site is not active")
		}
		if !site.HasCapacity() {
			return nil, pkgerrors.New(pkgerrors.CodeCapacity, "pickup site is at capacity")
		}
	}

	items, base, err := s.buildLines(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	quote, err := s.Pricing.CalculateBuyerPrice(ctx, base, input.DeliveryMethod, first.MarketplaceType, input.ManualOrder)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber:     newOrderNumber(s.now()),
		BuyerID:         input.ActorID,
		SellerID:        first.SellerID,
		PickupSiteID:    input.PickupSiteID,
		MarketplaceType: first.MarketplaceType,
		DeliveryMethod:  input.DeliveryMethod,
		DeliveryAddress: input.DeliveryAddress,
		ReferralCode:    input.ReferralCode,
		ManualOrder:     input.ManualOrder,
		BaseAmount:      base,
		PlatformMargin:  quote.PlatformMargin,
		DeliveryFee:     quote.DeliveryFee,
		TotalAmount:     quote.FinalPrice,
		SellerPayout:    quote.SellerPayout,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusAwaitingApproval,
		Items:           items,
	}
	if input.ManualOrder {
		actorID := input.ActorID
		order.SiteManagerID = &actorID
	}

	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		prods := s.Products.WithTx(tx)

		for _, line := range input.Items {
			affected, err := prods.ReserveStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "product unavailable or out of stock").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
		}

		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if input.PickupSiteID != nil {
			affected, err := s.Sites.WithTx(tx).IncrementOccupancy(ctx, *input.PickupSiteID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve pickup slot")
			}
			// The pre-check ran without a lock; the guarded update is
			// what actually enforces capacity under concurrency.
			if affected == 0 {
				return pkgerrors.New(pkgerrors.CodeCapacity, "pickup site is at capacity")
			}
		}

		if err := repo.AppendTrackingEvent(ctx, &models.OrderTrackingEvent{
			OrderID:     order.ID,
			Status:      enums.OrderStatusPending,
			ActorUserID: &input.ActorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
		}

		if !input.ManualOrder {
			if err := s.Carts.WithTx(tx).Clear(ctx, input.ActorID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
			}
		}

		// Post-insert ownership check. A mismatch here means something
		// rewrote the row mid-flight; remove it rather than leave a
		// misattributed order behind.
		persisted, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if persisted.BuyerID != input.ActorID {
			if delErr := repo.Delete(ctx, order.ID); delErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, delErr, "remove misattributed order")
			}
			return pkgerrors.New(pkgerrors.CodeSecurity, "order ownership mismatch").
				WithDetails(map[string]any{"order_id": order.ID})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	email := notifications.OrderEmail{
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
		BuyerName:   buyer.FullName,
		BuyerEmail:  buyer.Email,
	}
	go func() {
		bg := context.WithoutCancel(ctx)
		s.Notifier.OrderConfirmation(bg, email)
		s.Notifier.AdminOrderAlert(bg, email)
	}()
	s.Metrics.IncCreated()

	return &CreateResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		BuyerID:     buyer.ID,
		BuyerEmail:  buyer.Email,
	}, nil
}

// buildLines resolves each requested product into an order item and sums
// the base amount with exact 2 dp arithmetic.
func (s *service) buildLines(ctx context.Context, lines []LineInput) ([]models.OrderItem, float64, error) {
	items := make([]models.OrderItem, 0, len(lines))
	base := decimal.Zero
	for _, line := range lines {
		product, err := s.Products.FindByID(ctx, line.ProductID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if err != nil {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.Active {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product is not available").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}

		lineTotal := decimal.NewFromFloat(product.UnitPrice).
			Mul(decimal.NewFromInt(int64(line.Quantity))).
			Round(2)
		base = base.Add(lineTotal)
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: lineTotal.InexactFloat64(),
		})
	}
	return items, base.Round(2).InexactFloat64(), nil
}

func (s *service) Get(ctx context.Context, orderID, actorID uuid.UUID, actorRole enums.UserRole) (*models.Order, error) {
	order, err := s.Repo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !canViewOrder(order, actorID, actorRole) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to view this order")
	}
	return order, nil
}

func canViewOrder(order *models.Order, actorID uuid.UUID, role enums.UserRole) bool {
	switch role {
	case enums.UserRoleAdmin:
		return true
	case enums.UserRoleSeller:
		return order.SellerID == actorID
	case enums.UserRoleSiteManager:
		return order.SiteManagerID != nil && *order.SiteManagerID == actorID
	default:
		return order.BuyerID == actorID
	}
}

// authorizeTracking restricts lifecycle updates to actors attached to
// the order: its seller, the manager of its pickup site, the assigned
// delivery agent, or an admin.
func (s *service) authorizeTracking(ctx context.Context, order *models.Order, actorID uuid.UUID, role enums.UserRole) error {
	switch role {
	case enums.UserRoleAdmin:
		return nil
	case enums.UserRoleSeller:
		if order.SellerID == actorID {
			return nil
		}
	case enums.UserRoleSiteManager:
		if order.SiteManagerID != nil && *order.SiteManagerID == actorID {
			return nil
		}
	case enums.UserRoleAgent:
		if order.DeliveryAgentID == nil {
			break
		}
		agent, err := s.Agents.Lookup(ctx, *order.DeliveryAgentID)
		if err != nil {
			return err
		}
		if agent.UserID == actorID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to update this order")
}

func (s *service) List(ctx context.Context, input ListInput) ([]models.Order, *pagination.Cursor, error) {
	if input.BuyerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}
	rows, next, err := s.Repo.List(ctx, ListQuery{
		BuyerID: input.BuyerID,
		Status:  input.Status,
		Limit:   input.Limit,
		Cursor:  cursor,
	})
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, next, nil
}

func (s *service) UpdateTrackingStatus(ctx context.Context, orderID uuid.UUID, input TrackingInput) (*models.Order, error) {
	if input.ActorRole == enums.UserRoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyers use delivery confirmation, cancellation or issue reporting")
	}
	next, err := enums.ParseOrderStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": input.Status})
	}

	var updated *models.Order
	err = s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := s.authorizeTracking(ctx, order, input.ActorID, input.ActorRole); err != nil {
			return err
		}
		if !CanTransition(order.Status, next) {
			return invalidTransition(order.Status, next)
		}

		if next == enums.OrderStatusCancelled {
			if err := s.applyCancel(ctx, tx, order, input.ActorID, input.Notes); err != nil {
				return err
			}
			updated = order
			return nil
		}

		now := s.now()
		updates := map[string]any{"status": next}

		switch next {
		case enums.OrderStatusConfirmed:
			if order.PaymentStatus != enums.PaymentStatusPaid {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be confirmed before payment approval").
					WithDetails(map[string]any{
						"current_status":   order.Status,
						"requested_status": next,
						"payment_status":   order.PaymentStatus,
					})
			}
		case enums.OrderStatusOutForDelivery:
			if order.DeliveryAgentID == nil {
				agentType := enums.AgentTypeFastDelivery
				if order.MarketplaceType == enums.MarketplaceTypePhysical {
					agentType = enums.AgentTypePickupDelivery
				}
				agent, err := s.Agents.Assign(ctx, tx, agentType)
				if err != nil {
					return err
				}
				updates["delivery_agent_id"] = agent.ID
				updates["assigned_at"] = now
				role := enums.EarningRoleFastDeliveryAgent
				if agentType == enums.AgentTypePickupDelivery {
					role = enums.EarningRolePickupDeliveryAgent
				}
				if err := repo.SetEarningRecipient(ctx, order.ID, role, agent.UserID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach agent to earnings")
				}
				agentID := agent.ID
				order.DeliveryAgentID = &agentID
			}
			updates["picked_up_at"] = now
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
			if err := s.onDelivered(ctx, tx, order, now); err != nil {
				return err
			}
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := repo.AppendTrackingEvent(ctx, &models.OrderTrackingEvent{
			OrderID:     order.ID,
			Status:      next,
			Notes:       input.Notes,
			Location:    input.Location,
			ActorUserID: &input.ActorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
		}

		order.Status = next
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.IncTransition(string(updated.Status))
	return updated, nil
}

// onDelivered runs the delivered side effects: earnings become payable,
// the agent's capacity slot opens up and its stats are bumped, and a
// pickup slot is freed.
func (s *service) onDelivered(ctx context.Context, tx *gorm.DB, order *models.Order, now time.Time) error {
	repo := s.Repo.WithTx(tx)

	if err := repo.UpdateEarningStatus(ctx, order.ID,
		enums.EarningStatusPending, enums.EarningStatusPayable,
		map[string]any{"payable_at": now},
	); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark earnings payable")
	}

	if order.DeliveryAgentID != nil {
		earned, err := s.agentShare(ctx, repo, order.ID)
		if err != nil {
			return err
		}
		if err := s.Agents.ReleaseDelivered(ctx, tx, *order.DeliveryAgentID, earned); err != nil {
			return err
		}
	}
	if order.PickupSiteID != nil {
		if err := s.Sites.WithTx(tx).DecrementOccupancy(ctx, *order.PickupSiteID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "free pickup slot")
		}
	}
	return nil
}

func (s *service) agentShare(ctx context.Context, repo Repository, orderID uuid.UUID) (float64, error) {
	earnings, err := repo.ListEarnings(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list earnings")
	}
	for _, earning := range earnings {
		if earning.Role == enums.EarningRoleFastDeliveryAgent || earning.Role == enums.EarningRolePickupDeliveryAgent {
			return earning.Amount, nil
		}
	}
	return 0, nil
}

func (s *service) ConfirmDelivery(ctx context.Context, orderID uuid.UUID, input ConfirmDeliveryInput) (*models.Order, error) {
	var updated *models.Order
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm delivery")
		}
		if order.Status != enums.OrderStatusDelivered {
			return invalidTransition(order.Status, enums.OrderStatusCompleted)
		}

		now := s.now()
		updates := map[string]any{
			"status":       enums.OrderStatusCompleted,
			"completed_at": now,
		}
		var rating *int
		if input.Rating != nil {
			clamped := clampRating(*input.Rating)
			rating = &clamped
			updates["rating"] = clamped
		}

		if err := s.payOutEarnings(ctx, tx, repo, order, now); err != nil {
			return err
		}
		if rating != nil && order.DeliveryAgentID != nil {
			if err := s.Agents.Rate(ctx, tx, *order.DeliveryAgentID, *rating); err != nil {
				return err
			}
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
		}
		if err := repo.AppendTrackingEvent(ctx, &models.OrderTrackingEvent{
			OrderID:     order.ID,
			Status:      enums.OrderStatusCompleted,
			Notes:       input.Feedback,
			ActorUserID: &input.ActorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
		}

		order.Status = enums.OrderStatusCompleted
		order.CompletedAt = &now
		order.Rating = rating
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.IncTransition(string(enums.OrderStatusCompleted))
	return updated, nil
}

// payOutEarnings marks payable shares paid and credits each recipient's
// wallet. The platform share has no recipient and stays ledger-only.
func (s *service) payOutEarnings(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, now time.Time) error {
	earnings, err := repo.ListEarnings(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list earnings")
	}
	for _, earning := range earnings {
		if earning.Status != enums.EarningStatusPayable || earning.RecipientUserID == nil {
			continue
		}
		creditType := enums.WalletTransactionTypeCommission
		if earning.Role == enums.EarningRoleReferralBuyer {
			creditType = enums.WalletTransactionTypeReferralPayout
		}
		description := fmt.Sprintf("%s share for order %s", earning.Role, order.OrderNumber)
		refID := earning.ID
		if _, err := s.Wallets.Credit(ctx, tx, wallet.CreditInput{
			UserID:      *earning.RecipientUserID,
			Amount:      earning.Amount,
			Type:        creditType,
			ReferenceID: &refID,
			Description: &description,
		}); err != nil {
			return err
		}
	}
	if err := repo.UpdateEarningStatus(ctx, order.ID,
		enums.EarningStatusPayable, enums.EarningStatusPaid,
		map[string]any{"paid_at": now},
	); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark earnings paid")
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, input CancelInput) (*models.Order, error) {
	var updated *models.Order
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if input.ActorRole != enums.UserRoleAdmin && order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer or an admin can cancel this order")
		}
		if !CanCancel(order.Status) {
			return invalidTransition(order.Status, enums.OrderStatusCancelled)
		}
		if err := s.applyCancel(ctx, tx, order, input.ActorID, input.Reason); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.IncTransition(string(enums.OrderStatusCancelled))
	return updated, nil
}

// applyCancel performs the cancellation side effects. Pending earnings
// are reversed; payable or paid shares from an already-delivered order
// are left alone and resolved through escrow refund by an admin.
func (s *service) applyCancel(ctx context.Context, tx *gorm.DB, order *models.Order, actorID uuid.UUID, reason *string) error {
	repo := s.Repo.WithTx(tx)
	now := s.now()

	if err := repo.Update(ctx, order.ID, map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	if err := repo.UpdateEarningStatus(ctx, order.ID,
		enums.EarningStatusPending, enums.EarningStatusReversed,
		map[string]any{"reversed_at": now},
	); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse earnings")
	}

	items, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order items")
	}
	prods := s.Products.WithTx(tx)
	for _, item := range items.Items {
		if err := prods.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
		}
	}

	if order.PickupSiteID != nil {
		if err := s.Sites.WithTx(tx).DecrementOccupancy(ctx, *order.PickupSiteID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "free pickup slot")
		}
	}
	if order.DeliveryAgentID != nil {
		if err := s.Agents.ReleaseCancelled(ctx, tx, *order.DeliveryAgentID); err != nil {
			return err
		}
	}

	if err := repo.AppendTrackingEvent(ctx, &models.OrderTrackingEvent{
		OrderID:     order.ID,
		Status:      enums.OrderStatusCancelled,
		Notes:       reason,
		ActorUserID: &actorID,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
	}

	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	return nil
}

func (s *service) ReportIssue(ctx context.Context, orderID uuid.UUID, input ReportIssueInput) (*models.Order, error) {
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "issue description required")
	}

	var updated *models.Order
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.BuyerID != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can report a delivery issue")
		}
		if !CanReportIssue(order.Status) {
			return invalidTransition(order.Status, enums.OrderStatusDeliveryIssue)
		}

		if err := repo.Update(ctx, order.ID, map[string]any{
			"status": enums.OrderStatusDeliveryIssue,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag delivery issue")
		}
		description := input.Description
		if err := repo.AppendTrackingEvent(ctx, &models.OrderTrackingEvent{
			OrderID:     order.ID,
			Status:      enums.OrderStatusDeliveryIssue,
			Notes:       &description,
			ActorUserID: &input.ActorID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
		}

		order.Status = enums.OrderStatusDeliveryIssue
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.IncTransition(string(enums.OrderStatusDeliveryIssue))
	return updated, nil
}

func (s *service) DecidePayment(ctx context.Context, orderID uuid.UUID, input PaymentDecisionInput) (*models.Order, error) {
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "admin actor id missing for payment decision")
	}

	var updated *models.Order
	err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.PaymentStatus != enums.PaymentStatusAwaitingApproval {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment is %s, only awaiting_approval payments can be decided", order.PaymentStatus)).
				WithDetails(map[string]any{"payment_status": order.PaymentStatus})
		}

		if !input.Approve {
			if err := repo.Update(ctx, order.ID, map[string]any{
				"payment_status": enums.PaymentStatusRejected,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject payment")
			}
			order.PaymentStatus = enums.PaymentStatusRejected
			updated = order
			return s.Auditor.Record(ctx, tx, audit.Entry{
				ActorUserID: input.AdminID,
				Action:      "payment_rejected",
				EntityType:  "order",
				EntityID:    order.ID,
				Detail:      map[string]any{"order_number": order.OrderNumber, "notes": input.Notes},
			})
		}

		if order.Status != enums.OrderStatusPending {
			return invalidTransition(order.Status, enums.OrderStatusConfirmed)
		}

		if _, err := s.Escrow.Hold(ctx, tx, escrow.HoldInput{
			OrderID:  order.ID,
			BuyerID:  order.BuyerID,
			SellerID: order.SellerID,
			Amount:   order.TotalAmount,
		}); err != nil {
			return err
		}

		earnings, err := s.buildEarnings(ctx, order)
		if err != nil {
			return err
		}
		if err := repo.CreateEarnings(ctx, earnings); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record earnings")
		}

		now := s.now()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusPaid,
			"status":         enums.OrderStatusConfirmed,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve payment")
		}
		if err := repo.AppendTrackingEvent(ctx, &models.OrderTrackingEvent{
			OrderID:     order.ID,
			Status:      enums.OrderStatusConfirmed,
			Notes:       input.Notes,
			ActorUserID: &input.AdminID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
		}
		if err := s.Auditor.Record(ctx, tx, audit.Entry{
			ActorUserID: input.AdminID,
			Action:      "payment_approved",
			EntityType:  "order",
			EntityID:    order.ID,
			Detail: map[string]any{
				"order_number": order.OrderNumber,
				"amount":       order.TotalAmount,
				"approved_at":  now,
			},
		}); err != nil {
			return err
		}

		order.PaymentStatus = enums.PaymentStatusPaid
		order.Status = enums.OrderStatusConfirmed
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated.Status == enums.OrderStatusConfirmed {
		s.Metrics.IncTransition(string(enums.OrderStatusConfirmed))
	}
	return updated, nil
}

// buildEarnings turns the commission breakdown into per-role earnings
// rows. Agent shares start without a recipient; the recipient is filled
// in when an agent is assigned. The platform share is recorded with a
// nil recipient so the rows always sum to the platform margin.
func (s *service) buildEarnings(ctx context.Context, order *models.Order) ([]models.AgentEarning, error) {
	hasReferral := order.ReferralCode != nil && *order.ReferralCode != ""
	var referrerID *uuid.UUID
	if hasReferral {
		referrer, err := s.Referrals.Resolve(ctx, *order.ReferralCode, order.BuyerID)
		if err != nil {
			// The code was valid at checkout; if it has since been
			// deactivated the share reverts to the platform.
			s.Log.Warn(s.Log.WithOrderID(ctx, order.ID.String()),
				"referral code no longer active, share reverts to platform")
			hasReferral = false
		} else {
			id := referrer.ID
			referrerID = &id
		}
	}

	breakdown, err := commission.Calculate(commission.Input{
		PurchasingPrice:  order.BaseAmount,
		OrderType:        order.MarketplaceType,
		HasReferral:      hasReferral,
		HasPSM:           order.SiteManagerID != nil,
		HasDeliveryAgent: true,
	})
	if err != nil {
		return nil, err
	}

	var earnings []models.AgentEarning
	appendShare := func(role enums.EarningRole, amount float64, recipient *uuid.UUID) {
		if amount <= 0 {
			return
		}
		earnings = append(earnings, models.AgentEarning{
			OrderID:         order.ID,
			RecipientUserID: recipient,
			Role:            role,
			Amount:          amount,
			Status:          enums.EarningStatusPending,
		})
	}

	appendShare(enums.EarningRoleFastDeliveryAgent, breakdown.FastDeliveryAgent, nil)
	appendShare(enums.EarningRolePickupDeliveryAgent, breakdown.PickupDeliveryAgent, nil)
	appendShare(enums.EarningRoleSiteManager, breakdown.SiteManager, order.SiteManagerID)
	appendShare(enums.EarningRoleReferralBuyer, breakdown.ReferralBuyer, referrerID)
	appendShare(enums.EarningRolePlatform, breakdown.Platform, nil)
	return earnings, nil
}

// ExpireStalePending cancels orders that sat pending and unpaid longer
// than olderThan. Used by the cron worker; returns how many orders were
// expired.
func (s *service) ExpireStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := s.now().Add(-olderThan)
	stale, err := s.Repo.FindStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stale orders")
	}

	expired := 0
	for _, candidate := range stale {
		err := s.Tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.Repo.WithTx(tx)
			order, err := repo.FindByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			// Re-check under lock; the order may have been paid or
			// cancelled since the scan.
			if order.Status != enums.OrderStatusPending || order.PaymentStatus == enums.PaymentStatusPaid {
				return nil
			}
			notes := "expired: no payment received"
			if err := s.applyCancel(ctx, tx, order, order.BuyerID, &notes); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			s.Log.Error(s.Log.WithOrderID(ctx, candidate.ID.String()), "expire pending order", err)
		}
	}
	return expired, nil
}

func clampRating(rating int) int {
	if rating < 1 {
		return 1
	}
	if rating > 5 {
		return 5
	}
	return rating
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("SOK-%s-%s", now.UTC().Format("20060102150405"), suffix)
}
