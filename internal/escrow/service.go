package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/internal/audit"
	"github.com/sokonihq/sokoni-backend/internal/wallet"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
	"github.com/sokonihq/sokoni-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the escrow hold/release/refund lifecycle. Release and
// refund are terminal and mutate the wallet ledger, the escrow row and
// the audit log in one database transaction.
type Service interface {
	Hold(ctx context.Context, tx *gorm.DB, input HoldInput) (*models.EscrowTransaction, error)
	Release(ctx context.Context, input ResolveInput) (*models.EscrowTransaction, error)
	Refund(ctx context.Context, input ResolveInput) (*models.EscrowTransaction, error)
	List(ctx context.Context, status *enums.EscrowStatus, limit int) ([]models.EscrowTransaction, error)
}

// HoldInput creates the hold when an order's payment is approved.
type HoldInput struct {
	OrderID  uuid.UUID
	BuyerID  uuid.UUID
	SellerID uuid.UUID
	Amount   float64
}

// ResolveInput carries the admin action releasing or refunding a hold.
type ResolveInput struct {
	TransactionID uuid.UUID
	AdminUserID   uuid.UUID
	Reason        *string
}

type service struct {
	repo    Repository
	wallets wallet.Service
	auditor audit.Recorder
	tx      txRunner
	metrics *metrics.OrderMetrics
	now     func() time.Time
}

// NewService builds an escrow service with the required dependencies.
// The metrics collector may be nil.
func NewService(repo Repository, wallets wallet.Service, auditor audit.Recorder, tx txRunner, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		wallets: wallets,
		auditor: auditor,
		tx:      tx,
		metrics: m,
		now:     time.Now,
	}, nil
}

func (s *service) Hold(ctx context.Context, tx *gorm.DB, input HoldInput) (*models.EscrowTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for escrow hold")
	}
	if input.OrderID == uuid.Nil || input.BuyerID == uuid.Nil || input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order, buyer and seller ids required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "escrow amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	if existing, err := repo.FindByOrder(ctx, input.OrderID); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "escrow already exists for order")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing escrow")
	}

	txn := &models.EscrowTransaction{
		OrderID:  input.OrderID,
		BuyerID:  input.BuyerID,
		SellerID: input.SellerID,
		Amount:   input.Amount,
		Status:   enums.EscrowStatusHeld,
	}
	if err := repo.Create(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create escrow hold")
	}
	s.metrics.IncEscrow(string(enums.EscrowStatusHeld))
	return txn, nil
}

func (s *service) Release(ctx context.Context, input ResolveInput) (*models.EscrowTransaction, error) {
	return s.resolve(ctx, input, enums.EscrowStatusReleased)
}

func (s *service) Refund(ctx context.Context, input ResolveInput) (*models.EscrowTransaction, error) {
	return s.resolve(ctx, input, enums.EscrowStatusRefunded)
}

func (s *service) resolve(ctx context.Context, input ResolveInput, target enums.EscrowStatus) (*models.EscrowTransaction, error) {
	if input.TransactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	// Route guards should make a missing admin identity impossible; fail
	// loudly rather than record a money movement with a nil actor.
	if input.AdminUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "admin actor id missing for escrow resolution")
	}

	var resolved *models.EscrowTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		txn, err := repo.FindByIDForUpdate(ctx, input.TransactionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "escrow transaction not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow transaction")
		}
		if txn.Status != enums.EscrowStatusHeld {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("escrow transaction is %s, only held funds can be %s", txn.Status, target)).
				WithDetails(map[string]any{"current_status": txn.Status, "requested_status": target})
		}

		recipient := txn.SellerID
		creditType := enums.WalletTransactionTypeEscrowRelease
		if target == enums.EscrowStatusRefunded {
			recipient = txn.BuyerID
			creditType = enums.WalletTransactionTypeEscrowRefund
		}

		description := fmt.Sprintf("escrow %s for order %s", target, txn.OrderID)
		refID := txn.ID
		if _, err := s.wallets.Credit(ctx, tx, wallet.CreditInput{
			UserID:      recipient,
			Amount:      txn.Amount,
			Type:        creditType,
			ReferenceID: &refID,
			Description: &description,
		}); err != nil {
			return err
		}

		now := s.now()
		updates := map[string]any{
			"status":          target,
			"resolved_by":     input.AdminUserID,
			"resolved_reason": input.Reason,
			"resolved_at":     now,
		}
		if err := repo.UpdateResolution(ctx, txn.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update escrow status")
		}

		if err := s.auditor.Record(ctx, tx, audit.Entry{
			ActorUserID: input.AdminUserID,
			Action:      "escrow_" + target.String(),
			EntityType:  "escrow_transaction",
			EntityID:    txn.ID,
			Detail: map[string]any{
				"order_id":  txn.OrderID,
				"amount":    txn.Amount,
				"recipient": recipient,
				"reason":    input.Reason,
			},
		}); err != nil {
			return err
		}

		txn.Status = target
		txn.ResolvedBy = &input.AdminUserID
		txn.ResolvedReason = input.Reason
		txn.ResolvedAt = &now
		resolved = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncEscrow(string(target))
	return resolved, nil
}

func (s *service) List(ctx context.Context, status *enums.EscrowStatus, limit int) ([]models.EscrowTransaction, error) {
	txns, err := s.repo.List(ctx, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list escrow transactions")
	}
	return txns, nil
}
