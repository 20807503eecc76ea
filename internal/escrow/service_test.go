package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/internal/audit"
	"github.com/sokonihq/sokoni-backend/internal/wallet"
	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

type stubRepo struct {
	findByIDForUpdateFn func(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error)
	findByOrderFn       func(ctx context.Context, orderID uuid.UUID) (*models.EscrowTransaction, error)
	createFn            func(ctx context.Context, txn *models.EscrowTransaction) error
	updates             []map[string]any
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, txn *models.EscrowTransaction) error {
	if s.createFn != nil {
		return s.createFn(ctx, txn)
	}
	txn.ID = uuid.New()
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
	if s.findByIDForUpdateFn != nil {
		return s.findByIDForUpdateFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.EscrowTransaction, error) {
	if s.findByOrderFn != nil {
		return s.findByOrderFn(ctx, orderID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) UpdateResolution(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = append(s.updates, updates)
	return nil
}

func (s *stubRepo) List(ctx context.Context, status *enums.EscrowStatus, limit int) ([]models.EscrowTransaction, error) {
	return nil, nil
}

type stubWallets struct {
	credits []wallet.CreditInput
}

func (s *stubWallets) Credit(ctx context.Context, tx *gorm.DB, input wallet.CreditInput) (*models.WalletTransaction, error) {
	s.credits = append(s.credits, input)
	return &models.WalletTransaction{ID: uuid.New(), UserID: input.UserID, Amount: input.Amount}, nil
}

func (s *stubWallets) Balance(ctx context.Context, userID uuid.UUID) (*wallet.Statement, error) {
	return &wallet.Statement{}, nil
}

type stubAuditor struct {
	entries []audit.Entry
}

func (s *stubAuditor) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	s.entries = append(s.entries, entry)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newTestService(t *testing.T, repo Repository, wallets wallet.Service, auditor audit.Recorder) Service {
	t.Helper()
	svc, err := NewService(repo, wallets, auditor, stubTxRunner{}, nil)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestHoldRejectsDuplicateOrder(t *testing.T) {
	orderID := uuid.New()
	repo := &stubRepo{
		findByOrderFn: func(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
			return &models.EscrowTransaction{ID: uuid.New(), OrderID: id}, nil
		},
	}
	svc := newTestService(t, repo, &stubWallets{}, &stubAuditor{})

	_, err := svc.Hold(context.Background(), &gorm.DB{}, HoldInput{
		OrderID:  orderID,
		BuyerID:  uuid.New(),
		SellerID: uuid.New(),
		Amount:   121.00,
	})
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestHoldValidatesInput(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubWallets{}, &stubAuditor{})

	_, err := svc.Hold(context.Background(), &gorm.DB{}, HoldInput{
		OrderID: uuid.New(), BuyerID: uuid.New(), SellerID: uuid.New(), Amount: 0,
	})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}

	_, err = svc.Hold(context.Background(), nil, HoldInput{
		OrderID: uuid.New(), BuyerID: uuid.New(), SellerID: uuid.New(), Amount: 10,
	})
	if err == nil {
		t.Fatal("expected error without transaction")
	}
}

func TestReleaseCreditsSeller(t *testing.T) {
	sellerID := uuid.New()
	buyerID := uuid.New()
	adminID := uuid.New()
	txn := &models.EscrowTransaction{
		ID:       uuid.New(),
		OrderID:  uuid.New(),
		BuyerID:  buyerID,
		SellerID: sellerID,
		Amount:   242.00,
		Status:   enums.EscrowStatusHeld,
	}
	repo := &stubRepo{
		findByIDForUpdateFn: func(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
			copied := *txn
			return &copied, nil
		},
	}
	wallets := &stubWallets{}
	auditor := &stubAuditor{}
	svc := newTestService(t, repo, wallets, auditor)

	resolved, err := svc.Release(context.Background(), ResolveInput{
		TransactionID: txn.ID,
		AdminUserID:   adminID,
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if resolved.Status != enums.EscrowStatusReleased {
		t.Fatalf("expected released, got %s", resolved.Status)
	}
	if len(wallets.credits) != 1 {
		t.Fatalf("expected 1 wallet credit, got %d", len(wallets.credits))
	}
	credit := wallets.credits[0]
	if credit.UserID != sellerID {
		t.Fatal("release must credit the seller")
	}
	if credit.Amount != 242.00 {
		t.Fatalf("expected credit of 242.00, got %.2f", credit.Amount)
	}
	if credit.Type != enums.WalletTransactionTypeEscrowRelease {
		t.Fatalf("unexpected credit type %s", credit.Type)
	}
	if len(auditor.entries) != 1 || auditor.entries[0].Action != "escrow_released" {
		t.Fatalf("expected escrow_released audit entry, got %+v", auditor.entries)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != adminID {
		t.Fatal("resolved_by not recorded")
	}
}

func TestRefundCreditsBuyer(t *testing.T) {
	buyerID := uuid.New()
	txn := &models.EscrowTransaction{
		ID:       uuid.New(),
		OrderID:  uuid.New(),
		BuyerID:  buyerID,
		SellerID: uuid.New(),
		Amount:   96.80,
		Status:   enums.EscrowStatusHeld,
	}
	repo := &stubRepo{
		findByIDForUpdateFn: func(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
			copied := *txn
			return &copied, nil
		},
	}
	wallets := &stubWallets{}
	svc := newTestService(t, repo, wallets, &stubAuditor{})

	resolved, err := svc.Refund(context.Background(), ResolveInput{
		TransactionID: txn.ID,
		AdminUserID:   uuid.New(),
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if resolved.Status != enums.EscrowStatusRefunded {
		t.Fatalf("expected refunded, got %s", resolved.Status)
	}
	if len(wallets.credits) != 1 || wallets.credits[0].UserID != buyerID {
		t.Fatal("refund must credit the buyer")
	}
	if wallets.credits[0].Type != enums.WalletTransactionTypeEscrowRefund {
		t.Fatalf("unexpected credit type %s", wallets.credits[0].Type)
	}
}

func TestReleaseAlreadyResolvedDoesNotDoubleCredit(t *testing.T) {
	now := time.Now()
	txn := &models.EscrowTransaction{
		ID:         uuid.New(),
		OrderID:    uuid.New(),
		BuyerID:    uuid.New(),
		SellerID:   uuid.New(),
		Amount:     500.00,
		Status:     enums.EscrowStatusReleased,
		ResolvedAt: &now,
	}
	repo := &stubRepo{
		findByIDForUpdateFn: func(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
			copied := *txn
			return &copied, nil
		},
	}
	wallets := &stubWallets{}
	svc := newTestService(t, repo, wallets, &stubAuditor{})

	_, err := svc.Release(context.Background(), ResolveInput{
		TransactionID: txn.ID,
		AdminUserID:   uuid.New(),
	})
	if !pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(wallets.credits) != 0 {
		t.Fatalf("wallet must not be credited twice, got %d credits", len(wallets.credits))
	}
	if len(repo.updates) != 0 {
		t.Fatal("escrow row must not be touched when already resolved")
	}
}

func TestResolveRequiresKnownTransaction(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubWallets{}, &stubAuditor{})

	_, err := svc.Release(context.Background(), ResolveInput{
		TransactionID: uuid.New(),
		AdminUserID:   uuid.New(),
	})
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolveRequiresAdminActor(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubWallets{}, &stubAuditor{})

	_, err := svc.Refund(context.Background(), ResolveInput{TransactionID: uuid.New()})
	if !pkgerrors.Is(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error for missing admin id, got %v", err)
	}
}
