package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

// Service credits user wallets and reads balances. Credits always run
// inside a caller-supplied transaction so the ledger entry, the balance
// update and whatever triggered them commit or roll back together.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletTransaction, error)
	Balance(ctx context.Context, userID uuid.UUID) (*Statement, error)
}

// CreditInput captures one wallet credit.
type CreditInput struct {
	UserID      uuid.UUID
	Amount      float64
	Type        enums.WalletTransactionType
	ReferenceID *uuid.UUID
	Description *string
}

// Statement is the balance plus recent ledger entries for a user.
type Statement struct {
	Balance      float64                    `json:"balance"`
	Transactions []models.WalletTransaction `json:"transactions"`
}

type service struct {
	repo Repository
}

// NewService wires a wallet service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for wallet credit")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	if !input.Type.IsValid() || !input.Type.IsCredit() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet credit type")
	}

	repo := s.repo.WithTx(tx)

	wallet, err := repo.FindByUserForUpdate(ctx, input.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wallet = &models.Wallet{UserID: input.UserID}
		if createErr := repo.Create(ctx, wallet); createErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create wallet")
		}
	} else if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	balance := decimal.NewFromFloat(wallet.Balance).
		Add(decimal.NewFromFloat(input.Amount)).
		Round(2).
		InexactFloat64()

	if err := repo.UpdateBalance(ctx, wallet.ID, balance); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}

	txn := &models.WalletTransaction{
		WalletID:     wallet.ID,
		UserID:       input.UserID,
		Type:         input.Type,
		Amount:       input.Amount,
		BalanceAfter: balance,
		ReferenceID:  input.ReferenceID,
		Description:  input.Description,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append wallet ledger")
	}
	return txn, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (*Statement, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	wallet, err := s.repo.FindByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Statement{Balance: 0, Transactions: []models.WalletTransaction{}}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	txns, err := s.repo.ListTransactions(ctx, userID, 50)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return &Statement{Balance: wallet.Balance, Transactions: txns}, nil
}
