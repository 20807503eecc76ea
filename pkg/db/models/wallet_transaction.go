package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// WalletTransaction is the append-only ledger entry behind every wallet
// balance change. BalanceAfter snapshots the running balance for audits.
type WalletTransaction struct {
	ID           uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID     uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	UserID       uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	Type         enums.WalletTransactionType `gorm:"column:type;type:text;not null"`
	Amount       float64                     `gorm:"column:amount;type:numeric(14,2);not null"`
	BalanceAfter float64                     `gorm:"column:balance_after;type:numeric(14,2);not null"`
	ReferenceID  *uuid.UUID                  `gorm:"column:reference_id;type:uuid"`
	Description  *string                     `gorm:"column:description"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
