package referrals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

// Service validates referral codes at checkout. Crediting happens later,
// at payment approval, so commissions never accrue on unpaid orders.
type Service interface {
	Resolve(ctx context.Context, code string, buyerID uuid.UUID) (*models.User, error)
}

// Repository looks up referral code owners.
type Repository interface {
	FindUserByReferralCode(ctx context.Context, code string) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a referrals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindUserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("referral_code = ?", code).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type service struct {
	repo Repository
}

// NewService wires a referrals service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "referrals repository required")
	}
	return &service{repo: repo}, nil
}

// Resolve returns the owner of an active referral code, rejecting
// self-referrals and suspended referrers.
func (s *service) Resolve(ctx context.Context, code string, buyerID uuid.UUID) (*models.User, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code required")
	}

	referrer, err := s.repo.FindUserByReferralCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code is not active")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up referral code")
	}
	if referrer.Suspended {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "referral code is not active")
	}
	if referrer.ID == buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot use your own referral code")
	}
	return referrer, nil
}
