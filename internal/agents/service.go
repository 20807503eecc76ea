package agents

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokonihq/sokoni-backend/pkg/db/models"
	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

// Service manages delivery agent assignment and load. All mutating
// operations take the caller's transaction so order state and agent
// counters move together.
type Service interface {
	// Assign picks an available agent of the given type, bumps its load
	// and returns it. Fails with Capacity when nobody can take the order.
	Assign(ctx context.Context, tx *gorm.DB, agentType enums.AgentType) (*models.Agent, error)

	// ReleaseDelivered closes out an agent's slot after a delivered order
	// and records the delivery with the amount earned.
	ReleaseDelivered(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, earned float64) error

	// ReleaseCancelled frees the slot without touching delivery stats.
	ReleaseCancelled(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error

	// Rate adds a buyer rating to the agent's running tally.
	Rate(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, rating int) error

	// Lookup loads an agent row, used to match an acting user against
	// the agent assigned to an order.
	Lookup(ctx context.Context, agentID uuid.UUID) (*models.Agent, error)
}

type service struct {
	repo Repository
}

// NewService wires an agents service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "agents repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Assign(ctx context.Context, tx *gorm.DB, agentType enums.AgentType) (*models.Agent, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "agent assignment requires a transaction")
	}
	repo := s.repo.WithTx(tx)

	agent, err := repo.FindAvailable(ctx, agentType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeCapacity, "no delivery agent available right now")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find available agent")
	}
	if err := repo.IncrementLoad(ctx, agent.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment agent load")
	}
	agent.CurrentOrders++
	return agent, nil
}

func (s *service) ReleaseDelivered(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, earned float64) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "agent release requires a transaction")
	}
	repo := s.repo.WithTx(tx)
	if err := repo.DecrementLoad(ctx, agentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement agent load")
	}
	if err := repo.RecordDelivery(ctx, agentID, earned); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record agent delivery")
	}
	return nil
}

func (s *service) ReleaseCancelled(ctx context.Context, tx *gorm.DB, agentID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "agent release requires a transaction")
	}
	if err := s.repo.WithTx(tx).DecrementLoad(ctx, agentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement agent load")
	}
	return nil
}

func (s *service) Lookup(ctx context.Context, agentID uuid.UUID) (*models.Agent, error) {
	agent, err := s.repo.FindByID(ctx, agentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery agent not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	return agent, nil
}

func (s *service) Rate(ctx context.Context, tx *gorm.DB, agentID uuid.UUID, rating int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "agent rating requires a transaction")
	}
	if rating < 1 || rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if err := s.repo.WithTx(tx).RecordRating(ctx, agentID, rating); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record agent rating")
	}
	return nil
}
