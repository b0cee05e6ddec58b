package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pfm/internal/core"
	"pfm/internal/store"
)

type GoalService struct {
	store store.GoalStore
	now   func() time.Time
}

func NewGoalService(st store.GoalStore) *GoalService {
	return &GoalService{store: st, now: time.Now}
}

func (s *GoalService) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreateTime == "" {
		g.CreateTime = core.FormatTimestamp(s.now())
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) UpdateGoal(ctx context.Context, g core.Goal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	return s.store.UpdateGoal(ctx, g)
}

// Contribute adds amount to the goal balance. Negative amounts withdraw.
func (s *GoalService) Contribute(ctx context.Context, id string, amount decimal.Decimal) (core.Goal, error) {
	return s.store.ContributeGoal(ctx, id, amount)
}

func (s *GoalService) DeleteGoal(ctx context.Context, id string) error {
	return s.store.DeleteGoal(ctx, id)
}

func (s *GoalService) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	return s.store.GetGoal(ctx, id)
}

// List returns every goal, highest priority first.
func (s *GoalService) List(ctx context.Context) ([]core.Goal, error) {
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	core.SortGoalsByPriority(goals)
	return goals, nil
}

// Priority returns the unreached goals above core.PriorityThreshold.
func (s *GoalService) Priority(ctx context.Context) ([]core.Goal, error) {
	goals, err := s.store.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return core.PriorityGoals(goals), nil
}
