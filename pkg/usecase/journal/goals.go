package journal

import (
	"context"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
)

// AddGoal stores a new active goal. deadline is a YYYY-MM-DD date.
func (u *UseCase) AddGoal(ctx context.Context, text, deadline string) (*model.Goal, error) {
	goal := &model.Goal{
		ID:       model.NewGoalID(),
		Text:     strings.TrimSpace(text),
		Deadline: deadline,
		Status:   model.GoalStatusActive,
	}
	if err := goal.Validate(); err != nil {
		return nil, err
	}

	if err := u.repo.PutGoal(ctx, goal); err != nil {
		return nil, goerr.Wrap(err, "failed to save goal")
	}
	logging.From(ctx).Info("goal added", "id", goal.ID, "deadline", goal.Deadline)
	return goal, nil
}

// SetGoalStatus is the only operation that changes a goal's status
func (u *UseCase) SetGoalStatus(ctx context.Context, id model.GoalID, status model.GoalStatus) (*model.Goal, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}

	goal, err := u.repo.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal.Status == status {
		return goal, nil
	}

	goal.Status = status
	if err := u.repo.PutGoal(ctx, goal); err != nil {
		return nil, goerr.Wrap(err, "failed to update goal status", goerr.V("id", id))
	}
	return goal, nil
}

// ListGoals returns goals ordered by deadline. An empty status returns all goals.
func (u *UseCase) ListGoals(ctx context.Context, status model.GoalStatus) ([]*model.Goal, error) {
	if status != "" {
		if err := status.Validate(); err != nil {
			return nil, err
		}
	}

	goals, err := u.repo.ListGoals(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load goals")
	}

	result := make([]*model.Goal, 0, len(goals))
	for _, g := range goals {
		if status == "" || g.Status == status {
			result = append(result, g)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Deadline != result[j].Deadline {
			return result[i].Deadline < result[j].Deadline
		}
		return result[i].Text < result[j].Text
	})
	return result, nil
}

// Milestones are the completed goals
func (u *UseCase) Milestones(ctx context.Context) ([]*model.Goal, error) {
	return u.ListGoals(ctx, model.GoalStatusCompleted)
}

func (u *UseCase) DeleteGoal(ctx context.Context, id model.GoalID) error {
	if _, err := u.repo.GetGoal(ctx, id); err != nil {
		return err
	}
	if err := u.repo.DeleteGoal(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete goal", goerr.V("id", id))
	}
	return nil
}
