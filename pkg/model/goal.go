package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrGoalNotFound      = goerr.New("goal not found")
	ErrInvalidGoalStatus = goerr.New("invalid goal status")
)

// DateLayout is the calendar date format of Goal.Deadline
const DateLayout = "2006-01-02"

type GoalID string

// NewGoalID generates a new unique GoalID
func NewGoalID() GoalID {
	return GoalID(uuid.New().String())
}

type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusDropped   GoalStatus = "dropped"
)

// Validate checks if the goal status is valid
func (s GoalStatus) Validate() error {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusDropped:
		return nil
	default:
		return goerr.Wrap(ErrInvalidGoalStatus, "unknown goal status", goerr.V("status", s))
	}
}

type Goal struct {
	ID         GoalID     `json:"id" firestore:"id"`
	Text       string     `json:"text" firestore:"text"`
	Deadline   string     `json:"deadline" firestore:"deadline"`
	Status     GoalStatus `json:"status" firestore:"status"`
	AIFeedback string     `json:"aiFeedback,omitempty" firestore:"ai_feedback,omitempty"`
}

// DeadlineDate parses Deadline in the local time zone
func (g *Goal) DeadlineDate() (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, g.Deadline, time.Local)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to parse goal deadline", goerr.V("deadline", g.Deadline))
	}
	return d, nil
}

// Validate checks required fields and the deadline format
func (g *Goal) Validate() error {
	if err := validation.ValidateStruct(g,
		validation.Field(&g.ID, validation.Required),
		validation.Field(&g.Text, validation.Required, validation.Length(1, 500)),
		validation.Field(&g.Deadline, validation.Required, validation.Date(DateLayout)),
	); err != nil {
		return goerr.Wrap(err, "invalid goal", goerr.V("id", g.ID))
	}
	return g.Status.Validate()
}
