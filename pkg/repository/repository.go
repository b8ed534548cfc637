package repository

import (
	"context"

	"github.com/m-mizutani/lifesync/pkg/model"
)

// Repository persists memory entries and goals. Entries are split into the
// partitions returned by model.EntryType.Partition and merged on read.
// Implementations must be safe for concurrent use and must not acknowledge a
// write before it is durable.
type Repository interface {
	// ListEntries returns the entries of every partition, in no particular order
	ListEntries(ctx context.Context) ([]*model.MemoryEntry, error)

	// GetEntry looks the id up in every partition. It returns
	// model.ErrEntryNotFound when no partition holds it.
	GetEntry(ctx context.Context, id model.EntryID) (*model.MemoryEntry, error)

	// PutEntry inserts or replaces the entry in the partition chosen by its type
	PutEntry(ctx context.Context, entry *model.MemoryEntry) error

	// DeleteEntry removes the id from every partition. Deleting an unknown id is not an error.
	DeleteEntry(ctx context.Context, id model.EntryID) error

	ListGoals(ctx context.Context) ([]*model.Goal, error)
	GetGoal(ctx context.Context, id model.GoalID) (*model.Goal, error)
	PutGoal(ctx context.Context, goal *model.Goal) error
	DeleteGoal(ctx context.Context, id model.GoalID) error

	// IsEmpty reports whether the regular entry partition has no records.
	// Daily reports and goals are not counted.
	IsEmpty(ctx context.Context) (bool, error)

	// Clear removes every entry and goal
	Clear(ctx context.Context) error

	Close() error
}
