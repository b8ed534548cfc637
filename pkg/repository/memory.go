package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
)

// Memory keeps everything in process. Stored values are copied on the way in
// and out, so callers never share state with the store.
type Memory struct {
	mu      sync.RWMutex
	entries map[model.Partition]map[model.EntryID]*model.MemoryEntry
	goals   map[model.GoalID]*model.Goal
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{}
	m.reset()
	return m
}

func (m *Memory) reset() {
	m.entries = make(map[model.Partition]map[model.EntryID]*model.MemoryEntry)
	for _, p := range model.EntryPartitions {
		m.entries[p] = make(map[model.EntryID]*model.MemoryEntry)
	}
	m.goals = make(map[model.GoalID]*model.Goal)
}

func (m *Memory) ListEntries(ctx context.Context) ([]*model.MemoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := []*model.MemoryEntry{}
	for _, p := range model.EntryPartitions {
		for _, e := range m.entries[p] {
			entries = append(entries, e.Copy())
		}
	}
	return entries, nil
}

func (m *Memory) GetEntry(ctx context.Context, id model.EntryID) (*model.MemoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range model.EntryPartitions {
		if e, ok := m.entries[p][id]; ok {
			return e.Copy(), nil
		}
	}
	return nil, goerr.Wrap(model.ErrEntryNotFound, "entry not found in memory", goerr.V("id", id))
}

func (m *Memory) PutEntry(ctx context.Context, entry *model.MemoryEntry) error {
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "context done before put entry")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Type.Partition()][entry.ID] = entry.Copy()
	return nil
}

func (m *Memory) DeleteEntry(ctx context.Context, id model.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range model.EntryPartitions {
		delete(m.entries[p], id)
	}
	return nil
}

func (m *Memory) ListGoals(ctx context.Context) ([]*model.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	goals := make([]*model.Goal, 0, len(m.goals))
	for _, g := range m.goals {
		c := *g
		goals = append(goals, &c)
	}
	return goals, nil
}

func (m *Memory) GetGoal(ctx context.Context, id model.GoalID) (*model.Goal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.goals[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrGoalNotFound, "goal not found in memory", goerr.V("id", id))
	}
	c := *g
	return &c, nil
}

func (m *Memory) PutGoal(ctx context.Context, goal *model.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *goal
	m.goals[goal.ID] = &c
	return nil
}

func (m *Memory) DeleteGoal(ctx context.Context, id model.GoalID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.goals, id)
	return nil
}

func (m *Memory) IsEmpty(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries[model.PartitionEntries]) == 0, nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	return nil
}

func (m *Memory) Close() error { return nil }
