package journal

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
)

func sortNewestFirst(entries []*model.MemoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
}

// Timeline returns entries and reports newest first. limit <= 0 returns all.
func (u *UseCase) Timeline(ctx context.Context, limit int) ([]*model.MemoryEntry, error) {
	entries, err := u.repo.ListEntries(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load entries")
	}

	sortNewestFirst(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (u *UseCase) GetEntry(ctx context.Context, id model.EntryID) (*model.MemoryEntry, error) {
	return u.repo.GetEntry(ctx, id)
}

// DeleteEntry removes the entry from whichever partition holds it
func (u *UseCase) DeleteEntry(ctx context.Context, id model.EntryID) error {
	if _, err := u.repo.GetEntry(ctx, id); err != nil {
		return err
	}
	if err := u.repo.DeleteEntry(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete entry", goerr.V("id", id))
	}
	return nil
}
