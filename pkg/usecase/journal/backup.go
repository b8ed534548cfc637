package journal

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
)

const snapshotVersion = 1

// Snapshot is the serialized form of a whole journal
type Snapshot struct {
	Version   int                  `json:"version"`
	CreatedAt int64                `json:"createdAt"`
	Entries   []*model.MemoryEntry `json:"entries"`
	Goals     []*model.Goal        `json:"goals"`
}

// DefaultSnapshotKey derives the object key of a backup taken now
func (u *UseCase) DefaultSnapshotKey() string {
	return "snapshots/" + u.now().In(u.loc).Format("20060102-150405") + ".json"
}

// Backup writes every entry and goal to the snapshot storage under key
func (u *UseCase) Backup(ctx context.Context, key string) (*Snapshot, error) {
	if u.storage == nil {
		return nil, goerr.Wrap(ErrStorageNotConfigured, "backup needs a storage bucket")
	}

	entries, err := u.Timeline(ctx, 0)
	if err != nil {
		return nil, err
	}
	goals, err := u.ListGoals(ctx, "")
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		Version:   snapshotVersion,
		CreatedAt: u.now().UnixMilli(),
		Entries:   entries,
		Goals:     goals,
	}

	w, err := u.storage.Put(ctx, key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open snapshot writer", goerr.V("key", key))
	}
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		_ = w.Close()
		return nil, goerr.Wrap(err, "failed to encode snapshot", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit snapshot", goerr.V("key", key))
	}

	logging.From(ctx).Info("snapshot saved", "key", key, "entries", len(entries), "goals", len(goals))
	return snapshot, nil
}

// Restore upserts the records of a snapshot. Records missing from the
// snapshot are kept.
func (u *UseCase) Restore(ctx context.Context, key string) (*Snapshot, error) {
	if u.storage == nil {
		return nil, goerr.Wrap(ErrStorageNotConfigured, "restore needs a storage bucket")
	}

	r, err := u.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var snapshot Snapshot
	if err := json.NewDecoder(r).Decode(&snapshot); err != nil {
		return nil, goerr.Wrap(err, "failed to decode snapshot", goerr.V("key", key))
	}
	if snapshot.Version != snapshotVersion {
		return nil, goerr.New("unsupported snapshot version", goerr.V("version", snapshot.Version), goerr.V("key", key))
	}

	for _, e := range snapshot.Entries {
		if err := e.Validate(); err != nil {
			return nil, goerr.Wrap(err, "snapshot has an invalid entry", goerr.V("key", key))
		}
	}
	for _, g := range snapshot.Goals {
		if err := g.Validate(); err != nil {
			return nil, goerr.Wrap(err, "snapshot has an invalid goal", goerr.V("key", key))
		}
	}

	for _, e := range snapshot.Entries {
		if err := u.repo.PutEntry(ctx, e); err != nil {
			return nil, goerr.Wrap(err, "failed to restore entry", goerr.V("id", e.ID))
		}
	}
	for _, g := range snapshot.Goals {
		if err := u.repo.PutGoal(ctx, g); err != nil {
			return nil, goerr.Wrap(err, "failed to restore goal", goerr.V("id", g.ID))
		}
	}

	logging.From(ctx).Info("snapshot restored", "key", key, "entries", len(snapshot.Entries), "goals", len(snapshot.Goals))
	return &snapshot, nil
}
