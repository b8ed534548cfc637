package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore stores each partition in a collection of the same name
type Firestore struct {
	client *firestore.Client
}

var _ Repository = (*Firestore)(nil)

func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (r *Firestore) ListEntries(ctx context.Context) ([]*model.MemoryEntry, error) {
	entries := []*model.MemoryEntry{}
	for _, p := range model.EntryPartitions {
		iter := r.client.Collection(string(p)).Documents(ctx)
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to iterate entries", goerr.V("collection", p))
			}

			var entry model.MemoryEntry
			if err := doc.DataTo(&entry); err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to decode entry", goerr.V("doc_id", doc.Ref.ID))
			}
			entries = append(entries, &entry)
		}
		iter.Stop()
	}

	return entries, nil
}

func (r *Firestore) GetEntry(ctx context.Context, id model.EntryID) (*model.MemoryEntry, error) {
	for _, p := range model.EntryPartitions {
		doc, err := r.client.Collection(string(p)).Doc(string(id)).Get(ctx)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get entry", goerr.V("id", id), goerr.V("collection", p))
		}

		var entry model.MemoryEntry
		if err := doc.DataTo(&entry); err != nil {
			return nil, goerr.Wrap(err, "failed to decode entry", goerr.V("id", id))
		}
		return &entry, nil
	}

	return nil, goerr.Wrap(model.ErrEntryNotFound, "entry not found in firestore", goerr.V("id", id))
}

func (r *Firestore) PutEntry(ctx context.Context, entry *model.MemoryEntry) error {
	p := entry.Type.Partition()
	if _, err := r.client.Collection(string(p)).Doc(string(entry.ID)).Set(ctx, entry.Copy()); err != nil {
		return goerr.Wrap(err, "failed to put entry", goerr.V("id", entry.ID), goerr.V("collection", p))
	}
	return nil
}

func (r *Firestore) DeleteEntry(ctx context.Context, id model.EntryID) error {
	for _, p := range model.EntryPartitions {
		// Delete on a missing document succeeds, which keeps this idempotent
		if _, err := r.client.Collection(string(p)).Doc(string(id)).Delete(ctx); err != nil && !isNotFound(err) {
			return goerr.Wrap(err, "failed to delete entry", goerr.V("id", id), goerr.V("collection", p))
		}
	}
	return nil
}

func (r *Firestore) ListGoals(ctx context.Context) ([]*model.Goal, error) {
	iter := r.client.Collection(string(model.PartitionGoals)).Documents(ctx)
	defer iter.Stop()

	goals := []*model.Goal{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate goals")
		}

		var goal model.Goal
		if err := doc.DataTo(&goal); err != nil {
			return nil, goerr.Wrap(err, "failed to decode goal", goerr.V("doc_id", doc.Ref.ID))
		}
		goals = append(goals, &goal)
	}

	return goals, nil
}

func (r *Firestore) GetGoal(ctx context.Context, id model.GoalID) (*model.Goal, error) {
	doc, err := r.client.Collection(string(model.PartitionGoals)).Doc(string(id)).Get(ctx)
	if isNotFound(err) {
		return nil, goerr.Wrap(model.ErrGoalNotFound, "goal not found in firestore", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get goal", goerr.V("id", id))
	}

	var goal model.Goal
	if err := doc.DataTo(&goal); err != nil {
		return nil, goerr.Wrap(err, "failed to decode goal", goerr.V("id", id))
	}
	return &goal, nil
}

func (r *Firestore) PutGoal(ctx context.Context, goal *model.Goal) error {
	if _, err := r.client.Collection(string(model.PartitionGoals)).Doc(string(goal.ID)).Set(ctx, goal); err != nil {
		return goerr.Wrap(err, "failed to put goal", goerr.V("id", goal.ID))
	}
	return nil
}

func (r *Firestore) DeleteGoal(ctx context.Context, id model.GoalID) error {
	if _, err := r.client.Collection(string(model.PartitionGoals)).Doc(string(id)).Delete(ctx); err != nil && !isNotFound(err) {
		return goerr.Wrap(err, "failed to delete goal", goerr.V("id", id))
	}
	return nil
}

func (r *Firestore) IsEmpty(ctx context.Context) (bool, error) {
	iter := r.client.Collection(string(model.PartitionEntries)).Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return true, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to probe entries collection")
	}
	return false, nil
}

func (r *Firestore) Clear(ctx context.Context) error {
	for _, p := range []model.Partition{model.PartitionEntries, model.PartitionDailyReports, model.PartitionGoals} {
		refs, err := r.client.Collection(string(p)).DocumentRefs(ctx).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to list documents", goerr.V("collection", p))
		}
		for _, ref := range refs {
			if _, err := ref.Delete(ctx); err != nil && !isNotFound(err) {
				return goerr.Wrap(err, "failed to delete document", goerr.V("collection", p), goerr.V("doc_id", ref.ID))
			}
		}
	}
	return nil
}
