package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/repository"
)

func newSQLite(t *testing.T) repository.Repository {
	repo, err := repository.NewSQLite(filepath.Join(t.TempDir(), "lifesync.db"))
	gt.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newFirestore(t *testing.T) repository.Repository {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	gt.NoError(t, repo.Clear(context.Background()))
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRepositories(t *testing.T, fn func(t *testing.T, repo repository.Repository)) {
	t.Run("memory", func(t *testing.T) { fn(t, repository.NewMemory()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLite(t)) })
	t.Run("firestore", func(t *testing.T) { fn(t, newFirestore(t)) })
}

func sampleEntry(title string, typ model.EntryType) *model.MemoryEntry {
	return &model.MemoryEntry{
		ID:               model.NewEntryID(),
		Timestamp:        time.Now().UnixMilli(),
		OriginalText:     "walked along the river",
		GeneratedCardURL: "https://images.unsplash.com/photo-1",
		UserMood:         model.IntPtr(72),
		Title:            title,
		Summary:          "A calm walk",
		Tags:             []string{"nature", "walk"},
		Rating:           4,
		Importance:       model.ImportanceMedium,
		ActionItems:      []string{},
		Type:             typ,
	}
}

func TestPutAndGetEntry(t *testing.T) {
	testRepositories(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		entry := sampleEntry("River", "")
		gt.NoError(t, repo.PutEntry(ctx, entry))

		got, err := repo.GetEntry(ctx, entry.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.ID, entry.ID)
		gt.Equal(t, got.Title, "River")
		gt.Equal(t, got.Tags, []string{"nature", "walk"})
		gt.Equal(t, got.Mood(50), 72)
	})
}

func TestGetEntryNotFound(t *testing.T) {
	testRepositories(t, func(t *testing.T, repo repository.Repository) {
		_, err := repo.GetEntry(context.Background(), model.NewEntryID())
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrEntryNotFound))
	})
}

func TestPartitionRoutingAndMerge(t *testing.T) {
	testRepositories(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		e1 := sampleEntry("regular", model.EntryTypeEntry)
		e2 := sampleEntry("untyped", "")
		r1 := sampleEntry("report", model.EntryTypeDailyReport)
		for _, e := range []*model.MemoryEntry{e1, e2, r1} {
			gt.NoError(t, repo.PutEntry(ctx, e))
		}

		entries, err := repo.ListEntries(ctx)
		gt.NoError(t, err)
		gt.A(t, entries).Length(3)

		got, err := repo.GetEntry(ctx, r1.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.Type, model.EntryTypeDailyReport)
	})
}

func TestPutEntryIsUpsert(t *testing.T) {
	testRepositories(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		entry := sampleEntry("before", "")
		gt.NoError(t, repo.PutEntry(ctx, entry))

		entry.GeneratedCardURL = "data:image/png;base64,AAAA"
		entry.Title = "after"
		gt.NoError(t, repo.PutEntry(ctx, entry))
		gt.NoError(t, repo.PutEntry(ctx, entry))

		entries, err := repo.ListEntries(ctx)
		gt.NoError(t, err)
		gt.A(t, entries).Length(1)
		gt.Equal(t, entries[0].Title, "after")
		gt.Equal(t, entries[0].GeneratedCardURL, "data:image/png;base64,AAAA")
	})
}

func TestDeleteEntry(t *testing.T) {
	testRepositories(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		report := sampleEntry("report", model.EntryTypeDailyReport)
		gt.NoError(t, repo.PutEntry(ctx, report))

		gt.NoError(t, repo.DeleteEntry(ctx, report.ID))
		_, err := repo.GetEntry(ctx, report.ID)
		gt.True(t, errors.Is(err, model.ErrEntryNotFound))

		// second delete of the same id is a no-op
		gt.NoError(t, repo.DeleteEntry(ctx, report.ID))
	})
}

func TestIsEmptyCountsRegularPartitionOnly(t *testing.T) {
	testRepositories(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		empty, err := repo.IsEmpty(ctx)
		gt.NoError(t, err)
		gt.True(t, empty)

		gt.NoError(t, repo.PutEntry(ctx, sampleEntry("report", model.EntryTypeDailyReport)))
		empty, err = repo.IsEmpty(ctx)
		gt.NoError(t, err)
		gt.True(t, empty)

		gt.NoError(t, repo.PutEntry(ctx, sampleEntry("regular", "")))
		empty, err = repo.IsEmpty(ctx)
		gt.NoError(t, err)
		gt.False(t, empty)
	})
}

func TestGoals(t *testing.T) {
	testRepositories(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		goal := &model.Goal{
			ID:       model.NewGoalID(),
			Text:     "Run a half marathon",
			Deadline: "2026-11-01",
			Status:   model.GoalStatusActive,
		}
		gt.NoError(t, repo.PutGoal(ctx, goal))

		got, err := repo.GetGoal(ctx, goal.ID)
		gt.NoError(t, err)
		gt.Equal(t, got.Text, goal.Text)

		goal.Status = model.GoalStatusCompleted
		gt.NoError(t, repo.PutGoal(ctx, goal))
		goals, err := repo.ListGoals(ctx)
		gt.NoError(t, err)
		gt.A(t, goals).Length(1)
		gt.Equal(t, goals[0].Status, model.GoalStatusCompleted)

		gt.NoError(t, repo.DeleteGoal(ctx, goal.ID))
		_, err = repo.GetGoal(ctx, goal.ID)
		gt.True(t, errors.Is(err, model.ErrGoalNotFound))
	})
}

func TestClear(t *testing.T) {
	testRepositories(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()
		gt.NoError(t, repo.PutEntry(ctx, sampleEntry("a", "")))
		gt.NoError(t, repo.PutEntry(ctx, sampleEntry("b", model.EntryTypeDailyReport)))
		gt.NoError(t, repo.PutGoal(ctx, &model.Goal{ID: model.NewGoalID(), Text: "x", Deadline: "2026-01-01", Status: model.GoalStatusActive}))

		gt.NoError(t, repo.Clear(ctx))

		entries, err := repo.ListEntries(ctx)
		gt.NoError(t, err)
		gt.A(t, entries).Length(0)
		goals, err := repo.ListGoals(ctx)
		gt.NoError(t, err)
		gt.A(t, goals).Length(0)
	})
}

func TestSQLiteIsDurableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	ctx := context.Background()

	repo, err := repository.NewSQLite(path)
	gt.NoError(t, err)
	entry := sampleEntry("persisted", "")
	gt.NoError(t, repo.PutEntry(ctx, entry))
	gt.NoError(t, repo.Close())

	reopened, err := repository.NewSQLite(path)
	gt.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetEntry(ctx, entry.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.Title, "persisted")
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	entry := sampleEntry("original", "")
	gt.NoError(t, repo.PutEntry(ctx, entry))

	entry.Title = "mutated by caller"
	got, err := repo.GetEntry(ctx, entry.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.Title, "original")
}

func TestEmptyCollectionsAreNotNil(t *testing.T) {
	testRepositories(t, func(t *testing.T, repo repository.Repository) {
		ctx := context.Background()

		entries, err := repo.ListEntries(ctx)
		gt.NoError(t, err)
		gt.True(t, entries != nil)
		gt.A(t, entries).Length(0)

		bare := sampleEntry("bare", model.EntryTypeEntry)
		bare.Tags = nil
		bare.ActionItems = nil
		gt.NoError(t, repo.PutEntry(ctx, bare))

		got, err := repo.GetEntry(ctx, bare.ID)
		gt.NoError(t, err)
		gt.True(t, got.Tags != nil)
		gt.True(t, got.ActionItems != nil)
		gt.A(t, got.Tags).Length(0)
	})
}
