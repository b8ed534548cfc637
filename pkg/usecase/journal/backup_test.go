package journal_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifesync/pkg/adapter"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/repository"
	"github.com/m-mizutani/lifesync/pkg/usecase/journal"
)

type mockStorage struct {
	objects map[string][]byte
}

type objectWriter struct {
	bytes.Buffer
	commit func([]byte)
}

func (w *objectWriter) Close() error {
	w.commit(w.Bytes())
	return nil
}

func (m *mockStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return &objectWriter{commit: func(b []byte) { m.objects[key] = b }}, nil
}

func (m *mockStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	b, ok := m.objects[key]
	if !ok {
		return nil, adapter.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type mockBigQuery struct {
	ensureTableFunc func(ctx context.Context, datasetID, tableID string, row any) error
	batches         [][]*journal.ExportRow
}

func (m *mockBigQuery) EnsureTable(ctx context.Context, datasetID, tableID string, row any) error {
	if m.ensureTableFunc != nil {
		return m.ensureTableFunc(ctx, datasetID, tableID, row)
	}
	return nil
}

func (m *mockBigQuery) Insert(ctx context.Context, datasetID, tableID string, rows any) error {
	m.batches = append(m.batches, rows.([]*journal.ExportRow))
	return nil
}

func TestBackupAndRestore(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorage{objects: map[string][]byte{}}

	src := repository.NewMemory()
	putEntry(t, src, &model.MemoryEntry{ID: "a", Timestamp: at(2026, 2, 27, 9), Title: "A", UserMood: model.IntPtr(0)})
	putEntry(t, src, &model.MemoryEntry{ID: "r", Timestamp: at(2026, 2, 27, 23), Title: "R", Type: model.EntryTypeDailyReport})
	gt.NoError(t, src.PutGoal(ctx, &model.Goal{ID: "g", Text: "goal", Deadline: "2026-03-03", Status: model.GoalStatusActive}))

	backup := newUseCase(src, nil, journal.WithStorage(storage))
	key := backup.DefaultSnapshotKey()
	gt.Equal(t, key, "snapshots/20260301-120000.json")

	snapshot, err := backup.Backup(ctx, key)
	gt.NoError(t, err)
	gt.A(t, snapshot.Entries).Length(2)
	gt.A(t, snapshot.Goals).Length(1)
	gt.Equal(t, snapshot.CreatedAt, fixedNow.UnixMilli())

	dst := repository.NewMemory()
	putEntry(t, dst, &model.MemoryEntry{ID: "keep", Timestamp: at(2026, 1, 1, 9), Title: "Keep"})
	restored, err := newUseCase(dst, nil, journal.WithStorage(storage)).Restore(ctx, key)
	gt.NoError(t, err)
	gt.A(t, restored.Entries).Length(2)

	entries, err := dst.ListEntries(ctx)
	gt.NoError(t, err)
	gt.A(t, entries).Length(3)

	report, err := dst.GetEntry(ctx, "r")
	gt.NoError(t, err)
	gt.Equal(t, report.Type, model.EntryTypeDailyReport)

	a, err := dst.GetEntry(ctx, "a")
	gt.NoError(t, err)
	gt.Equal(t, a.Mood(50), 0)

	goal, err := dst.GetGoal(ctx, "g")
	gt.NoError(t, err)
	gt.Equal(t, goal.Text, "goal")
}

func TestRestoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("storage not configured", func(t *testing.T) {
		uc := newUseCase(repository.NewMemory(), nil)
		_, err := uc.Backup(ctx, "k")
		gt.True(t, errors.Is(err, journal.ErrStorageNotConfigured))
		_, err = uc.Restore(ctx, "k")
		gt.True(t, errors.Is(err, journal.ErrStorageNotConfigured))
	})

	t.Run("missing snapshot", func(t *testing.T) {
		storage := &mockStorage{objects: map[string][]byte{}}
		_, err := newUseCase(repository.NewMemory(), nil, journal.WithStorage(storage)).Restore(ctx, "none.json")
		gt.True(t, errors.Is(err, adapter.ErrObjectNotFound))
	})

	t.Run("unknown version", func(t *testing.T) {
		storage := &mockStorage{objects: map[string][]byte{
			"v2.json": []byte(`{"version":2,"entries":[],"goals":[]}`),
		}}
		_, err := newUseCase(repository.NewMemory(), nil, journal.WithStorage(storage)).Restore(ctx, "v2.json")
		gt.Error(t, err)
	})

	t.Run("invalid record writes nothing", func(t *testing.T) {
		storage := &mockStorage{objects: map[string][]byte{
			"bad.json": []byte(`{"version":1,"entries":[
				{"id":"ok","timestamp":1,"rating":3,"importance":"low"},
				{"id":"bad","timestamp":1,"rating":9,"importance":"low"}
			],"goals":[]}`),
		}}
		repo := repository.NewMemory()
		_, err := newUseCase(repo, nil, journal.WithStorage(storage)).Restore(ctx, "bad.json")
		gt.Error(t, err)

		empty, err := repo.IsEmpty(ctx)
		gt.NoError(t, err)
		gt.True(t, empty)
	})
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	putEntry(t, repo, &model.MemoryEntry{ID: "a", Timestamp: at(2026, 2, 27, 9), UserMood: model.IntPtr(0), Tags: []string{"x"}, GeneratedCardURL: "data:image/png;base64,AA=="})
	putEntry(t, repo, &model.MemoryEntry{ID: "b", Timestamp: at(2026, 2, 26, 9), GeneratedCardURL: "https://images.unsplash.com/photo-1"})
	putEntry(t, repo, &model.MemoryEntry{ID: "r", Timestamp: at(2026, 2, 25, 23), Type: model.EntryTypeDailyReport})

	var ensured any
	bq := &mockBigQuery{ensureTableFunc: func(ctx context.Context, datasetID, tableID string, row any) error {
		ensured = row
		return nil
	}}
	report, err := newUseCase(repo, nil, journal.WithBigQuery(bq)).Export(ctx, "journal", "entries")
	gt.NoError(t, err)
	gt.Equal(t, report.Rows, 3)

	_, ok := ensured.(*journal.ExportRow)
	gt.True(t, ok)

	gt.A(t, bq.batches).Length(1)
	rows := bq.batches[0]
	gt.A(t, rows).Length(3)

	gt.Equal(t, rows[0].ID, "a")
	gt.Equal(t, rows[0].Type, "entry")
	gt.True(t, rows[0].Mood.Valid)
	gt.Equal(t, rows[0].Mood.Int64, int64(0))
	gt.False(t, rows[0].Placeholder)
	gt.Equal(t, rows[0].ExportedAt, fixedNow)

	gt.False(t, rows[1].Mood.Valid)
	gt.True(t, rows[1].Placeholder)

	gt.Equal(t, rows[2].Type, "daily_report")
}

func TestExportInsertIDs(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	putEntry(t, repo, &model.MemoryEntry{ID: "a", Timestamp: at(2026, 2, 27, 9)})
	putEntry(t, repo, &model.MemoryEntry{ID: "b", Timestamp: at(2026, 2, 26, 9)})

	insertIDs := func(now time.Time) []string {
		bq := &mockBigQuery{}
		uc := newUseCase(repo, nil, journal.WithBigQuery(bq), journal.WithClock(func() time.Time { return now }))
		_, err := uc.Export(ctx, "journal", "entries")
		gt.NoError(t, err)
		gt.A(t, bq.batches).Length(1)

		var ids []string
		for _, row := range bq.batches[0] {
			values, insertID, err := row.Save()
			gt.NoError(t, err)
			gt.Equal(t, values["id"], bigquery.Value(row.ID))
			ids = append(ids, insertID)
		}
		return ids
	}

	first := insertIDs(fixedNow)
	gt.A(t, first).Length(2)
	gt.NotEqual(t, first[0], first[1])

	// a retried run reuses the keys so streaming dedup drops the copies
	retried := insertIDs(fixedNow)
	gt.Equal(t, retried[0], first[0])
	gt.Equal(t, retried[1], first[1])

	later := insertIDs(fixedNow.Add(time.Hour))
	gt.NotEqual(t, later[0], first[0])
}

func TestExportBatches(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	for i := range 501 {
		putEntry(t, repo, &model.MemoryEntry{ID: model.EntryID(fmt.Sprintf("e%d", i)), Timestamp: int64(i + 1)})
	}

	bq := &mockBigQuery{}
	report, err := newUseCase(repo, nil, journal.WithBigQuery(bq)).Export(ctx, "journal", "entries")
	gt.NoError(t, err)
	gt.Equal(t, report.Rows, 501)
	gt.A(t, bq.batches).Length(2)
	gt.A(t, bq.batches[0]).Length(500)
	gt.A(t, bq.batches[1]).Length(1)
}

func TestExportErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newUseCase(repository.NewMemory(), nil).Export(ctx, "d", "t")
	gt.True(t, errors.Is(err, journal.ErrExportNotConfigured))

	_, err = newUseCase(repository.NewMemory(), nil, journal.WithBigQuery(&mockBigQuery{})).Export(ctx, "", "t")
	gt.Error(t, err)

	bq := &mockBigQuery{ensureTableFunc: func(ctx context.Context, datasetID, tableID string, row any) error {
		return errors.New("permission denied")
	}}
	_, err = newUseCase(repository.NewMemory(), nil, journal.WithBigQuery(bq)).Export(ctx, "d", "t")
	gt.Error(t, err)
	gt.A(t, bq.batches).Length(0)
}
