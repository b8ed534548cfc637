package regenerate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/policy"
	"github.com/m-mizutani/lifesync/pkg/repository"
	"github.com/m-mizutani/lifesync/pkg/service/imagegen"
	"github.com/m-mizutani/lifesync/pkg/usecase/regenerate"
	"golang.org/x/time/rate"
)

const (
	day         = 24 * time.Hour
	placeholder = "https://images.unsplash.com/photo-1500000000000"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockGenerator struct {
	mu           sync.Mutex
	generateFunc func(ctx context.Context, input *imagegen.Input) (*imagegen.Result, error)
	inputs       []imagegen.Input
}

func (m *mockGenerator) Generate(ctx context.Context, input *imagegen.Input) (*imagegen.Result, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, *input)
	m.mu.Unlock()
	return m.generateFunc(ctx, input)
}

func (m *mockGenerator) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

func succeed(ref string) func(ctx context.Context, input *imagegen.Input) (*imagegen.Result, error) {
	return func(ctx context.Context, input *imagegen.Input) (*imagegen.Result, error) {
		return &imagegen.Result{Reference: ref}, nil
	}
}

// recordingRepo counts writes and can inject write failures
type recordingRepo struct {
	repository.Repository
	puts    []*model.MemoryEntry
	putFunc func(entry *model.MemoryEntry) error
}

func (r *recordingRepo) PutEntry(ctx context.Context, entry *model.MemoryEntry) error {
	r.puts = append(r.puts, entry.Copy())
	if r.putFunc != nil {
		if err := r.putFunc(entry); err != nil {
			return err
		}
	}
	return r.Repository.PutEntry(ctx, entry)
}

type progressCall struct {
	current, total int
	label          string
}

type fixture struct {
	repo     *recordingRepo
	gen      *mockGenerator
	sleeps   []time.Duration
	progress []progressCall
}

func newFixture(t *testing.T, entries ...*model.MemoryEntry) *fixture {
	t.Helper()
	mem := repository.NewMemory()
	for _, e := range entries {
		gt.NoError(t, mem.PutEntry(context.Background(), e))
	}
	return &fixture{
		repo: &recordingRepo{Repository: mem},
		gen:  &mockGenerator{generateFunc: succeed("data:image/png;base64,AAAA")},
	}
}

func (f *fixture) useCase(opts ...regenerate.Option) *regenerate.UseCase {
	base := []regenerate.Option{
		regenerate.WithLimiter(rate.NewLimiter(rate.Inf, 1)),
		regenerate.WithClock(func() time.Time { return fixedNow }),
		regenerate.WithSleep(func(ctx context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return ctx.Err()
		}),
	}
	return regenerate.New(f.repo, f.gen, append(base, opts...)...)
}

func (f *fixture) input(days int, style string) regenerate.Input {
	return regenerate.Input{
		Days:        days,
		TargetStyle: style,
		OnProgress: func(current, total int, label string) {
			f.progress = append(f.progress, progressCall{current, total, label})
		},
	}
}

func entryAt(title string, age time.Duration, card string) *model.MemoryEntry {
	return &model.MemoryEntry{
		ID:               model.EntryID("id-" + title),
		Timestamp:        fixedNow.Add(-age).UnixMilli(),
		OriginalText:     "text of " + title,
		GeneratedCardURL: card,
		Title:            title,
		Summary:          "summary of " + title,
		Tags:             []string{"t1", "t2", "t3"},
		Rating:           3,
		Importance:       model.ImportanceMedium,
	}
}

func TestScenarioNoCandidates(t *testing.T) {
	f := newFixture(t,
		entryAt("generated", day, "data:image/png;base64,BBBB"),
		entryAt("old", 40*day, placeholder),
	)

	report, err := f.useCase().Run(context.Background(), f.input(30, ""))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, regenerate.ErrNoCandidates))
	gt.V(t, report).Nil()

	gt.A(t, f.progress).Length(1)
	gt.Equal(t, f.progress[0], progressCall{0, 0, "scanning"})
	gt.A(t, f.repo.puts).Length(0)
	gt.Equal(t, f.gen.calls(), 0)
}

func TestScenarioFirstAttemptSucceeds(t *testing.T) {
	f := newFixture(t, entryAt("walk", day, placeholder))
	ref := "data:image/png;base64,Z2VuZXJhdGVk"
	f.gen.generateFunc = succeed(ref)

	report, err := f.useCase().Run(context.Background(), f.input(30, ""))
	gt.NoError(t, err)
	gt.Equal(t, report.Total, 1)
	gt.Equal(t, report.Regenerated, 1)
	gt.Equal(t, report.Degraded, 0)

	gt.Equal(t, f.gen.calls(), 1)
	gt.A(t, f.repo.puts).Length(1)
	gt.Equal(t, f.repo.puts[0].GeneratedCardURL, ref)

	stored, err := f.repo.GetEntry(context.Background(), "id-walk")
	gt.NoError(t, err)
	gt.Equal(t, stored.GeneratedCardURL, ref)
	gt.Equal(t, stored.VisualStyle, "chiikawa")
	gt.Equal(t, stored.OriginalText, "text of walk")
}

func TestScenarioAllStrictAttemptsFail(t *testing.T) {
	f := newFixture(t, entryAt("storm", day, placeholder))
	fallback := "https://image.pollinations.ai/prompt/x?seed=1"
	f.gen.generateFunc = func(ctx context.Context, input *imagegen.Input) (*imagegen.Result, error) {
		if input.Strict {
			return nil, errors.New("503 model overloaded")
		}
		return &imagegen.Result{Reference: fallback, Degraded: true, Cause: errors.New("503")}, nil
	}

	report, err := f.useCase().Run(context.Background(), f.input(30, ""))
	gt.NoError(t, err)
	gt.Equal(t, report.Degraded, 1)

	gt.Equal(t, f.gen.calls(), 4)
	for i, in := range f.gen.inputs {
		gt.Equal(t, in.Strict, i < 3)
	}
	gt.A(t, f.repo.puts).Length(1)
	gt.Equal(t, f.repo.puts[0].GeneratedCardURL, fallback)

	// backoff after attempts 1 and 2 only, after the start delay
	gt.Equal(t, f.sleeps, []time.Duration{500 * time.Millisecond, 2 * time.Second, 4 * time.Second})
}

func TestScenarioTargetStyleOverrides(t *testing.T) {
	e := entryAt("dojo", day, placeholder)
	e.VisualStyle = "styleY"
	f := newFixture(t, e)

	_, err := f.useCase().Run(context.Background(), f.input(30, "styleX"))
	gt.NoError(t, err)

	gt.Equal(t, f.gen.inputs[0].Style, "styleX")
	stored, err := f.repo.GetEntry(context.Background(), e.ID)
	gt.NoError(t, err)
	gt.Equal(t, stored.VisualStyle, "styleX")
}

func TestResolveStyle(t *testing.T) {
	gt.Equal(t, regenerate.ResolveStyle("naruto", "maltese"), "naruto")
	gt.Equal(t, regenerate.ResolveStyle("", "maltese"), "maltese")
	gt.Equal(t, regenerate.ResolveStyle("", ""), "chiikawa")
}

func TestCutoffExclusion(t *testing.T) {
	exact := entryAt("exact", 10*day, placeholder)
	f := newFixture(t,
		entryAt("inside", 10*day-time.Minute, placeholder),
		exact,
		entryAt("outside", 11*day, placeholder),
	)

	report, err := f.useCase().Run(context.Background(), f.input(10, ""))
	gt.NoError(t, err)
	gt.Equal(t, report.Total, 1)
	gt.Equal(t, report.Entries, []model.EntryID{"id-inside"})

	stored, err := f.repo.GetEntry(context.Background(), exact.ID)
	gt.NoError(t, err)
	gt.Equal(t, stored.GeneratedCardURL, placeholder)
}

func TestDefaultWindowIsThirtyDays(t *testing.T) {
	f := newFixture(t,
		entryAt("recent", 29*day, placeholder),
		entryAt("stale", 31*day, placeholder),
	)

	report, err := f.useCase().Run(context.Background(), f.input(0, ""))
	gt.NoError(t, err)
	gt.Equal(t, report.Entries, []model.EntryID{"id-recent"})
}

func TestMarkerExclusion(t *testing.T) {
	f := newFixture(t,
		entryAt("placeholder", day, placeholder),
		entryAt("generated", day, "data:image/png;base64,CCCC"),
		entryAt("empty", day, ""),
	)

	report, err := f.useCase().Run(context.Background(), f.input(30, ""))
	gt.NoError(t, err)
	gt.Equal(t, report.Entries, []model.EntryID{"id-placeholder"})
	gt.A(t, f.repo.puts).Length(1)
}

func TestSecondRunFindsNothing(t *testing.T) {
	mem := repository.NewMemory()
	ctx := context.Background()
	for _, e := range []*model.MemoryEntry{
		entryAt("a", day, placeholder),
		entryAt("b", 2*day, placeholder),
	} {
		gt.NoError(t, mem.PutEntry(ctx, e))
	}

	// keyless generator produces fallback references without the marker
	uc := regenerate.New(mem, imagegen.New(nil),
		regenerate.WithLimiter(rate.NewLimiter(rate.Inf, 1)),
		regenerate.WithStartDelay(0),
		regenerate.WithClock(func() time.Time { return fixedNow }),
	)

	report, err := uc.Run(ctx, regenerate.Input{Days: 30, TargetStyle: "naruto"})
	gt.NoError(t, err)
	gt.Equal(t, report.Regenerated, 2)
	gt.Equal(t, report.Degraded, 2)

	_, err = uc.Run(ctx, regenerate.Input{Days: 30, TargetStyle: "naruto"})
	gt.True(t, errors.Is(err, regenerate.ErrNoCandidates))

	entries, err := mem.ListEntries(ctx)
	gt.NoError(t, err)
	for _, e := range entries {
		gt.S(t, e.GeneratedCardURL).HasPrefix("https://image.pollinations.ai/")
		gt.Equal(t, e.VisualStyle, "naruto")
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	f := newFixture(t,
		entryAt("a", day, placeholder),
		entryAt("", 2*day, placeholder),
		entryAt("c", 3*day, placeholder),
	)

	_, err := f.useCase().Run(context.Background(), f.input(30, ""))
	gt.NoError(t, err)

	gt.A(t, f.progress).Length(5)
	gt.Equal(t, f.progress[0], progressCall{0, 0, "scanning"})
	gt.Equal(t, f.progress[1], progressCall{0, 3, "preparing"})

	last := -1
	labels := map[string]bool{}
	for _, p := range f.progress {
		gt.True(t, p.current >= last)
		last = p.current
		labels[p.label] = true
	}
	final := f.progress[len(f.progress)-1]
	gt.Equal(t, final.current, final.total)
	gt.True(t, labels["untitled"])
}

func TestGenerationInputFromEntry(t *testing.T) {
	report := entryAt("report", day, placeholder)
	report.Type = model.EntryTypeDailyReport
	report.UserMood = model.IntPtr(12)

	plain := entryAt("plain", 2*day, placeholder)
	plain.Summary = ""
	plain.UserMood = nil

	gloomy := entryAt("gloomy", 3*day, placeholder)
	gloomy.UserMood = model.IntPtr(0)

	f := newFixture(t, report, plain, gloomy)
	_, err := f.useCase().Run(context.Background(), f.input(30, ""))
	gt.NoError(t, err)

	byTitle := map[string]imagegen.Input{}
	for _, in := range f.gen.inputs {
		byTitle[in.Summary] = in
	}

	r := byTitle["summary of report"]
	gt.True(t, r.IsPoster)
	gt.Equal(t, r.Mood, 12)

	p := byTitle["plain"]
	gt.False(t, p.IsPoster)
	gt.Equal(t, p.Mood, 50)

	// zero is a valid mood, not a missing one
	g := byTitle["summary of gloomy"]
	gt.Equal(t, g.Mood, 0)

	// daily reports are written back to their own partition
	stored, err := f.repo.GetEntry(context.Background(), report.ID)
	gt.NoError(t, err)
	gt.Equal(t, stored.Type, model.EntryTypeDailyReport)
}

func TestStorageErrorAborts(t *testing.T) {
	f := newFixture(t,
		entryAt("a", day, placeholder),
		entryAt("b", 2*day, placeholder),
	)
	diskErr := errors.New("disk full")
	f.repo.putFunc = func(entry *model.MemoryEntry) error { return diskErr }

	report, err := f.useCase().Run(context.Background(), f.input(30, ""))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, diskErr))
	gt.Equal(t, report.Regenerated, 0)
	gt.Equal(t, f.gen.calls(), 1)
}

type failingListRepo struct {
	repository.Repository
}

func (r *failingListRepo) ListEntries(ctx context.Context) ([]*model.MemoryEntry, error) {
	return nil, errors.New("store unavailable")
}

func TestLoadErrorAborts(t *testing.T) {
	gen := &mockGenerator{generateFunc: succeed("x")}
	uc := regenerate.New(&failingListRepo{Repository: repository.NewMemory()}, gen)

	_, err := uc.Run(context.Background(), regenerate.Input{})
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("store unavailable")
	gt.Equal(t, gen.calls(), 0)
}

func TestCancelDuringGeneration(t *testing.T) {
	f := newFixture(t,
		entryAt("a", day, placeholder),
		entryAt("b", 2*day, placeholder),
	)
	ctx, cancel := context.WithCancel(context.Background())
	f.gen.generateFunc = func(ctx context.Context, input *imagegen.Input) (*imagegen.Result, error) {
		cancel()
		return nil, errors.New("transient")
	}

	_, err := f.useCase().Run(ctx, f.input(30, ""))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, context.Canceled))
	gt.A(t, f.repo.puts).Length(0)
	gt.Equal(t, f.gen.calls(), 1)
}

func TestLimiterGatesEveryCall(t *testing.T) {
	f := newFixture(t,
		entryAt("a", day, placeholder),
		entryAt("b", 2*day, placeholder),
	)

	// one token is available up front; the next would take an hour
	slow := rate.NewLimiter(rate.Every(time.Hour), 1)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	report, err := f.useCase(regenerate.WithLimiter(slow)).Run(ctx, f.input(30, ""))
	gt.Error(t, err)
	gt.Equal(t, f.gen.calls(), 1)
	gt.Equal(t, report.Regenerated, 1)
	gt.A(t, f.repo.puts).Length(1)
}

func TestPolicyNarrowsCandidates(t *testing.T) {
	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "regenerate.rego"), []byte(`package regenerate

default allow := false

allow if input.entry.title != "skip"
`), 0644))

	p, err := policy.Load(context.Background(), dir)
	gt.NoError(t, err)

	f := newFixture(t,
		entryAt("keep", day, placeholder),
		entryAt("skip", day, placeholder),
	)

	report, err := f.useCase(regenerate.WithPolicy(p)).Run(context.Background(), f.input(30, ""))
	gt.NoError(t, err)
	gt.Equal(t, report.Entries, []model.EntryID{"id-keep"})
}

func TestRetryPolicyDelay(t *testing.T) {
	p := regenerate.DefaultRetryPolicy()
	gt.Equal(t, p.Delay(0), time.Duration(0))
	gt.Equal(t, p.Delay(1), 2*time.Second)
	gt.Equal(t, p.Delay(2), 4*time.Second)
	gt.Equal(t, p.Delay(5), 10*time.Second)
	gt.Equal(t, p.Delay(9), 10*time.Second)
}

func TestCustomRetryPolicy(t *testing.T) {
	f := newFixture(t, entryAt("a", day, placeholder))
	f.gen.generateFunc = func(ctx context.Context, input *imagegen.Input) (*imagegen.Result, error) {
		if input.Strict {
			return nil, errors.New("fail")
		}
		return &imagegen.Result{Reference: "fallback", Degraded: true}, nil
	}

	uc := f.useCase(
		regenerate.WithRetryPolicy(regenerate.RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Second, MaxAttempts: 2}),
		regenerate.WithStartDelay(0),
	)
	_, err := uc.Run(context.Background(), f.input(30, ""))
	gt.NoError(t, err)
	gt.Equal(t, f.gen.calls(), 3)
	gt.Equal(t, f.sleeps, []time.Duration{0, time.Second})
}

func TestCandidatesKeepStoreFields(t *testing.T) {
	f := newFixture(t, entryAt("a", day, placeholder))
	candidates, err := f.useCase().Candidates(context.Background(), 30)
	gt.NoError(t, err)
	gt.A(t, candidates).Length(1)
	gt.True(t, strings.Contains(candidates[0].GeneratedCardURL, regenerate.PlaceholderMarker))
}

func TestCancelDuringBackoff(t *testing.T) {
	f := newFixture(t, entryAt("a", day, placeholder))
	f.gen.generateFunc = func(ctx context.Context, input *imagegen.Input) (*imagegen.Result, error) {
		return nil, errors.New("transient")
	}

	ctx, cancel := context.WithCancel(context.Background())
	uc := f.useCase(regenerate.WithSleep(func(ctx context.Context, d time.Duration) error {
		if d == 2*time.Second {
			cancel()
		}
		return ctx.Err()
	}))

	_, err := uc.Run(ctx, f.input(30, ""))
	gt.True(t, errors.Is(err, context.Canceled))
	gt.Equal(t, f.gen.calls(), 1)
	gt.A(t, f.repo.puts).Length(0)
}
