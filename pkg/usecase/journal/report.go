package journal

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/service/imagegen"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
)

type dailyPoster struct {
	Title             string   `json:"title"`
	VisualDescription string   `json:"visualDescription"`
	Keywords          []string `json:"keywords"`
	Summary           string   `json:"summary"`
}

var dailyPosterSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"title":             stringSchema("poster title for the day"),
		"visualDescription": stringSchema("detailed visual description in English for an image prompt"),
		"keywords":          stringListSchema("three or four English keywords of the day"),
		"summary":           stringSchema("short summary of the day, at most 50 words"),
	},
	Required: []string{"title", "visualDescription", "keywords", "summary"},
}

// ParseDay reads a YYYY-MM-DD date in the journal's time zone. An empty
// string means today.
func (u *UseCase) ParseDay(s string) (time.Time, error) {
	if s == "" {
		return u.today(), nil
	}
	d, err := time.ParseInLocation(model.DateLayout, s, u.loc)
	if err != nil {
		return time.Time{}, goerr.Wrap(ErrInvalidDate, "date must be YYYY-MM-DD", goerr.V("date", s))
	}
	return d, nil
}

// EntriesOn returns the regular entries whose timestamp falls on day
func (u *UseCase) EntriesOn(ctx context.Context, day time.Time) ([]*model.MemoryEntry, error) {
	entries, err := u.repo.ListEntries(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load entries")
	}

	target := u.dayOf(day.UnixMilli())
	var result []*model.MemoryEntry
	for _, e := range entries {
		if e.Type.Partition() == model.PartitionEntries && u.dayOf(e.Timestamp).Equal(target) {
			result = append(result, e)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func averageMood(entries []*model.MemoryEntry) int {
	if len(entries) == 0 {
		return defaultMood
	}
	sum := 0
	for _, e := range entries {
		sum += e.Mood(defaultMood)
	}
	return int(math.Round(float64(sum) / float64(len(entries))))
}

// DailyReport summarises the entries of day into a daily_report entry with
// a poster card. It needs the text model.
func (u *UseCase) DailyReport(ctx context.Context, day time.Time) (*model.MemoryEntry, error) {
	if !u.Online() {
		return nil, goerr.Wrap(ErrAIUnavailable, "daily report needs the text model")
	}

	entries, err := u.EntriesOn(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, goerr.Wrap(ErrNoEntries, "nothing to summarise", goerr.V("day", day.Format(model.DateLayout)))
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, "- "+e.OriginalText)
	}
	avg := averageMood(entries)

	prompt := fmt.Sprintf(`You design visual notes. Plan a "daily life poster" from today's journal fragments:
summarise 3-4 core keywords in English, describe one concrete scene in English and give the poster a title.

Records:
%s`, strings.Join(lines, "\n"))

	var poster dailyPoster
	if err := u.generateJSON(ctx, prompt, dailyPosterSchema, &poster); err != nil {
		return nil, goerr.Wrap(err, "failed to generate daily report")
	}

	card, err := u.images.Generate(ctx, &imagegen.Input{
		Summary:  poster.VisualDescription,
		Mood:     avg,
		Tags:     poster.Keywords,
		IsPoster: true,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate poster image")
	}

	target := u.dayOf(day.UnixMilli())
	ts := u.now()
	if !target.Equal(u.today()) {
		ts = target.Add(24*time.Hour - time.Second)
	}

	report := &model.MemoryEntry{
		ID:               model.NewEntryID(),
		Timestamp:        ts.UnixMilli(),
		OriginalText:     strings.Join(lines, "\n"),
		GeneratedCardURL: card.Reference,
		UserMood:         model.IntPtr(avg),
		Title:            poster.Title,
		Summary:          poster.Summary,
		Tags:             poster.Keywords,
		Rating:           5,
		Importance:       model.ImportanceHigh,
		ActionItems:      []string{},
		Type:             model.EntryTypeDailyReport,
	}
	if report.Title == "" {
		report.Title = "Daily report · " + target.Format("Jan 2")
	}
	if report.Summary == "" {
		report.Summary = "Daily summary"
	}
	if report.Tags == nil {
		report.Tags = []string{}
	}

	if err := u.repo.PutEntry(ctx, report); err != nil {
		return nil, goerr.Wrap(err, "failed to save daily report")
	}

	logging.From(ctx).Info("daily report created", "id", report.ID, "entries", len(entries), "mood", avg)
	return report, nil
}
