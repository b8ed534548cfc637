package regenerate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/service/imagegen"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
)

var ErrNoCandidates = goerr.New("no placeholder images to regenerate")

const (
	dayMillis    = int64(86_400_000)
	defaultMood  = 50
	untitled     = "untitled"
	labelScan    = "scanning"
	labelPrepare = "preparing"
)

// ProgressFunc is called synchronously from the pipeline goroutine
type ProgressFunc func(current, total int, label string)

type Input struct {
	// Days is the look-back window. Zero or negative means DefaultDays.
	Days int

	// TargetStyle overrides the style of every candidate when set
	TargetStyle string

	OnProgress ProgressFunc
}

type Report struct {
	Total       int             `json:"total"`
	Regenerated int             `json:"regenerated"`
	Degraded    int             `json:"degraded"`
	Entries     []model.EntryID `json:"entries"`
}

func (in *Input) progress(current, total int, label string) {
	if in.OnProgress != nil {
		in.OnProgress(current, total, label)
	}
}

// ResolveStyle picks the target style, then the entry's own style, then the default
func ResolveStyle(target, entryStyle string) string {
	if target != "" {
		return target
	}
	if entryStyle != "" {
		return entryStyle
	}
	return imagegen.DefaultStyle
}

// IsPlaceholder reports whether the entry still carries a demo image
func IsPlaceholder(entry *model.MemoryEntry) bool {
	return strings.Contains(entry.GeneratedCardURL, PlaceholderMarker)
}

// Candidates returns the entries that a run with the given window would
// regenerate, in store order.
func (u *UseCase) Candidates(ctx context.Context, days int) ([]*model.MemoryEntry, error) {
	if days <= 0 {
		days = DefaultDays
	}

	entries, err := u.repo.ListEntries(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load entries")
	}

	now := u.now().UnixMilli()
	cutoff := now - int64(days)*dayMillis

	var candidates []*model.MemoryEntry
	for _, entry := range entries {
		if entry.Timestamp <= cutoff || !IsPlaceholder(entry) {
			continue
		}

		allowed, err := u.policy.Allow(ctx, entry, now)
		if err != nil {
			return nil, err
		}
		if !allowed {
			logging.From(ctx).Debug("candidate rejected by policy", "id", entry.ID)
			continue
		}

		candidates = append(candidates, entry)
	}

	return candidates, nil
}

// Run regenerates the placeholder images of entries newer than the window.
// Per item failures degrade to the fallback reference; storage errors and
// cancellation abort the run. Items written before an abort stay written.
func (u *UseCase) Run(ctx context.Context, input Input) (*Report, error) {
	logger := logging.From(ctx)
	input.progress(0, 0, labelScan)

	candidates, err := u.Candidates(ctx, input.Days)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, goerr.Wrap(ErrNoCandidates, "nothing to regenerate", goerr.V("days", input.Days))
	}

	total := len(candidates)
	input.progress(0, total, labelPrepare)
	logger.Info("start regenerating images", "total", total, "target_style", input.TargetStyle)

	if err := u.sleep(ctx, u.startDelay); err != nil {
		return nil, goerr.Wrap(err, "regeneration cancelled before start")
	}

	report := &Report{Total: total}
	for i, entry := range candidates {
		label := entry.Title
		if label == "" {
			label = untitled
		}
		input.progress(i+1, total, label)

		style := ResolveStyle(input.TargetStyle, entry.VisualStyle)
		result, err := u.generate(ctx, entry, style)
		if err != nil {
			return report, err
		}

		updated := entry.Copy()
		updated.GeneratedCardURL = result.Reference
		updated.VisualStyle = style
		if err := u.repo.PutEntry(ctx, updated); err != nil {
			return report, goerr.Wrap(err, "failed to save regenerated entry", goerr.V("id", entry.ID))
		}

		report.Regenerated++
		report.Entries = append(report.Entries, entry.ID)
		if result.Degraded {
			report.Degraded++
		}

		logger.Info("entry regenerated",
			slog.String("id", string(entry.ID)),
			slog.Int("current", i+1),
			slog.Int("total", total),
			slog.Bool("degraded", result.Degraded),
		)
	}

	return report, nil
}

// generate makes up to MaxAttempts strict calls and then one lenient call
// that yields the fallback reference.
func (u *UseCase) generate(ctx context.Context, entry *model.MemoryEntry, style string) (*imagegen.Result, error) {
	summary := entry.Summary
	if summary == "" {
		summary = entry.Title
	}

	input := &imagegen.Input{
		Summary:  summary,
		Mood:     entry.Mood(defaultMood),
		Tags:     entry.Tags,
		IsPoster: entry.Type == model.EntryTypeDailyReport,
		Style:    style,
		Strict:   true,
	}

	attempts := u.retry.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := u.limiter.Wait(ctx); err != nil {
			return nil, goerr.Wrap(err, "rate limiter wait interrupted", goerr.V("id", entry.ID))
		}

		result, err := u.generator.Generate(ctx, input)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, goerr.Wrap(ctx.Err(), "generation interrupted", goerr.V("id", entry.ID))
		}

		logging.From(ctx).Warn("image generation attempt failed",
			slog.String("id", string(entry.ID)),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)

		if attempt < attempts {
			if err := u.sleep(ctx, u.retry.Delay(attempt)); err != nil {
				return nil, goerr.Wrap(err, "backoff interrupted", goerr.V("id", entry.ID))
			}
		}
	}

	input.Strict = false
	if err := u.limiter.Wait(ctx); err != nil {
		return nil, goerr.Wrap(err, "rate limiter wait interrupted", goerr.V("id", entry.ID))
	}
	result, err := u.generator.Generate(ctx, input)
	if err != nil {
		return nil, goerr.Wrap(err, "fallback generation failed", goerr.V("id", entry.ID))
	}
	return result, nil
}
