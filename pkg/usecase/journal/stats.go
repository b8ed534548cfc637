package journal

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
)

const topTagLimit = 5

type MoodBands struct {
	Low  int `json:"low"`
	Mid  int `json:"mid"`
	High int `json:"high"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type Stats struct {
	Entries       int                      `json:"entries"`
	Reports       int                      `json:"reports"`
	AverageMood   float64                  `json:"averageMood"`
	Moods         MoodBands                `json:"moods"`
	TopTags       []TagCount               `json:"topTags"`
	LongestStreak int                      `json:"longestStreak"`
	CurrentStreak int                      `json:"currentStreak"`
	Placeholders  int                      `json:"placeholders"`
	Goals         map[model.GoalStatus]int `json:"goals"`
}

// Stats aggregates the journal. Moods and streaks consider regular entries
// only; entries without a mood count as 50.
func (u *UseCase) Stats(ctx context.Context) (*Stats, error) {
	entries, err := u.repo.ListEntries(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load entries")
	}
	goals, err := u.repo.ListGoals(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load goals")
	}

	stats := &Stats{
		TopTags: []TagCount{},
		Goals: map[model.GoalStatus]int{
			model.GoalStatusActive:    0,
			model.GoalStatusCompleted: 0,
			model.GoalStatusDropped:   0,
		},
	}

	moodSum := 0
	tags := map[string]int{}
	days := map[time.Time]bool{}
	for _, e := range entries {
		if isPlaceholderCard(e.GeneratedCardURL) {
			stats.Placeholders++
		}
		if e.Type == model.EntryTypeDailyReport {
			stats.Reports++
			continue
		}

		stats.Entries++
		mood := e.Mood(defaultMood)
		moodSum += mood
		switch {
		case mood < 30:
			stats.Moods.Low++
		case mood < 70:
			stats.Moods.Mid++
		default:
			stats.Moods.High++
		}
		for _, t := range e.Tags {
			tags[t]++
		}
		days[u.dayOf(e.Timestamp)] = true
	}

	if stats.Entries > 0 {
		stats.AverageMood = math.Round(float64(moodSum)/float64(stats.Entries)*10) / 10
	}

	for tag, n := range tags {
		stats.TopTags = append(stats.TopTags, TagCount{Tag: tag, Count: n})
	}
	sort.Slice(stats.TopTags, func(i, j int) bool {
		if stats.TopTags[i].Count != stats.TopTags[j].Count {
			return stats.TopTags[i].Count > stats.TopTags[j].Count
		}
		return stats.TopTags[i].Tag < stats.TopTags[j].Tag
	})
	if len(stats.TopTags) > topTagLimit {
		stats.TopTags = stats.TopTags[:topTagLimit]
	}

	stats.LongestStreak, stats.CurrentStreak = u.streaks(days)

	for _, g := range goals {
		stats.Goals[g.Status]++
	}
	return stats, nil
}

// streaks counts consecutive calendar days. The current streak may end
// yesterday so that a day without a note yet does not reset it.
func (u *UseCase) streaks(days map[time.Time]bool) (longest, current int) {
	if len(days) == 0 {
		return 0, 0
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	run := 1
	longest = 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Equal(nextDay(sorted[i-1])) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	day := u.today()
	if !days[day] {
		day = day.AddDate(0, 0, -1)
	}
	for days[day] {
		current++
		day = day.AddDate(0, 0, -1)
	}
	return longest, current
}

func nextDay(d time.Time) time.Time {
	return d.AddDate(0, 0, 1)
}
