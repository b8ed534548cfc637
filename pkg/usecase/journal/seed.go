package journal

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/usecase/regenerate"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
)

const DefaultSeedDays = 30

// Demo cards are Unsplash photos so that the regeneration pipeline can pick them up
var demoImages = []string{
	"https://images.unsplash.com/photo-1555066931-4365d14bab8c?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1470071459604-3b5ec3a7fe05?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1518066000714-58c45f1a2c0a?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1497215728101-856f4ea42174?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1587620962725-abab7fe55159?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1506126613408-eca07ce68773?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1492684223066-81342ee5ff30?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1497935586351-b67a49e012bf?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1512820790803-83ca734da794?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1515694346937-94d85e41e6f0?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1493934558415-9d19f0b2b4d2?auto=format&fit=crop&q=80&w=800",
	"https://images.unsplash.com/photo-1496442226666-8d4d0e62e6e9?auto=format&fit=crop&q=80&w=800",
}

type demoTopic struct {
	text  string
	title string
	tag   string
	mood  int
	image int
}

var demoTopics = []demoTopic{
	{"Tracked down a nasty race condition today. Exhausting, but the moment it clicked was pure dopamine.", "Code detective", "work", 85, 0},
	{"Refactored the legacy module and deleted 500 lines of dead code. So clean.", "Spring cleaning", "work", 75, 4},
	{"Requirements changed again, right before the deadline. Deep breath, stay professional.", "Moving target", "stress", 30, 10},
	{"Great brainstorming session with the team, the Q4 roadmap is settled.", "Idea storm", "meeting", 80, 3},
	{"The server went down at midnight and I was on call. Glamorous life.", "Midnight ops", "work", 45, 0},
	{"The sunset on the way home painted the whole city purple.", "Purple sky", "nature", 95, 1},
	{"Met a stray cat on the street and bought it a snack. It rubbed against my leg.", "Chance meeting", "life", 90, 2},
	{"Finally tried the coffee place with the long queue. The pour-over was worth it.", "Coffee time", "food", 85, 7},
	{"Weekend cleanup, threw away a pile of things I never used.", "Letting go", "life", 70, 10},
	{"Rainy day on the sofa listening to the rain, doing nothing at all.", "Rain day", "rest", 60, 9},
	{"Finished reading a book on wealth and happiness, lots to think about.", "Reading time", "learning", 80, 8},
	{"Started learning 3D graphics. Fascinating, even if the maths hurts.", "New skill", "learning", 75, 0},
	{"Leg day at the gym. Tomorrow the stairs will be my enemy.", "The burn", "health", 80, 6},
	{"Ten minutes of meditation. Busy mind, but a little calmer afterwards.", "Looking inward", "mindfulness", 65, 5},
	{"Sometimes I wonder whether I am heading in the right direction.", "Lost", "thoughts", 40, 2},
	{"Late night inspiration, wrote a melody I really like.", "Flow state", "creative", 90, 11},
	{"Two hours on the phone with an old friend, felt like university again.", "Catching up", "friends", 88, 11},
}

type SeedReport struct {
	Skipped bool `json:"skipped"`
	Entries int  `json:"entries"`
	Reports int  `json:"reports"`
	Goals   int  `json:"goals"`
}

func isPlaceholderCard(ref string) bool {
	return strings.Contains(ref, regenerate.PlaceholderMarker)
}

// Seed fills an empty journal with days of demo entries, a daily report
// every third day and a handful of goals. A journal with regular entries
// is left untouched.
func (u *UseCase) Seed(ctx context.Context, days int) (*SeedReport, error) {
	if days <= 0 {
		days = DefaultSeedDays
	}

	empty, err := u.repo.IsEmpty(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check whether the journal is empty")
	}
	if !empty {
		logging.From(ctx).Info("journal already has entries, skip seeding")
		return &SeedReport{Skipped: true}, nil
	}

	report := &SeedReport{}
	for _, e := range u.demoEntries(days) {
		if err := u.repo.PutEntry(ctx, e); err != nil {
			return nil, goerr.Wrap(err, "failed to save demo entry", goerr.V("id", e.ID))
		}
		if e.Type == model.EntryTypeDailyReport {
			report.Reports++
		} else {
			report.Entries++
		}
	}

	for _, g := range u.demoGoals() {
		if err := u.repo.PutGoal(ctx, g); err != nil {
			return nil, goerr.Wrap(err, "failed to save demo goal", goerr.V("id", g.ID))
		}
		report.Goals++
	}

	logging.From(ctx).Info("demo data seeded", "entries", report.Entries, "reports", report.Reports, "goals", report.Goals)
	return report, nil
}

func (u *UseCase) demoEntries(days int) []*model.MemoryEntry {
	now := u.now()
	var entries []*model.MemoryEntry

	for i := 0; i < days; i++ {
		dayTime := now.AddDate(0, 0, -i)
		count := 1 + u.rnd.IntN(2)
		var dayTags []string
		seen := map[string]bool{}
		moodSum := 0

		for j := 0; j < count; j++ {
			topic := demoTopics[(i*2+j+u.rnd.IntN(5))%len(demoTopics)]
			ts := dayTime
			if span := min(12*time.Hour, dayTime.Sub(startOfDay(dayTime, u.loc))); span > 0 {
				ts = dayTime.Add(-time.Duration(u.rnd.Int64N(int64(span))))
			}

			if !seen[topic.tag] {
				seen[topic.tag] = true
				dayTags = append(dayTags, topic.tag)
			}
			moodSum += topic.mood

			importance := model.ImportanceMedium
			if u.rnd.Float64() > 0.7 {
				importance = model.ImportanceHigh
			}

			entries = append(entries, &model.MemoryEntry{
				ID:               model.EntryID(fmt.Sprintf("demo-entry-%d-%d", i, j)),
				Timestamp:        ts.UnixMilli(),
				OriginalText:     topic.text,
				GeneratedCardURL: demoImages[(topic.image+j)%len(demoImages)],
				UserMood:         model.IntPtr(topic.mood),
				Title:            topic.title,
				Summary:          topic.text,
				Tags:             []string{topic.tag},
				Rating:           3 + u.rnd.IntN(2),
				Importance:       importance,
				ActionItems:      []string{},
				Type:             model.EntryTypeEntry,
			})
		}

		if i%3 == 0 {
			avg := int(math.Round(float64(moodSum) / float64(count)))
			entries = append(entries, &model.MemoryEntry{
				ID:               model.EntryID(fmt.Sprintf("demo-report-%d", i)),
				Timestamp:        dayTime.UnixMilli(),
				OriginalText:     "Daily summary (demo)",
				GeneratedCardURL: demoImages[(i+99)%len(demoImages)],
				UserMood:         model.IntPtr(avg),
				Title:            "Daily report · " + dayTime.In(u.loc).Format("Jan 2"),
				Summary:          "Keywords of the day: " + strings.Join(dayTags, " ") + ".",
				Tags:             dayTags,
				Rating:           5,
				Importance:       model.ImportanceHigh,
				ActionItems:      []string{},
				Type:             model.EntryTypeDailyReport,
			})
		}
	}

	return entries
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func (u *UseCase) demoGoals() []*model.Goal {
	date := func(offsetDays int) string {
		return u.now().In(u.loc).AddDate(0, 0, offsetDays).Format(model.DateLayout)
	}

	return []*model.Goal{
		{ID: "demo-goal-1", Text: "Learn 3D rendering basics", Deadline: date(14), Status: model.GoalStatusActive},
		{ID: "demo-goal-2", Text: "Write reading notes for the current book", Deadline: date(2), Status: model.GoalStatusActive},
		{ID: "demo-goal-3", Text: "Leg day at the gym once a week", Deadline: date(0), Status: model.GoalStatusActive},
		{ID: "demo-goal-4", Text: "Draft the Q4 product roadmap", Deadline: date(-3), Status: model.GoalStatusCompleted},
		{ID: "demo-goal-5", Text: "Clean up the home office", Deadline: date(-10), Status: model.GoalStatusCompleted},
		{ID: "demo-goal-6", Text: "Meditate ten minutes a day for a week", Deadline: date(7), Status: model.GoalStatusActive},
	}
}

// Clear irreversibly removes every entry and goal
func (u *UseCase) Clear(ctx context.Context) error {
	if err := u.repo.Clear(ctx); err != nil {
		return goerr.Wrap(err, "failed to clear journal")
	}
	logging.From(ctx).Warn("journal cleared")
	return nil
}
