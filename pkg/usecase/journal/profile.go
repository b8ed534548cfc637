package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
)

const (
	profileWindow = 30
	coachWindow   = 15
)

var profileSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"archetype":           stringSchema("nickname or archetype of the author"),
		"summary":             stringSchema("one sentence on the recent state, at most 50 words"),
		"strengths":           stringListSchema("three strengths"),
		"areasForImprovement": stringListSchema("three areas to improve"),
		"recentMood":          stringSchema("recent mood in one or two words"),
		"detailedAnalysis":    stringSchema("100 to 150 words of deeper analysis"),
	},
	Required: []string{"archetype", "summary", "strengths", "areasForImprovement", "recentMood", "detailedAnalysis"},
}

var profileInstructions = map[model.ProfileMode]string{
	model.ProfileModeWitty: `You are a witty, sharp-eyed profiler. Build a funny portrait of the journal author.
Give them a playful nickname, list strengths that sound like jokes and side effects that sting a little,
but keep the detailed analysis grounded in their actual behaviour.`,
	model.ProfileModeFormal: `You are an experienced counsellor and career coach. Build a professional, warm and
objective portrait of the journal author. Use established psychological vocabulary for the archetype,
describe strengths and development areas constructively, and explain behavioural patterns in the analysis.`,
}

func offlineProfile() *model.UserProfile {
	return &model.UserProfile{
		Archetype:           "Unknown passer-by",
		Summary:             "Configure a Gemini API key to unlock your profile.",
		DetailedAnalysis:    "Not enough data for a deeper analysis.",
		Strengths:           []string{},
		AreasForImprovement: []string{},
		RecentMood:          "Foggy",
	}
}

func failedProfile() *model.UserProfile {
	return &model.UserProfile{
		Archetype:           "Disconnected",
		Summary:             "The profile service is taking a break.",
		DetailedAnalysis:    "Check the API configuration and the network connection.",
		Strengths:           []string{"Patience"},
		AreasForImprovement: []string{"Connectivity"},
		RecentMood:          "Offline",
	}
}

// Profile builds a portrait from the most recent entries. Model failures
// degrade to a placeholder profile rather than an error.
func (u *UseCase) Profile(ctx context.Context, mode model.ProfileMode) (*model.UserProfile, error) {
	if mode == "" {
		mode = model.ProfileModeWitty
	}
	instruction, ok := profileInstructions[mode]
	if !ok {
		return nil, goerr.Wrap(ErrInvalidProfileMode, "unknown profile mode", goerr.V("mode", mode))
	}
	if !u.Online() {
		return offlineProfile(), nil
	}

	recent, err := u.Timeline(ctx, profileWindow)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(recent))
	for _, e := range recent {
		lines = append(lines, fmt.Sprintf("[Mood:%d] %s: %s", e.Mood(defaultMood), e.Title, e.Summary))
	}
	prompt := instruction + "\n\nRecords:\n" + strings.Join(lines, "\n")

	var profile model.UserProfile
	if err := u.generateJSON(ctx, prompt, profileSchema, &profile); err != nil {
		logging.From(ctx).Warn("profile generation failed", "error", err, "mode", mode)
		return failedProfile(), nil
	}
	return &profile, nil
}

// Coach gives short feedback on how recent entries serve the active goals
func (u *UseCase) Coach(ctx context.Context) (string, error) {
	if !u.Online() {
		return "Configure a Gemini API key to get coaching.", nil
	}

	goals, err := u.ListGoals(ctx, model.GoalStatusActive)
	if err != nil {
		return "", err
	}
	if len(goals) == 0 {
		return "No active goals.", nil
	}

	recent, err := u.Timeline(ctx, coachWindow)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a tough but fair coach. The user's goals are:\n")
	for _, g := range goals {
		fmt.Fprintf(&b, "- %s (deadline %s)\n", g.Text, g.Deadline)
	}
	b.WriteString("\nRecent journal entries:\n")
	for _, e := range recent {
		fmt.Fprintf(&b, "- %s: %s\n", e.Title, e.Summary)
	}
	b.WriteString("\nJudge whether the user is working towards these goals and give short, pointed feedback with one next action, under 100 words.")

	feedback, err := u.generateText(ctx, b.String())
	if err != nil || feedback == "" {
		logging.From(ctx).Warn("coach generation failed", "error", err)
		return "Coaching service is unavailable right now.", nil
	}
	return feedback, nil
}
