package journal

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/model"
	"github.com/m-mizutani/lifesync/pkg/service/imagegen"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
	"google.golang.org/genai"
)

const defaultMood = 50

type CaptureInput struct {
	Text string

	// Image is an optional photo attached to the note
	Image     []byte
	ImageMIME string

	// Mood defaults to 50 when nil
	Mood  *int
	Style string
}

func (in *CaptureInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.Text, validation.Required, validation.Length(1, 5000)),
		validation.Field(&in.Mood, validation.Min(0), validation.Max(100)),
	)
}

type analysis struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Tags        []string `json:"tags"`
	Rating      int      `json:"rating"`
	Importance  string   `json:"importance"`
	ActionItems []string `json:"actionItems"`
}

var analysisSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"title":       stringSchema("short catchy title, at most 10 words"),
		"summary":     stringSchema("witty, slightly sarcastic summary, at most 50 words"),
		"tags":        stringListSchema("two or three short topic labels"),
		"rating":      {Type: "integer", Minimum: float(1), Maximum: float(5)},
		"importance":  {Type: "string", Enum: []any{"low", "medium", "high"}},
		"actionItems": stringListSchema("concrete next actions"),
	},
	Required: []string{"title", "summary", "tags", "rating", "importance", "actionItems"},
}

func offlineAnalysis(text string) *analysis {
	return &analysis{
		Title:       "Note",
		Summary:     text,
		Tags:        []string{"offline"},
		Rating:      3,
		Importance:  string(model.ImportanceMedium),
		ActionItems: []string{"Configure a Gemini API key to enable AI analysis"},
	}
}

func failedAnalysis(text string) *analysis {
	return &analysis{
		Title:       "Analysis failed",
		Summary:     text,
		Tags:        []string{"error"},
		Rating:      3,
		Importance:  string(model.ImportanceLow),
		ActionItems: []string{},
	}
}

func (a *analysis) normalize() {
	if a.Rating < 1 || a.Rating > 5 {
		a.Rating = 3
	}
	if model.Importance(a.Importance).Validate() != nil {
		a.Importance = string(model.ImportanceMedium)
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.ActionItems == nil {
		a.ActionItems = []string{}
	}
}

func (u *UseCase) analyze(ctx context.Context, in *CaptureInput, mood int) *analysis {
	if !u.Online() {
		return offlineAnalysis(in.Text)
	}

	goals, err := u.repo.ListGoals(ctx)
	if err != nil {
		logging.From(ctx).Warn("failed to load goals for analysis", "error", err)
	}
	var active []string
	for _, g := range goals {
		if g.Status == model.GoalStatusActive {
			active = append(active, " - "+g.Text)
		}
	}
	goalText := "no goals set"
	if len(active) > 0 {
		goalText = "\n" + strings.Join(active, "\n")
	}

	prompt := fmt.Sprintf(`You are a sharp-tongued, funny observer of everyday life. Analyse the user's note.
Keep the summary witty and to the point, and give the title a playful twist.

User mood: %d/100
Active goals: %s
Note: %q`, mood, goalText, in.Text)

	var extra []*genai.Part
	if len(in.Image) > 0 {
		mime := in.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		extra = append(extra, &genai.Part{InlineData: &genai.Blob{Data: in.Image, MIMEType: mime}})
	}

	var result analysis
	if err := u.generateJSON(ctx, prompt, analysisSchema, &result, extra...); err != nil {
		logging.From(ctx).Warn("text analysis failed, use default analysis", "error", err)
		return failedAnalysis(in.Text)
	}
	if result.Summary == "" {
		result.Summary = in.Text
	}
	return &result
}

// Capture analyses a note, renders its card and stores it as a new entry
func (u *UseCase) Capture(ctx context.Context, in CaptureInput) (*model.MemoryEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid capture input")
	}

	mood := defaultMood
	if in.Mood != nil {
		mood = *in.Mood
	}
	style := in.Style
	if style == "" {
		style = imagegen.DefaultStyle
	}

	result := u.analyze(ctx, &in, mood)
	result.normalize()

	card, err := u.images.Generate(ctx, &imagegen.Input{
		Summary: result.Summary,
		Mood:    mood,
		Tags:    result.Tags,
		Style:   style,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate card image")
	}

	entry := &model.MemoryEntry{
		ID:               model.NewEntryID(),
		Timestamp:        u.now().UnixMilli(),
		OriginalText:     in.Text,
		GeneratedCardURL: card.Reference,
		UserMood:         model.IntPtr(mood),
		VisualStyle:      style,
		Title:            result.Title,
		Summary:          result.Summary,
		Tags:             result.Tags,
		Rating:           result.Rating,
		Importance:       model.Importance(result.Importance),
		ActionItems:      result.ActionItems,
		Type:             model.EntryTypeEntry,
	}
	if entry.Title == "" {
		entry.Title = "Note"
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if err := u.repo.PutEntry(ctx, entry); err != nil {
		return nil, goerr.Wrap(err, "failed to save captured entry")
	}

	logging.From(ctx).Info("entry captured", "id", entry.ID, "title", entry.Title, "degraded_card", card.Degraded)
	return entry, nil
}
