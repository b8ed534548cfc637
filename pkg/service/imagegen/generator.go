package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/adapter"
	"github.com/m-mizutani/lifesync/pkg/utils/logging"
	"google.golang.org/genai"
)

var (
	ErrNoCredential = goerr.New("no generation credential configured")
	ErrNoImageData  = goerr.New("no image data in response")
)

const (
	maxSubjectRunes = 100
	fallbackBaseURL = "https://image.pollinations.ai/prompt/"
	defaultMIMEType = "image/png"
)

type Input struct {
	Summary  string
	Mood     int
	Tags     []string
	IsPoster bool
	Style    string

	// Strict returns generation failures to the caller instead of degrading
	// to the fallback reference.
	Strict bool
}

// Result is either a generated image (data URI) or a degraded fallback URL.
// Cause is set when Degraded is true.
type Result struct {
	Reference string
	Degraded  bool
	Cause     error
}

type Generator struct {
	gemini adapter.Gemini
	styles *StyleTable
}

type Option func(*Generator)

func WithStyles(styles *StyleTable) Option {
	return func(g *Generator) {
		g.styles = styles
	}
}

// New creates a generator. A nil gemini means no credential is configured:
// every call returns the fallback reference.
func New(gemini adapter.Gemini, opts ...Option) *Generator {
	g := &Generator{
		gemini: gemini,
		styles: DefaultStyles(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// HasCredential reports whether calls reach the image model
func (g *Generator) HasCredential() bool {
	return g.gemini != nil
}

func (g *Generator) Styles() *StyleTable {
	return g.styles
}

func subject(summary string) string {
	r := []rune(summary)
	if len(r) > maxSubjectRunes {
		r = r[:maxSubjectRunes]
	}
	return strings.ReplaceAll(string(r), "\n", " ")
}

func firstTags(tags []string, n int) []string {
	if len(tags) > n {
		return tags[:n]
	}
	return tags
}

// Prompt builds the image model prompt for input
func (g *Generator) Prompt(input *Input) string {
	return fmt.Sprintf("Style: %s. Subject: %s. Mood context: %s. Tags: %s.",
		g.styles.Keywords(input.Style, input.IsPoster),
		subject(input.Summary),
		MoodKeywords(input.Mood),
		strings.Join(firstTags(input.Tags, 2), ", "),
	)
}

// FallbackReference builds the keyless image URL for input. The same input
// always yields the same URL.
func (g *Generator) FallbackReference(input *Input) string {
	prompt := fmt.Sprintf("%s illustration of %s, %s, thick outlines, minimalist wallpaper",
		g.styles.FallbackStyle(input.Style),
		subject(input.Summary),
		MoodKeywords(input.Mood),
	)

	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	seed := h.Sum32() % 10000

	return fmt.Sprintf("%s%s?width=1024&height=1024&nologo=true&seed=%d&model=flux",
		fallbackBaseURL, url.PathEscape(prompt), seed)
}

func (g *Generator) degraded(ctx context.Context, input *Input, cause error) *Result {
	ref := g.FallbackReference(input)
	logging.From(ctx).Warn("image generation degraded to fallback",
		slog.String("style", input.Style),
		slog.Any("cause", cause),
	)
	return &Result{Reference: ref, Degraded: true, Cause: cause}
}

// Generate produces one stylized image reference. Without a credential the
// fallback is returned even when Strict is set. A cancelled context is always
// returned as an error.
func (g *Generator) Generate(ctx context.Context, input *Input) (*Result, error) {
	if g.gemini == nil {
		return g.degraded(ctx, input, ErrNoCredential), nil
	}

	ref, err := g.generate(ctx, input)
	if err == nil {
		return &Result{Reference: ref}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, goerr.Wrap(ctxErr, "image generation interrupted")
	}
	if input.Strict {
		return nil, err
	}
	return g.degraded(ctx, input, err), nil
}

func (g *Generator) generate(ctx context.Context, input *Input) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(g.Prompt(input), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	resp, err := g.gemini.GenerateImage(ctx, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "image model request failed", goerr.V("style", input.Style))
	}

	ref, ok := InlineImage(resp)
	if !ok {
		return "", goerr.Wrap(ErrNoImageData, "image model returned no inline image", goerr.V("style", input.Style))
	}
	return ref, nil
}

// InlineImage returns the first inline image of resp as a data URI
func InlineImage(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = defaultMIMEType
		}
		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data), true
	}
	return "", false
}
