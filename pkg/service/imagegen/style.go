package imagegen

import (
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

const DefaultStyle = "chiikawa"

// Style is one entry of the style table. Keywords drive the image model
// prompt; Fallback names the style in the keyless fallback prompt.
type Style struct {
	Keywords string `yaml:"keywords"`
	Fallback string `yaml:"fallback"`
}

type StyleTable struct {
	Poster string           `yaml:"poster"`
	Styles map[string]Style `yaml:"styles"`
}

// DefaultStyles returns the built-in table
func DefaultStyles() *StyleTable {
	return &StyleTable{
		Poster: "cinematic poster design, highly detailed, 8k resolution, minimalist typography aesthetics, surreal atmosphere",
		Styles: map[string]Style{
			"chiikawa": {
				Keywords: "Chiikawa style illustration, cute small creatures, soft pastel colors, simple thick outlines, minimalist, flat colored, kawaii, hand-drawn feel, white background",
				Fallback: "Chiikawa style",
			},
			"maltese": {
				Keywords: "Line Puppy style, Maltese dog character, white fluffy puppy, simple minimalist strokes, funny cute expression, white background, meme style",
				Fallback: "cute white maltese puppy line drawing",
			},
			"naruto": {
				Keywords: "Naruto Shippuden anime style, Masashi Kishimoto art style, cel shaded, dynamic ninja action, manga aesthetics, dramatic lighting, anime screenshot",
				Fallback: "anime ninja style",
			},
			"custom": {
				Keywords: "High quality digital illustration, unique art style, expressive, detailed",
				Fallback: "Chiikawa style",
			},
		},
	}
}

// LoadStyleFile reads a YAML style table and merges it over the defaults.
// Styles present in the file replace built-in ones with the same name.
//
//	poster: "..."
//	styles:
//	  watercolor:
//	    keywords: "soft watercolor painting, paper texture"
//	    fallback: "watercolor style"
func LoadStyleFile(path string) (*StyleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read style file", goerr.V("path", path))
	}

	var file StyleTable
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse style file", goerr.V("path", path))
	}

	table := DefaultStyles()
	if file.Poster != "" {
		table.Poster = file.Poster
	}
	for name, s := range file.Styles {
		name = strings.ToLower(strings.TrimSpace(name))
		if s.Keywords == "" {
			return nil, goerr.New("style has no keywords", goerr.V("path", path), goerr.V("style", name))
		}
		if s.Fallback == "" {
			s.Fallback = name + " style"
		}
		table.Styles[name] = s
	}

	return table, nil
}

func (t *StyleTable) lookup(style string) (Style, bool) {
	if style == "" {
		style = DefaultStyle
	}
	s, ok := t.Styles[style]
	return s, ok
}

// Keywords returns the prompt fragment for style. Posters always use the
// poster fragment; unknown styles are treated as free-form style names.
func (t *StyleTable) Keywords(style string, isPoster bool) string {
	if isPoster {
		return t.Poster
	}
	if s, ok := t.lookup(style); ok {
		return s.Keywords
	}
	return style + " style illustration, high quality, artistic"
}

// FallbackStyle returns the style phrase of the keyless fallback prompt
func (t *StyleTable) FallbackStyle(style string) string {
	if s, ok := t.lookup(style); ok {
		return s.Fallback
	}
	return style + " style"
}

// MoodKeywords maps a 0-100 mood to prompt keywords. Out of range values
// fall into the nearest band.
func MoodKeywords(mood int) string {
	switch {
	case mood < 30:
		return "crying, tears, rainy, gloomy blue tones, sad expression"
	case mood < 70:
		return "relaxing, peaceful, drinking tea, soft bubbles, calm expression"
	default:
		return "happy, jumping, sparkles, warm lighting, cheerful expression, flowers"
	}
}
