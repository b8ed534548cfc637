package journal

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifesync/pkg/adapter"
	"google.golang.org/genai"
)

// CleanJSON strips markdown code fences and any chatter around the outermost
// JSON object of a model response.
func CleanJSON(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}

	cleaned := strings.ReplaceAll(s, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first != -1 && last > first {
		cleaned = cleaned[first : last+1]
	}
	return cleaned
}

func (u *UseCase) generateJSON(ctx context.Context, prompt string, schema *jsonschema.Schema, out any, extra ...*genai.Part) error {
	responseSchema, err := convertSchema(schema)
	if err != nil {
		return goerr.Wrap(err, "failed to convert response schema")
	}

	parts := append([]*genai.Part{{Text: prompt}}, extra...)
	contents := []*genai.Content{{Role: string(genai.RoleUser), Parts: parts}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	}

	resp, err := u.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return err
	}

	text := adapter.ResponseText(resp)
	if err := json.Unmarshal([]byte(CleanJSON(text)), out); err != nil {
		return goerr.Wrap(err, "failed to decode model response", goerr.V("text", text))
	}
	return nil
}

func (u *UseCase) generateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := u.gemini.GenerateContent(ctx, contents, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(adapter.ResponseText(resp)), nil
}

// convertSchema maps a JSON Schema onto the subset genai understands
func convertSchema(schema *jsonschema.Schema) (*genai.Schema, error) {
	if schema == nil {
		return nil, nil
	}

	out := &genai.Schema{
		Description: schema.Description,
		Required:    schema.Required,
		Minimum:     schema.Minimum,
		Maximum:     schema.Maximum,
	}

	switch schema.Type {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
	case "":
	default:
		return nil, goerr.New("unsupported schema type", goerr.V("type", schema.Type))
	}

	for _, v := range schema.Enum {
		if s, ok := v.(string); ok {
			out.Enum = append(out.Enum, s)
		}
	}

	if len(schema.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(schema.Properties))
		for name, prop := range schema.Properties {
			converted, err := convertSchema(prop)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to convert property schema", goerr.V("property", name))
			}
			out.Properties[name] = converted
		}
	}

	if schema.Items != nil {
		items, err := convertSchema(schema.Items)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert items schema")
		}
		out.Items = items
	}

	return out, nil
}

func stringSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func stringListSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: desc, Items: &jsonschema.Schema{Type: "string"}}
}

func float(v float64) *float64 { return &v }
