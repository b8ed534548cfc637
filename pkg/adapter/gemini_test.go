package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/lifesync/pkg/adapter"
	"google.golang.org/genai"
)

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := adapter.NewGemini(context.Background(), "", "")
	gt.Error(t, err)
}

func TestResponseText(t *testing.T) {
	gt.Equal(t, adapter.ResponseText(nil), "")

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []*genai.Part{
						{Text: "{\"title\":"},
						{InlineData: &genai.Blob{Data: []byte{1}, MIMEType: "image/png"}},
						{Text: "\"Walk\"}"},
					},
				},
			},
		},
	}
	gt.Equal(t, adapter.ResponseText(resp), "{\"title\":\"Walk\"}")
}

func TestGenerateContent(t *testing.T) {
	apiKey := os.Getenv("TEST_GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_GEMINI_API_KEY is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewGemini(ctx, apiKey, os.Getenv("TEST_GEMINI_BASE_URL"))
	gt.NoError(t, err)

	contents := []*genai.Content{
		genai.NewContentFromText("Describe a quiet morning in one sentence.", genai.RoleUser),
	}

	resp, err := client.GenerateContent(ctx, contents, nil)
	gt.NoError(t, err)
	gt.NotEqual(t, adapter.ResponseText(resp), "")
}
