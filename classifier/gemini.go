package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"google.golang.org/genai"
)

const geminiModel = "models/gemini-2.5-flash"

const geminiPromptTemplate = `Classify this phone caller's utterance into ONE intent. Respond with JSON only.

Intents:
%s
- None: the caller needs a human (complaints, requests outside the listed intents)

Utterance: %s

Respond with: {"intent": "<intent_name>", "score": <confidence between 0 and 1>}`

// GeminiClassifier classifies utterances with a Gemini JSON-only prompt
// enumerating the catalog's intent labels.
type GeminiClassifier struct {
	client *genai.Client
	labels []string
}

// NewGeminiClassifier creates and connects the Gemini client.
func NewGeminiClassifier(ctx context.Context, apiKey string, labels []string) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClassifier{
		client: client,
		labels: labels,
	}, nil
}

// Classify asks the model for an intent and confidence.
func (c *GeminiClassifier) Classify(ctx context.Context, text string) (Result, error) {
	var lines strings.Builder
	for _, label := range c.labels {
		lines.WriteString("- ")
		lines.WriteString(label)
		lines.WriteString("\n")
	}
	prompt := fmt.Sprintf(geminiPromptTemplate, strings.TrimRight(lines.String(), "\n"), text)

	resp, err := c.client.Models.GenerateContent(ctx, geminiModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return Result{}, fmt.Errorf("gemini classification failed: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	var result Result
	if err := sonic.Unmarshal([]byte(raw), &result); err != nil {
		return Result{}, fmt.Errorf("failed to parse gemini classification %q: %w", raw, err)
	}
	return result, nil
}
