// Package classifier resolves a caller utterance to an intent label with a
// confidence score. The classification service is treated as an opaque,
// possibly slow, possibly failing dependency; callers bound each request
// with a context deadline and degrade to their low-confidence path on error.
package classifier

import (
	"context"
	"fmt"

	"github.com/room4-2/switchboard/config"
)

// Result is one classification outcome.
type Result struct {
	Intent string  `json:"intent"`
	Score  float64 `json:"score"` // Confidence in [0,1]
}

// Client classifies free text into an intent.
type Client interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// New builds the classifier selected by configuration. labels is the set of
// intent categories the catalog knows about (used by providers that need to
// enumerate them in a prompt).
func New(ctx context.Context, cfg *config.Config, labels []string) (Client, error) {
	switch cfg.ClassifierProvider {
	case "http":
		return NewHTTPClassifier(cfg.ClassifierURL), nil
	case "gemini":
		return NewGeminiClassifier(ctx, cfg.GeminiAPIKey, labels)
	default:
		return nil, fmt.Errorf("unknown classifier provider: %s", cfg.ClassifierProvider)
	}
}
