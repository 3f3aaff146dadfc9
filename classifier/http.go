package classifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bytedance/sonic"
)

// HTTPClassifier queries a LUIS-style prediction endpoint:
// GET <base>?input=<text> returning {"intent": "...", "score": 0.87}.
type HTTPClassifier struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClassifier creates a classifier against the given endpoint.
// Timeouts are controlled by the caller's context, not the transport.
func NewHTTPClassifier(baseURL string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Classify sends the utterance to the prediction endpoint.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (Result, error) {
	reqURL := c.baseURL + "?input=" + url.QueryEscape(text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build classifier request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read classifier response: %w", err)
	}

	var result Result
	if err := sonic.Unmarshal(body, &result); err != nil {
		return Result{}, fmt.Errorf("failed to parse classifier response: %w", err)
	}
	return result, nil
}
