package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/bytedance/sonic"
)

// TransferIntent is the reserved label the classifier returns when the caller
// needs a human rather than a canned response.
const TransferIntent = "None"

// ConfigError indicates the prompt catalog is missing a category the dialog
// needs. It is a deployment defect, not a runtime condition to retry.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "prompt catalog: " + e.Reason
}

// Catalog maps intent categories to ordered lists of playable prompt ids.
// It is loaded once at startup and immutable afterwards.
type Catalog struct {
	Prompts    map[string][]string `json:"prompts"`
	Ending     []string            `json:"ending"`    // Categories that end the call
	Undecided  []string            `json:"undecided"` // Categories pooled for the "didn't understand" response
	Start      []string            `json:"start"`     // Greeting prompts, played in order on answer
	TransferTo string              `json:"transferTo"`
}

// Load reads and validates the catalog from a JSON file.
// Malformed or incomplete configuration is fatal at startup.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt catalog: %w", err)
	}

	var c Catalog
	if err := sonic.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every category the dialog can reference at runtime.
// Catching a gap here turns a mid-call server error into a startup failure.
func (c *Catalog) Validate() error {
	if len(c.Prompts) == 0 {
		return &ConfigError{Reason: "no prompt categories configured"}
	}
	if len(c.Start) == 0 {
		return &ConfigError{Reason: "no greeting prompts configured"}
	}
	if c.TransferTo == "" {
		return &ConfigError{Reason: "no transfer destination configured"}
	}
	if len(c.Ending) == 0 {
		return &ConfigError{Reason: "no ending categories configured"}
	}
	if len(c.Undecided) == 0 {
		return &ConfigError{Reason: "no undecided categories configured"}
	}

	for _, label := range c.Ending {
		if len(c.Prompts[label]) == 0 {
			return &ConfigError{Reason: fmt.Sprintf("ending category %q has no prompts", label)}
		}
	}
	for _, label := range c.Undecided {
		if len(c.Prompts[label]) == 0 {
			return &ConfigError{Reason: fmt.Sprintf("undecided category %q has no prompts", label)}
		}
	}
	if len(c.Prompts[TransferIntent]) == 0 {
		return &ConfigError{Reason: fmt.Sprintf("transfer category %q has no prompts", TransferIntent)}
	}
	return nil
}

// IsEnding reports whether the intent label terminates the call when matched
// with sufficient confidence.
func (c *Catalog) IsEnding(intent string) bool {
	for _, label := range c.Ending {
		if label == intent {
			return true
		}
	}
	return false
}

// Greeting returns the prompt played when a call is answered.
func (c *Catalog) Greeting() string {
	return c.Start[0]
}

// Labels returns all intent categories in sorted order, excluding the
// reserved transfer label. Used to build classification prompts.
func (c *Catalog) Labels() []string {
	labels := make([]string, 0, len(c.Prompts))
	for label := range c.Prompts {
		if label == TransferIntent {
			continue
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// AllPrompts returns every prompt id in the catalog: the start pool first,
// then every category pool in sorted label order. Used by cache preloading.
func (c *Catalog) AllPrompts() []string {
	prompts := make([]string, 0, len(c.Start))
	prompts = append(prompts, c.Start...)

	labels := make([]string, 0, len(c.Prompts))
	for label := range c.Prompts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		prompts = append(prompts, c.Prompts[label]...)
	}
	return prompts
}
