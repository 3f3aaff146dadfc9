package catalog

import (
	"fmt"
	"math/rand/v2"
)

// Selector chooses which prompt to play next. The filler pools (fallback,
// ending, transfer) are picked uniformly at random from a single process-wide
// generator. Confirmed-intent prompts are deliberately not randomized: they
// play in catalog order through a per-call FIFO queue so every configured
// response is heard once before any repeats.
type Selector struct {
	catalog *Catalog
	intn    func(n int) int
}

// NewSelector creates a selector over the given catalog.
func NewSelector(c *Catalog) *Selector {
	return &Selector{
		catalog: c,
		intn:    rand.IntN,
	}
}

// NewSelectorWithRand creates a selector with a custom index picker.
// Used by tests that need deterministic picks.
func NewSelectorWithRand(c *Catalog, intn func(n int) int) *Selector {
	return &Selector{catalog: c, intn: intn}
}

// PickFallback returns a random prompt from the union of all undecided
// category pools. Stateless.
func (s *Selector) PickFallback() (string, error) {
	var pool []string
	for _, label := range s.catalog.Undecided {
		pool = append(pool, s.catalog.Prompts[label]...)
	}
	if len(pool) == 0 {
		return "", &ConfigError{Reason: "no undecided prompts configured"}
	}
	return pool[s.intn(len(pool))], nil
}

// PickEnding returns a random prompt from the union of all ending category
// pools. Stateless.
func (s *Selector) PickEnding() (string, error) {
	var pool []string
	for _, label := range s.catalog.Ending {
		pool = append(pool, s.catalog.Prompts[label]...)
	}
	if len(pool) == 0 {
		return "", &ConfigError{Reason: "no ending prompts configured"}
	}
	return pool[s.intn(len(pool))], nil
}

// PickTransfer returns a random prompt from the reserved transfer category.
func (s *Selector) PickTransfer() (string, error) {
	pool := s.catalog.Prompts[TransferIntent]
	if len(pool) == 0 {
		return "", &ConfigError{Reason: fmt.Sprintf("transfer category %q has no prompts", TransferIntent)}
	}
	return pool[s.intn(len(pool))], nil
}

// PickForIntent pops the next prompt from the call's pending queue, refilling
// it from the catalog (in declared order) when empty. The queue is left
// untouched when the intent has no catalog entry.
func (s *Selector) PickForIntent(queue *[]string, intent string) (string, error) {
	if len(*queue) == 0 {
		pool := s.catalog.Prompts[intent]
		if len(pool) == 0 {
			return "", &ConfigError{Reason: fmt.Sprintf("intent %q not found in prompt mapping", intent)}
		}
		*queue = append(*queue, pool...)
	}

	prompt := (*queue)[0]
	*queue = (*queue)[1:]
	return prompt, nil
}

// TransferTo returns the routing address for calls handed to a human.
func (s *Selector) TransferTo() string {
	return s.catalog.TransferTo
}
