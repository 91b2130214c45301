package technique

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTechnique is returned for identifiers outside the closed set.
var ErrInvalidTechnique = errors.New("invalid technique")

// Technique selects a formatting wrapper applied to a drafted response.
type Technique string

const (
	None           Technique = "none"
	ChainOfThought Technique = "chain_of_thought"
	FewShot        Technique = "few_shot"
	Socratic       Technique = "socratic"
	Analogical     Technique = "analogical"
	StepByStep     Technique = "step_by_step"
)

// Info describes a technique for catalog listings.
type Info struct {
	ID          Technique `json:"id"`
	Description string    `json:"description"`
}

var catalog = []Info{
	{ID: None, Description: "Returns the drafted response unchanged"},
	{ID: ChainOfThought, Description: "Breaks down complex problems into logical steps"},
	{ID: FewShot, Description: "Uses examples to demonstrate problem-solving approach"},
	{ID: Socratic, Description: "Uses questions to guide thinking and discovery"},
	{ID: Analogical, Description: "Uses comparisons and metaphors for understanding"},
	{ID: StepByStep, Description: "Provides structured, sequential guidance"},
}

// All lists every technique in a fixed order.
func All() []Info {
	return append([]Info(nil), catalog...)
}

// Valid reports whether t is a member of the closed set.
func (t Technique) Valid() bool {
	for _, info := range catalog {
		if info.ID == t {
			return true
		}
	}
	return false
}

// Parse maps a client supplied identifier to a Technique. The empty string
// and the legacy "standard" identifier both mean None.
func Parse(raw string) (Technique, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "", "standard":
		return None, nil
	}
	t := Technique(normalized)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTechnique, raw)
	}
	return t, nil
}
