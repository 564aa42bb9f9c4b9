package entity

import (
	"strings"
	"time"
)

// ItemType discriminates the practice item variants.
type ItemType string

const (
	ItemTypeMCQ        ItemType = "mcq"
	ItemTypeFreeRecall ItemType = "free-recall"
	ItemTypeCalc       ItemType = "calc"
	ItemTypeCase       ItemType = "case"
	ItemTypeCloze      ItemType = "cloze"
)

// ParseItemType converts an arbitrary string into a supported ItemType.
func ParseItemType(s string) (ItemType, bool) {
	switch ItemType(strings.ToLower(strings.TrimSpace(s))) {
	case ItemTypeMCQ:
		return ItemTypeMCQ, true
	case ItemTypeFreeRecall:
		return ItemTypeFreeRecall, true
	case ItemTypeCalc:
		return ItemTypeCalc, true
	case ItemTypeCase:
		return ItemTypeCase, true
	case ItemTypeCloze:
		return ItemTypeCloze, true
	default:
		return "", false
	}
}

// EstimatedMinutes is the fixed per-type time cost used by the plan
// builder's time budget.
func (t ItemType) EstimatedMinutes() float64 {
	switch t {
	case ItemTypeMCQ:
		return 1
	case ItemTypeFreeRecall:
		return 1.5
	case ItemTypeCloze:
		return 2
	case ItemTypeCalc:
		return 3
	case ItemTypeCase:
		return 4
	default:
		return 2
	}
}

// MCQOption is a single multiple-choice answer option.
type MCQOption struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

// CalcTemplate describes a numeric calculation exercise.
type CalcTemplate struct {
	Formula        string         `json:"formula"`
	Variables      []CalcVariable `json:"variables"`
	CorrectAnswer  float64        `json:"correct_answer"`
	Unit           string         `json:"unit"`
	WorkedSolution []string       `json:"worked_solution,omitempty"`
}

type CalcVariable struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// CaseStep is one step of a case vignette.
type CaseStep struct {
	StepNumber    int    `json:"step_number"`
	Prompt        string `json:"prompt"`
	CorrectAnswer string `json:"correct_answer"`
	Points        int    `json:"points"`
	Explanation   string `json:"explanation,omitempty"`
}

// ClozeBlank is one fill-in blank of a cloze item.
type ClozeBlank struct {
	ID            string `json:"id"`
	CorrectAnswer string `json:"correct_answer"`
}

// Item is a practice item targeting one or more concepts. Which variant
// fields are populated is determined by Type; exactly one variant is
// expected to be set.
type Item struct {
	ID            string
	Stem          string
	Type          ItemType
	ConceptIDs    []string
	Difficulty    int32 // author-set prior 0-100, distinct from FSRS difficulty
	Source        string
	Explanation   string
	Choices       []MCQOption
	CorrectAnswer string
	CalcTemplate  *CalcTemplate
	CaseSteps     []CaseStep
	ClozeText     string
	ClozeBlanks   []ClozeBlank
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Normalize ensures defaults & constraints before persistence.
func (it *Item) Normalize(now time.Time) {
	it.Stem = strings.TrimSpace(it.Stem)
	if it.ConceptIDs == nil {
		it.ConceptIDs = []string{}
	}
	if it.Difficulty < 0 {
		it.Difficulty = 0
	}
	if it.Difficulty > 100 {
		it.Difficulty = 100
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
}

// Validate reports whether the item is acceptable for persistence.
func (it *Item) Validate() error {
	if _, ok := ParseItemType(string(it.Type)); !ok {
		return ErrInvalidItemType
	}
	if len(it.ConceptIDs) == 0 {
		return ErrItemWithoutConcepts
	}
	return nil
}

// TargetsConcept reports whether the item lists the given concept.
func (it *Item) TargetsConcept(conceptID string) bool {
	for _, id := range it.ConceptIDs {
		if id == conceptID {
			return true
		}
	}
	return false
}
