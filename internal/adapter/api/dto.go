package api

import (
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/gapmap/internal/entity"
)

type conceptDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Domain      string    `json:"domain"`
	Subdomain   string    `json:"subdomain,omitempty"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"create_time"`
	UpdatedAt   time.Time `json:"update_time"`
}

func toConceptDTO(c entity.Concept) conceptDTO {
	return conceptDTO{
		ID:          c.ID,
		Name:        c.Name,
		Domain:      c.Domain,
		Subdomain:   c.Subdomain,
		Description: c.Description,
		Tags:        c.Tags,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type conceptRequest struct {
	Name        string   `json:"name"`
	Domain      string   `json:"domain"`
	Subdomain   string   `json:"subdomain"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (r conceptRequest) toEntity(id string) *entity.Concept {
	return &entity.Concept{
		ID:          id,
		Name:        r.Name,
		Domain:      r.Domain,
		Subdomain:   r.Subdomain,
		Description: r.Description,
		Tags:        r.Tags,
	}
}

type itemDTO struct {
	ID            string                `json:"id"`
	Stem          string                `json:"stem"`
	Type          string                `json:"type"`
	ConceptIDs    []string              `json:"concept_ids"`
	Difficulty    int32                 `json:"difficulty,omitempty"`
	Source        string                `json:"source,omitempty"`
	Explanation   string                `json:"explanation,omitempty"`
	Choices       []entity.MCQOption    `json:"choices,omitempty"`
	CorrectAnswer string                `json:"correct_answer,omitempty"`
	CalcTemplate  *entity.CalcTemplate  `json:"calc_template,omitempty"`
	CaseSteps     []entity.CaseStep     `json:"case_steps,omitempty"`
	ClozeText     string                `json:"cloze_text,omitempty"`
	ClozeBlanks   []entity.ClozeBlank   `json:"cloze_blanks,omitempty"`
	CreatedAt     time.Time             `json:"create_time"`
	UpdatedAt     time.Time             `json:"update_time"`
}

func toItemDTO(it entity.Item) itemDTO {
	return itemDTO{
		ID:            it.ID,
		Stem:          it.Stem,
		Type:          string(it.Type),
		ConceptIDs:    it.ConceptIDs,
		Difficulty:    it.Difficulty,
		Source:        it.Source,
		Explanation:   it.Explanation,
		Choices:       it.Choices,
		CorrectAnswer: it.CorrectAnswer,
		CalcTemplate:  it.CalcTemplate,
		CaseSteps:     it.CaseSteps,
		ClozeText:     it.ClozeText,
		ClozeBlanks:   it.ClozeBlanks,
		CreatedAt:     it.CreatedAt,
		UpdatedAt:     it.UpdatedAt,
	}
}

type itemRequest struct {
	Stem          string               `json:"stem"`
	Type          string               `json:"type"`
	ConceptIDs    []string             `json:"concept_ids"`
	Difficulty    int32                `json:"difficulty"`
	Source        string               `json:"source"`
	Explanation   string               `json:"explanation"`
	Choices       []entity.MCQOption   `json:"choices"`
	CorrectAnswer string               `json:"correct_answer"`
	CalcTemplate  *entity.CalcTemplate `json:"calc_template"`
	CaseSteps     []entity.CaseStep    `json:"case_steps"`
	ClozeText     string               `json:"cloze_text"`
	ClozeBlanks   []entity.ClozeBlank  `json:"cloze_blanks"`
}

func (r itemRequest) toEntity(id string) *entity.Item {
	return &entity.Item{
		ID:            id,
		Stem:          r.Stem,
		Type:          entity.ItemType(r.Type),
		ConceptIDs:    r.ConceptIDs,
		Difficulty:    r.Difficulty,
		Source:        r.Source,
		Explanation:   r.Explanation,
		Choices:       r.Choices,
		CorrectAnswer: r.CorrectAnswer,
		CalcTemplate:  r.CalcTemplate,
		CaseSteps:     r.CaseSteps,
		ClozeText:     r.ClozeText,
		ClozeBlanks:   r.ClozeBlanks,
	}
}

type attemptDTO struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	SessionID   string    `json:"session_id,omitempty"`
	ConceptIDs  []string  `json:"concept_ids"`
	UserAnswer  string    `json:"user_answer,omitempty"`
	IsCorrect   bool      `json:"is_correct"`
	Confidence  int32     `json:"confidence"`
	TimeSpentMS int64     `json:"time_spent_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

func toAttemptDTO(a entity.Attempt) attemptDTO {
	return attemptDTO{
		ID:          a.ID,
		ItemID:      a.ItemID,
		SessionID:   a.SessionID,
		ConceptIDs:  a.ConceptIDs,
		UserAnswer:  a.UserAnswer,
		IsCorrect:   a.IsCorrect,
		Confidence:  a.Confidence,
		TimeSpentMS: a.TimeSpentMS,
		Timestamp:   a.Timestamp,
	}
}

type masteryDTO struct {
	ConceptID     string    `json:"concept_id"`
	ConceptName   string    `json:"concept_name"`
	Domain        string    `json:"domain"`
	MasteryScore  float64   `json:"mastery_score"`
	Attempts      int32     `json:"attempts"`
	Correct       int32     `json:"correct"`
	AvgConfidence float64   `json:"avg_confidence"`
	BrierScore    float64   `json:"brier_score"`
	Stability     float64   `json:"stability"`
	DueBacklog    int32     `json:"due_backlog"`
	Trend         string    `json:"trend"`
	Covered       bool      `json:"covered"`
	LastAttempted time.Time `json:"last_attempted,omitzero"`
	UpdatedAt     time.Time `json:"update_time,omitzero"`
}

func toMasteryDTO(m entity.MasteryState) masteryDTO {
	return masteryDTO{
		ConceptID:     m.ConceptID,
		ConceptName:   m.ConceptName,
		Domain:        m.Domain,
		MasteryScore:  m.MasteryScore,
		Attempts:      m.Attempts,
		Correct:       m.Correct,
		AvgConfidence: m.AvgConfidence,
		BrierScore:    m.BrierScore,
		Stability:     m.Stability,
		DueBacklog:    m.DueBacklog,
		Trend:         string(m.Trend),
		Covered:       m.Covered(),
		LastAttempted: m.LastAttempted,
		UpdatedAt:     m.UpdatedAt,
	}
}

type gapDTO struct {
	ConceptID    string  `json:"concept_id"`
	ConceptName  string  `json:"concept_name"`
	Domain       string  `json:"domain"`
	MasteryScore float64 `json:"mastery_score"`
	Stability    float64 `json:"stability"`
	DueBacklog   int32   `json:"due_backlog"`
	Trend        string  `json:"trend"`
	Severity     string  `json:"severity"`
}

func toGapDTO(g entity.GapSummary) gapDTO {
	return gapDTO{
		ConceptID:    g.ConceptID,
		ConceptName:  g.ConceptName,
		Domain:       g.Domain,
		MasteryScore: g.MasteryScore,
		Stability:    g.Stability,
		DueBacklog:   g.DueBacklog,
		Trend:        string(g.Trend),
		Severity:     g.Severity,
	}
}

type plannedItemDTO struct {
	ItemID    string `json:"item_id"`
	ConceptID string `json:"concept_id"`
	Reason    string `json:"reason"`
	Priority  int32  `json:"priority"`
}

type planDTO struct {
	Date                 string           `json:"date"`
	Reviews              []plannedItemDTO `json:"reviews"`
	Diagnostics          []plannedItemDTO `json:"diagnostics"`
	TotalItems           int32            `json:"total_items"`
	EstimatedTimeMinutes int32            `json:"estimated_time_minutes"`
	CoveragePercent      int32            `json:"coverage_percent"`
}

func toPlanDTO(p entity.DailyPlan) planDTO {
	toSlot := func(it entity.PlannedItem, _ int) plannedItemDTO {
		return plannedItemDTO{
			ItemID:    it.ItemID,
			ConceptID: it.ConceptID,
			Reason:    string(it.Reason),
			Priority:  it.Priority,
		}
	}
	return planDTO{
		Date:                 p.Date.Format("2006-01-02"),
		Reviews:              lo.Map(p.Reviews, toSlot),
		Diagnostics:          lo.Map(p.Diagnostics, toSlot),
		TotalItems:           p.TotalItems,
		EstimatedTimeMinutes: p.EstimatedTimeMinutes,
		CoveragePercent:      p.CoveragePercent,
	}
}

type sessionDTO struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	FocusConceptID string    `json:"focus_concept_id,omitempty"`
	TimeLimitMS    int64     `json:"time_limit_ms,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at,omitzero"`
	TotalItems     int32     `json:"total_items"`
	CompletedItems int32     `json:"completed_items"`
	Accuracy       float64   `json:"accuracy"`
	AvgConfidence  float64   `json:"avg_confidence"`
}

func toSessionDTO(s entity.Session) sessionDTO {
	return sessionDTO{
		ID:             s.ID,
		Type:           string(s.Type),
		FocusConceptID: s.FocusConceptID,
		TimeLimitMS:    s.TimeLimitMS,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		TotalItems:     s.TotalItems,
		CompletedItems: s.CompletedItems,
		Accuracy:       s.Accuracy,
		AvgConfidence:  s.AvgConfidence,
	}
}

type trendDTO struct {
	Date           time.Time `json:"date"`
	Accuracy       float64   `json:"accuracy"`
	ItemsCompleted int32     `json:"items_completed"`
	AvgConfidence  float64   `json:"avg_confidence"`
}

func toTrendDTO(t entity.PerformanceTrend) trendDTO {
	return trendDTO{
		Date:           t.Date,
		Accuracy:       t.Accuracy,
		ItemsCompleted: t.ItemsCompleted,
		AvgConfidence:  t.AvgConfidence,
	}
}
