package entity

import "time"

// PlanReason explains why an item was placed on the daily plan.
type PlanReason string

const (
	ReasonDueReview           PlanReason = "due-review"
	ReasonDiagnosticGap       PlanReason = "diagnostic-gap"
	ReasonDiagnosticUncovered PlanReason = "diagnostic-uncovered"
)

// PlannedItem is one concrete slot of a daily plan.
type PlannedItem struct {
	ItemID    string
	ConceptID string
	Reason    PlanReason
	Priority  int32
}

// DailyPlan is a bounded, time-boxed study plan. It is recomputed per
// request and never persisted, so identical inputs must yield identical
// plans.
type DailyPlan struct {
	Date                 time.Time
	Reviews              []PlannedItem
	Diagnostics          []PlannedItem
	TotalItems           int32
	EstimatedTimeMinutes int32
	CoveragePercent      int32
}

// PlanBudget bounds a daily plan. Whichever limit is hit first stops the
// greedy fill.
type PlanBudget struct {
	MaxItems    int32
	MaxMinutes  int32
	ReviewShare float64 // fraction of MaxItems reserved for due reviews first
}
