package entity

import (
	"strings"
	"time"
)

// SessionType classifies a practice session.
type SessionType string

const (
	SessionMixed      SessionType = "mixed"
	SessionDiagnostic SessionType = "diagnostic"
	SessionFocused    SessionType = "focused"
	SessionExam       SessionType = "exam"
)

// ParseSessionType converts an arbitrary string into a supported SessionType.
func ParseSessionType(s string) (SessionType, bool) {
	switch SessionType(strings.ToLower(strings.TrimSpace(s))) {
	case SessionMixed:
		return SessionMixed, true
	case SessionDiagnostic:
		return SessionDiagnostic, true
	case SessionFocused:
		return SessionFocused, true
	case SessionExam:
		return SessionExam, true
	default:
		return "", false
	}
}

// Session groups attempts made in one sitting and carries rollup stats
// stamped at completion.
type Session struct {
	ID             string
	Type           SessionType
	FocusConceptID string // set for focused sessions
	TimeLimitMS    int64  // set for exam sessions
	StartedAt      time.Time
	CompletedAt    time.Time // zero until completed
	TotalItems     int32
	CompletedItems int32
	Accuracy       float64
	AvgConfidence  float64
}

// Completed reports whether the session has been closed.
func (s *Session) Completed() bool { return !s.CompletedAt.IsZero() }

// PerformanceTrend is one completed session projected onto the trends
// timeline.
type PerformanceTrend struct {
	Date           time.Time
	Accuracy       float64
	ItemsCompleted int32
	AvgConfidence  float64
}
