package repository

import (
	"context"
	"time"

	"github.com/eslsoft/gapmap/internal/entity"
)

// ListAttemptQuery holds parameters for listing attempts.
type ListAttemptQuery struct {
	Pagination
	FilterOrder
	OrderParams

	ItemID    string
	ConceptID string
	SessionID string
	Since     time.Time
}

// AttemptRepository reads the append-only attempt log. Appending happens
// only through LearningRepository.CommitSubmission so derived state can
// never drift from the log.
type AttemptRepository interface {
	List(ctx context.Context, query *ListAttemptQuery) ([]entity.Attempt, int64, error)
	ListByConcept(ctx context.Context, conceptID string) ([]entity.Attempt, error)
	ListByItem(ctx context.Context, itemID string) ([]entity.Attempt, error)
	CountByConcept(ctx context.Context) (map[string]int64, error)
}

// MemoryStateRepository reads spaced-repetition state per (concept,item)
// pair.
type MemoryStateRepository interface {
	Get(ctx context.Context, conceptID, itemID string) (*entity.MemoryState, error)
	ListByConcept(ctx context.Context, conceptID string) ([]entity.MemoryState, error)
	ListAll(ctx context.Context) ([]entity.MemoryState, error)
}

// MasteryStateRepository reads and writes the derived per-concept cache.
type MasteryStateRepository interface {
	Get(ctx context.Context, conceptID string) (*entity.MasteryState, error)
	ListAll(ctx context.Context) ([]entity.MasteryState, error)
	Put(ctx context.Context, state *entity.MasteryState) error
	Delete(ctx context.Context, conceptID string) error
}

// Submission is the full result of one attempt ingestion: the attempt
// plus every derived state it touched.
type Submission struct {
	Attempt       *entity.Attempt
	MemoryStates  []entity.MemoryState
	MasteryStates []entity.MasteryState
}

// LearningRepository commits a submission atomically: the attempt and
// all derived state updates become visible together or not at all.
// Writes are idempotent on attempt ID; replaying the same submission
// must not double-count.
type LearningRepository interface {
	CommitSubmission(ctx context.Context, sub *Submission) error
}
