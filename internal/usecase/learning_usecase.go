package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/fsrs"
	"github.com/eslsoft/gapmap/internal/mastery"
	"github.com/eslsoft/gapmap/internal/repository"
)

// SubmitAttemptInput carries one pre-scored answer into the engine.
// Correctness is decided before this layer; confidence and time are
// validated here, before any state mutation.
type SubmitAttemptInput struct {
	ItemID      string
	SessionID   string
	UserAnswer  string
	IsCorrect   bool
	Confidence  int32
	TimeSpentMS int64
}

// LearningUsecase is the validated entry point for new evidence plus the
// due-review queries derived from it.
type LearningUsecase interface {
	SubmitAttempt(ctx context.Context, input SubmitAttemptInput) (*entity.Attempt, error)
	NextReviewItem(ctx context.Context, asOf time.Time) (*entity.Item, error)
	CountDue(ctx context.Context, asOf time.Time) (int64, error)
}

// NewLearningUsecase wires the repositories with the stability model and
// mastery estimator.
func NewLearningUsecase(
	items repository.ItemRepository,
	concepts repository.ConceptRepository,
	attempts repository.AttemptRepository,
	memories repository.MemoryStateRepository,
	learning repository.LearningRepository,
	sched *fsrs.Scheduler,
	estimator *mastery.Estimator,
	logger *logrus.Logger,
) LearningUsecase {
	return &learningUsecase{
		items:     items,
		concepts:  concepts,
		attempts:  attempts,
		memories:  memories,
		learning:  learning,
		sched:     sched,
		estimator: estimator,
		logger:    logger,
		clock:     time.Now,
	}
}

type learningUsecase struct {
	items     repository.ItemRepository
	concepts  repository.ConceptRepository
	attempts  repository.AttemptRepository
	memories  repository.MemoryStateRepository
	learning  repository.LearningRepository
	sched     *fsrs.Scheduler
	estimator *mastery.Estimator
	logger    *logrus.Logger
	clock     func() time.Time

	// Serializes submissions so memory/mastery read-modify-write cycles
	// never interleave (single local profile, single logical writer).
	mu sync.Mutex
}

func (u *learningUsecase) SubmitAttempt(ctx context.Context, input SubmitAttemptInput) (*entity.Attempt, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	now := u.clock()
	attempt := &entity.Attempt{
		ID:          uuid.New().String(),
		ItemID:      input.ItemID,
		SessionID:   input.SessionID,
		UserAnswer:  input.UserAnswer,
		IsCorrect:   input.IsCorrect,
		Confidence:  input.Confidence,
		TimeSpentMS: input.TimeSpentMS,
		Timestamp:   now,
	}
	if err := attempt.Validate(); err != nil {
		return nil, err
	}

	item, err := u.items.GetByID(ctx, input.ItemID)
	if err != nil {
		return nil, err
	}
	// Denormalize the item's current concepts onto the attempt so later
	// recomputes survive item deletion.
	attempt.ConceptIDs = append([]string{}, item.ConceptIDs...)

	sub := &repository.Submission{Attempt: attempt}
	for _, conceptID := range attempt.ConceptIDs {
		memState, err := u.nextMemoryState(ctx, conceptID, attempt)
		if err != nil {
			return nil, err
		}
		masteryState, err := u.recomputeMastery(ctx, conceptID, attempt, memState, now)
		if err != nil {
			return nil, err
		}
		sub.MemoryStates = append(sub.MemoryStates, memState)
		sub.MasteryStates = append(sub.MasteryStates, *masteryState)
	}

	if err := u.learning.CommitSubmission(ctx, sub); err != nil {
		return nil, err
	}
	return attempt, nil
}

// nextMemoryState folds the attempt into the (concept,item) pair state,
// initializing on first exposure. An out-of-range result is a modeling
// bug: it is logged and the submission is rejected so the previous valid
// state stays published.
func (u *learningUsecase) nextMemoryState(ctx context.Context, conceptID string, attempt *entity.Attempt) (entity.MemoryState, error) {
	prev, err := u.memories.Get(ctx, conceptID, attempt.ItemID)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		return entity.MemoryState{}, err
	}

	var next entity.MemoryState
	if prev == nil {
		next = u.sched.InitialState(conceptID, attempt.ItemID, attempt)
	} else {
		next = u.sched.UpdateState(*prev, attempt)
	}
	if err := next.CheckInvariants(); err != nil {
		u.logger.WithFields(logrus.Fields{
			"concept_id": conceptID,
			"item_id":    attempt.ItemID,
			"stability":  next.Stability,
			"difficulty": next.Difficulty,
		}).Error("memory state escaped its defined range; rejecting submission")
		return entity.MemoryState{}, err
	}
	return next, nil
}

// recomputeMastery rebuilds the concept's derived state from the full
// attempt log (including the in-flight attempt) and its memory states
// with the freshly computed pair substituted in.
func (u *learningUsecase) recomputeMastery(ctx context.Context, conceptID string, attempt *entity.Attempt, updated entity.MemoryState, now time.Time) (*entity.MasteryState, error) {
	history, err := u.attempts.ListByConcept(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	history = append(history, *attempt)

	states, err := u.memories.ListByConcept(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	replaced := false
	for i := range states {
		if states[i].ItemID == updated.ItemID {
			states[i] = updated
			replaced = true
			break
		}
	}
	if !replaced {
		states = append(states, updated)
	}

	state := u.estimator.Recompute(conceptID, history, states)
	state.DueBacklog = u.dueBacklog(states, now)
	state.UpdatedAt = now
	if concept, err := u.concepts.GetByID(ctx, conceptID); err == nil {
		state.ConceptName = concept.Name
		state.Domain = concept.Domain
	}

	if err := state.CheckInvariants(); err != nil {
		u.logger.WithField("concept_id", conceptID).
			WithField("mastery_score", state.MasteryScore).
			Error("mastery state escaped its defined range; rejecting submission")
		return nil, err
	}
	return &state, nil
}

func (u *learningUsecase) dueBacklog(states []entity.MemoryState, asOf time.Time) int32 {
	var n int32
	for i := range states {
		if u.sched.IsDue(&states[i], asOf) {
			n++
		}
	}
	return n
}

// NextReviewItem returns the due item most at risk of being forgotten,
// or nil when nothing is due.
func (u *learningUsecase) NextReviewItem(ctx context.Context, asOf time.Time) (*entity.Item, error) {
	states, err := u.memories.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]entity.MemoryState, 0)
	for i := range states {
		if u.sched.IsDue(&states[i], asOf) {
			due = append(due, states[i])
		}
	}
	sort.Slice(due, func(i, j int) bool {
		ri := u.sched.RetrievabilityAt(&due[i], asOf)
		rj := u.sched.RetrievabilityAt(&due[j], asOf)
		if ri != rj {
			return ri < rj
		}
		return due[i].ItemID < due[j].ItemID
	})

	for i := range due {
		item, err := u.items.GetByID(ctx, due[i].ItemID)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				continue // item deleted; its history remains but nothing to serve
			}
			return nil, err
		}
		return item, nil
	}
	return nil, nil
}

func (u *learningUsecase) CountDue(ctx context.Context, asOf time.Time) (int64, error) {
	states, err := u.memories.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for i := range states {
		if u.sched.IsDue(&states[i], asOf) {
			n++
		}
	}
	return n, nil
}
