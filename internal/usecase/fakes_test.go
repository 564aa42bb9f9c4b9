package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/repository"
)

func cloneConcept(c *entity.Concept) *entity.Concept {
	copy := *c
	copy.Tags = append([]string{}, c.Tags...)
	return &copy
}

func cloneItem(it *entity.Item) *entity.Item {
	copy := *it
	copy.ConceptIDs = append([]string{}, it.ConceptIDs...)
	return &copy
}

func cloneAttempt(a *entity.Attempt) *entity.Attempt {
	copy := *a
	copy.ConceptIDs = append([]string{}, a.ConceptIDs...)
	return &copy
}

type fakeConceptRepo struct {
	mu    sync.RWMutex
	items map[string]*entity.Concept
}

func newFakeConceptRepo() *fakeConceptRepo {
	return &fakeConceptRepo{items: make(map[string]*entity.Concept)}
}

func (r *fakeConceptRepo) Create(ctx context.Context, c *entity.Concept) (*entity.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = cloneConcept(c)
	return cloneConcept(c), nil
}

func (r *fakeConceptRepo) Update(ctx context.Context, c *entity.Concept) (*entity.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.ID]; !ok {
		return nil, entity.ErrConceptNotFound
	}
	r.items[c.ID] = cloneConcept(c)
	return cloneConcept(c), nil
}

func (r *fakeConceptRepo) GetByID(ctx context.Context, id string) (*entity.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, entity.ErrConceptNotFound
	}
	return cloneConcept(c), nil
}

func (r *fakeConceptRepo) List(ctx context.Context, query *repository.ListConceptQuery) ([]entity.Concept, int64, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	filtered := make([]entity.Concept, 0, len(all))
	for _, c := range all {
		if query != nil && query.Keyword != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(query.Keyword)) {
			continue
		}
		if query != nil && query.Domain != "" && c.Domain != query.Domain {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered, int64(len(filtered)), nil
}

func (r *fakeConceptRepo) ListAll(ctx context.Context) ([]entity.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Concept, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, *cloneConcept(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeConceptRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return entity.ErrConceptNotFound
	}
	delete(r.items, id)
	return nil
}

type fakeItemRepo struct {
	mu    sync.RWMutex
	items map[string]*entity.Item
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]*entity.Item)}
}

func (r *fakeItemRepo) Create(ctx context.Context, it *entity.Item) (*entity.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[it.ID] = cloneItem(it)
	return cloneItem(it), nil
}

func (r *fakeItemRepo) Update(ctx context.Context, it *entity.Item) (*entity.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[it.ID]; !ok {
		return nil, entity.ErrItemNotFound
	}
	r.items[it.ID] = cloneItem(it)
	return cloneItem(it), nil
}

func (r *fakeItemRepo) GetByID(ctx context.Context, id string) (*entity.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[id]
	if !ok {
		return nil, entity.ErrItemNotFound
	}
	return cloneItem(it), nil
}

func (r *fakeItemRepo) List(ctx context.Context, query *repository.ListItemQuery) ([]entity.Item, int64, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	return all, int64(len(all)), nil
}

func (r *fakeItemRepo) ListAll(ctx context.Context) ([]entity.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, *cloneItem(it))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeItemRepo) ListByConcept(ctx context.Context, conceptID string) ([]entity.Item, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Item, 0)
	for _, it := range all {
		if it.TargetsConcept(conceptID) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return entity.ErrItemNotFound
	}
	delete(r.items, id)
	return nil
}

// fakeLearningStore backs the attempt log, memory states and mastery
// states behind one lock so CommitSubmission can be atomic the way the
// SQL adapter's transaction is.
type fakeLearningStore struct {
	mu        sync.RWMutex
	attempts  []entity.Attempt
	memories  map[string]entity.MemoryState // conceptID|itemID
	masteries map[string]entity.MasteryState
	failNext  bool
}

func newFakeLearningStore() *fakeLearningStore {
	return &fakeLearningStore{
		memories:  make(map[string]entity.MemoryState),
		masteries: make(map[string]entity.MasteryState),
	}
}

func memKey(conceptID, itemID string) string { return conceptID + "|" + itemID }

func (s *fakeLearningStore) CommitSubmission(ctx context.Context, sub *repository.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return context.DeadlineExceeded
	}
	for _, a := range s.attempts {
		if a.ID == sub.Attempt.ID {
			return nil // idempotent replay
		}
	}
	s.attempts = append(s.attempts, *cloneAttempt(sub.Attempt))
	for _, m := range sub.MemoryStates {
		s.memories[memKey(m.ConceptID, m.ItemID)] = m
	}
	for _, m := range sub.MasteryStates {
		s.masteries[m.ConceptID] = m
	}
	return nil
}

func (s *fakeLearningStore) List(ctx context.Context, query *repository.ListAttemptQuery) ([]entity.Attempt, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Attempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		if query != nil && query.ItemID != "" && a.ItemID != query.ItemID {
			continue
		}
		out = append(out, *cloneAttempt(&a))
	}
	return out, int64(len(out)), nil
}

func (s *fakeLearningStore) ListByConcept(ctx context.Context, conceptID string) ([]entity.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Attempt, 0)
	for _, a := range s.attempts {
		for _, id := range a.ConceptIDs {
			if id == conceptID {
				out = append(out, *cloneAttempt(&a))
				break
			}
		}
	}
	return out, nil
}

func (s *fakeLearningStore) ListByItem(ctx context.Context, itemID string) ([]entity.Attempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Attempt, 0)
	for _, a := range s.attempts {
		if a.ItemID == itemID {
			out = append(out, *cloneAttempt(&a))
		}
	}
	return out, nil
}

func (s *fakeLearningStore) CountByConcept(ctx context.Context) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64)
	for _, a := range s.attempts {
		for _, id := range a.ConceptIDs {
			out[id]++
		}
	}
	return out, nil
}

func (s *fakeLearningStore) Get(ctx context.Context, conceptID, itemID string) (*entity.MemoryState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.memories[memKey(conceptID, itemID)]; ok {
		copy := m
		return &copy, nil
	}
	return nil, nil
}

func (s *fakeLearningStore) ListByConceptMemory(ctx context.Context, conceptID string) ([]entity.MemoryState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.MemoryState, 0)
	for _, m := range s.memories {
		if m.ConceptID == conceptID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (s *fakeLearningStore) ListAllMemory(ctx context.Context) ([]entity.MemoryState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.MemoryState, 0, len(s.memories))
	for _, m := range s.memories {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConceptID != out[j].ConceptID {
			return out[i].ConceptID < out[j].ConceptID
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

// memoryView adapts fakeLearningStore to repository.MemoryStateRepository.
type memoryView struct{ store *fakeLearningStore }

func (v memoryView) Get(ctx context.Context, conceptID, itemID string) (*entity.MemoryState, error) {
	return v.store.Get(ctx, conceptID, itemID)
}

func (v memoryView) ListByConcept(ctx context.Context, conceptID string) ([]entity.MemoryState, error) {
	return v.store.ListByConceptMemory(ctx, conceptID)
}

func (v memoryView) ListAll(ctx context.Context) ([]entity.MemoryState, error) {
	return v.store.ListAllMemory(ctx)
}

// masteryView adapts fakeLearningStore to repository.MasteryStateRepository.
type masteryView struct{ store *fakeLearningStore }

func (v masteryView) Get(ctx context.Context, conceptID string) (*entity.MasteryState, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	if m, ok := v.store.masteries[conceptID]; ok {
		copy := m
		return &copy, nil
	}
	return nil, entity.ErrConceptNotFound
}

func (v masteryView) ListAll(ctx context.Context) ([]entity.MasteryState, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	out := make([]entity.MasteryState, 0, len(v.store.masteries))
	for _, m := range v.store.masteries {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConceptID < out[j].ConceptID })
	return out, nil
}

func (v masteryView) Put(ctx context.Context, state *entity.MasteryState) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	v.store.masteries[state.ConceptID] = *state
	return nil
}

func (v masteryView) Delete(ctx context.Context, conceptID string) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	delete(v.store.masteries, conceptID)
	return nil
}

type fakeSessionRepo struct {
	mu    sync.RWMutex
	items map[string]*entity.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{items: make(map[string]*entity.Session)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *entity.Session) (*entity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *s
	r.items[s.ID] = &copy
	out := copy
	return &out, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *entity.Session) (*entity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; !ok {
		return nil, entity.ErrSessionNotFound
	}
	copy := *s
	r.items[s.ID] = &copy
	out := copy
	return &out, nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	copy := *s
	return &copy, nil
}

func (r *fakeSessionRepo) ListAll(ctx context.Context) ([]entity.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Session, 0, len(r.items))
	for _, s := range r.items {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
