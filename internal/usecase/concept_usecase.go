package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/repository"
)

// ConceptUsecase manages the authored concept catalog. Generated and
// imported concepts pass through the same validation as hand-authored
// ones.
type ConceptUsecase interface {
	CreateConcept(ctx context.Context, concept *entity.Concept) (*entity.Concept, error)
	UpdateConcept(ctx context.Context, concept *entity.Concept) (*entity.Concept, error)
	GetConcept(ctx context.Context, id string) (*entity.Concept, error)
	ListConcepts(ctx context.Context, query *repository.ListConceptQuery) ([]entity.Concept, int64, error)
	DeleteConcept(ctx context.Context, id string) error
}

// NewConceptUsecase wires the repository with default behaviour.
func NewConceptUsecase(repo repository.ConceptRepository) ConceptUsecase {
	return &conceptUsecase{repo: repo, clock: time.Now}
}

type conceptUsecase struct {
	repo  repository.ConceptRepository
	clock func() time.Time
}

func (u *conceptUsecase) CreateConcept(ctx context.Context, concept *entity.Concept) (*entity.Concept, error) {
	if concept == nil {
		return nil, entity.ErrInvalidConceptName
	}
	if err := concept.Validate(); err != nil {
		return nil, err
	}

	copy := *concept
	if copy.ID == "" {
		copy.ID = uuid.New().String()
	}
	copy.Normalize(u.clock())
	return u.repo.Create(ctx, &copy)
}

func (u *conceptUsecase) UpdateConcept(ctx context.Context, concept *entity.Concept) (*entity.Concept, error) {
	if concept == nil || concept.ID == "" {
		return nil, entity.ErrInvalidConceptID
	}
	if err := concept.Validate(); err != nil {
		return nil, err
	}

	existing, err := u.repo.GetByID(ctx, concept.ID)
	if err != nil {
		return nil, err
	}
	existing.Name = concept.Name
	existing.Domain = concept.Domain
	existing.Subdomain = concept.Subdomain
	existing.Description = concept.Description
	if concept.Tags != nil {
		existing.Tags = concept.Tags
	}
	existing.Normalize(u.clock())
	return u.repo.Update(ctx, existing)
}

func (u *conceptUsecase) GetConcept(ctx context.Context, id string) (*entity.Concept, error) {
	if id == "" {
		return nil, entity.ErrInvalidConceptID
	}
	return u.repo.GetByID(ctx, id)
}

func (u *conceptUsecase) ListConcepts(ctx context.Context, query *repository.ListConceptQuery) ([]entity.Concept, int64, error) {
	return u.repo.List(ctx, query)
}

// DeleteConcept removes the concept from the catalog. Attempt history
// referencing it is left untouched: recorded evidence stays valid.
func (u *conceptUsecase) DeleteConcept(ctx context.Context, id string) error {
	if id == "" {
		return entity.ErrInvalidConceptID
	}
	return u.repo.Delete(ctx, id)
}
