package repository

import (
	"context"

	"github.com/eslsoft/gapmap/internal/entity"
)

// ListConceptQuery holds parameters for listing concepts.
type ListConceptQuery struct {
	Pagination
	FilterOrder
	OrderParams

	Keyword string
	Domain  string
	Domains []string
}

// ConceptRepository abstracts persistence for concepts to keep usecases
// storage agnostic.
type ConceptRepository interface {
	Create(ctx context.Context, concept *entity.Concept) (*entity.Concept, error)
	Update(ctx context.Context, concept *entity.Concept) (*entity.Concept, error)
	GetByID(ctx context.Context, id string) (*entity.Concept, error)
	List(ctx context.Context, query *ListConceptQuery) ([]entity.Concept, int64, error)
	ListAll(ctx context.Context) ([]entity.Concept, error)
	Delete(ctx context.Context, id string) error
}
