package repository

import (
	"context"

	"github.com/eslsoft/gapmap/internal/entity"
)

// ListItemQuery holds parameters for listing items.
type ListItemQuery struct {
	Pagination
	FilterOrder
	OrderParams

	Keyword   string
	ItemType  string
	ItemTypes []string
	ConceptID string
}

// ItemRepository abstracts persistence for practice items.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) (*entity.Item, error)
	Update(ctx context.Context, item *entity.Item) (*entity.Item, error)
	GetByID(ctx context.Context, id string) (*entity.Item, error)
	List(ctx context.Context, query *ListItemQuery) ([]entity.Item, int64, error)
	ListAll(ctx context.Context) ([]entity.Item, error)
	ListByConcept(ctx context.Context, conceptID string) ([]entity.Item, error)
	Delete(ctx context.Context, id string) error
}
