package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/repository"
)

// ItemUsecase manages practice items. Item content is immutable once
// created except metadata edits.
type ItemUsecase interface {
	CreateItem(ctx context.Context, item *entity.Item) (*entity.Item, error)
	UpdateItemMetadata(ctx context.Context, item *entity.Item) (*entity.Item, error)
	GetItem(ctx context.Context, id string) (*entity.Item, error)
	ListItems(ctx context.Context, query *repository.ListItemQuery) ([]entity.Item, int64, error)
	DeleteItem(ctx context.Context, id string) error
}

// NewItemUsecase wires the repository with default behaviour.
func NewItemUsecase(items repository.ItemRepository, concepts repository.ConceptRepository) ItemUsecase {
	return &itemUsecase{items: items, concepts: concepts, clock: time.Now}
}

type itemUsecase struct {
	items    repository.ItemRepository
	concepts repository.ConceptRepository
	clock    func() time.Time
}

func (u *itemUsecase) CreateItem(ctx context.Context, item *entity.Item) (*entity.Item, error) {
	if item == nil {
		return nil, entity.ErrInvalidItemType
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	// Every referenced concept must exist at creation time.
	for _, conceptID := range item.ConceptIDs {
		if _, err := u.concepts.GetByID(ctx, conceptID); err != nil {
			return nil, err
		}
	}

	copy := *item
	if copy.ID == "" {
		copy.ID = uuid.New().String()
	}
	copy.Normalize(u.clock())
	return u.items.Create(ctx, &copy)
}

// UpdateItemMetadata edits mutable metadata only; stem, type and variant
// content are fixed at creation.
func (u *itemUsecase) UpdateItemMetadata(ctx context.Context, item *entity.Item) (*entity.Item, error) {
	if item == nil || item.ID == "" {
		return nil, entity.ErrInvalidItemID
	}

	existing, err := u.items.GetByID(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if item.Difficulty > 0 {
		existing.Difficulty = item.Difficulty
	}
	if item.Source != "" {
		existing.Source = item.Source
	}
	if item.Explanation != "" {
		existing.Explanation = item.Explanation
	}
	if len(item.ConceptIDs) > 0 {
		for _, conceptID := range item.ConceptIDs {
			if _, err := u.concepts.GetByID(ctx, conceptID); err != nil {
				return nil, err
			}
		}
		existing.ConceptIDs = item.ConceptIDs
	}
	existing.Normalize(u.clock())
	return u.items.Update(ctx, existing)
}

func (u *itemUsecase) GetItem(ctx context.Context, id string) (*entity.Item, error) {
	if id == "" {
		return nil, entity.ErrInvalidItemID
	}
	return u.items.GetByID(ctx, id)
}

func (u *itemUsecase) ListItems(ctx context.Context, query *repository.ListItemQuery) ([]entity.Item, int64, error) {
	return u.items.List(ctx, query)
}

// DeleteItem stops new attempts against the item; existing attempts and
// the mastery evidence they carry are never rewritten.
func (u *itemUsecase) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return entity.ErrInvalidItemID
	}
	return u.items.Delete(ctx, id)
}
