package repository

import (
	"context"

	"github.com/eslsoft/gapmap/internal/entity"
)

// SessionRepository abstracts persistence for practice sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) (*entity.Session, error)
	Update(ctx context.Context, session *entity.Session) (*entity.Session, error)
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	ListAll(ctx context.Context) ([]entity.Session, error)
}
