package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eslsoft/gapmap/internal/entity"
	"github.com/eslsoft/gapmap/internal/repository"
)

// CompleteSessionInput carries the rollup stats stamped when a session
// closes.
type CompleteSessionInput struct {
	SessionID      string
	CompletedItems int32
	Accuracy       float64
	AvgConfidence  float64
}

// SessionUsecase manages practice sessions.
type SessionUsecase interface {
	CreateSession(ctx context.Context, session *entity.Session) (*entity.Session, error)
	CompleteSession(ctx context.Context, input CompleteSessionInput) (*entity.Session, error)
	ListSessions(ctx context.Context) ([]entity.Session, error)
}

// NewSessionUsecase wires the repository with default behaviour.
func NewSessionUsecase(repo repository.SessionRepository) SessionUsecase {
	return &sessionUsecase{repo: repo, clock: time.Now}
}

type sessionUsecase struct {
	repo  repository.SessionRepository
	clock func() time.Time
}

func (u *sessionUsecase) CreateSession(ctx context.Context, session *entity.Session) (*entity.Session, error) {
	if session == nil {
		return nil, entity.ErrInvalidSessionType
	}
	if _, ok := entity.ParseSessionType(string(session.Type)); !ok {
		return nil, entity.ErrInvalidSessionType
	}

	copy := *session
	if copy.ID == "" {
		copy.ID = uuid.New().String()
	}
	if copy.StartedAt.IsZero() {
		copy.StartedAt = u.clock()
	}
	copy.CompletedAt = time.Time{}
	return u.repo.Create(ctx, &copy)
}

func (u *sessionUsecase) CompleteSession(ctx context.Context, input CompleteSessionInput) (*entity.Session, error) {
	if input.SessionID == "" {
		return nil, entity.ErrSessionNotFound
	}

	session, err := u.repo.GetByID(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed() {
		return nil, entity.ErrSessionAlreadyClosed
	}

	session.CompletedAt = u.clock()
	session.CompletedItems = input.CompletedItems
	session.Accuracy = input.Accuracy
	session.AvgConfidence = input.AvgConfidence
	return u.repo.Update(ctx, session)
}

func (u *sessionUsecase) ListSessions(ctx context.Context) ([]entity.Session, error) {
	return u.repo.ListAll(ctx)
}
