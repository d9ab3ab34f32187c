package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smart-assistant/smart-assistant-backend/internal/apperr"
	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/repos"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type ThreadService interface {
	Create(ctx context.Context, title string, userID uuid.UUID) (*types.Thread, error)
	FindAll(ctx context.Context) ([]*types.Thread, error)
	// FindAllByUserID is lenient: an unknown userID yields an empty slice,
	// never an error. Existence checks apply to mutations only.
	FindAllByUserID(ctx context.Context, userID uuid.UUID) ([]*types.Thread, error)
	FindOne(ctx context.Context, id uuid.UUID) (*types.Thread, error)
	Update(ctx context.Context, id uuid.UUID, title *string, userID *uuid.UUID) (*types.Thread, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type threadService struct {
	db         *gorm.DB
	log        *logger.Logger
	threadRepo repos.ThreadRepo
	userRepo   repos.UserRepo
}

func NewThreadService(db *gorm.DB, log *logger.Logger, threadRepo repos.ThreadRepo, userRepo repos.UserRepo) ThreadService {
	return &threadService{
		db:         db,
		log:        log.With("service", "ThreadService"),
		threadRepo: threadRepo,
		userRepo:   userRepo,
	}
}

func (ts *threadService) Create(ctx context.Context, title string, userID uuid.UUID) (*types.Thread, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.ValidationField("title", "title cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, apperr.ValidationField("userId", "userId is required")
	}
	// A bad reference in the payload is a client error, not a missing
	// addressed resource, so this surfaces as 400.
	if _, err := ts.userRepo.GetByID(ctx, nil, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ValidationField("userId", "user with ID "+userID.String()+" not found")
		}
		return nil, apperr.Internal("failed to check user existence", err)
	}
	thread, err := ts.threadRepo.Create(ctx, nil, &types.Thread{Title: title, UserID: userID})
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, apperr.ValidationField("userId", "user with ID "+userID.String()+" not found")
		}
		return nil, apperr.Internal("failed to create thread", err)
	}
	ts.log.Info("thread created", "threadID", thread.ID, "userID", userID)
	return thread, nil
}

func (ts *threadService) FindAll(ctx context.Context) ([]*types.Thread, error) {
	threads, err := ts.threadRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, apperr.Internal("failed to fetch threads", err)
	}
	return threads, nil
}

func (ts *threadService) FindAllByUserID(ctx context.Context, userID uuid.UUID) ([]*types.Thread, error) {
	threads, err := ts.threadRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, apperr.Internal("failed to fetch threads", err)
	}
	return threads, nil
}

func (ts *threadService) FindOne(ctx context.Context, id uuid.UUID) (*types.Thread, error) {
	thread, err := ts.threadRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Thread", id)
		}
		return nil, apperr.Internal("failed to fetch thread", err)
	}
	return thread, nil
}

func (ts *threadService) Update(ctx context.Context, id uuid.UUID, title *string, userID *uuid.UUID) (*types.Thread, error) {
	thread, err := ts.threadRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Thread", id)
		}
		return nil, apperr.Internal("failed to fetch thread", err)
	}
	if title != nil {
		newTitle := strings.TrimSpace(*title)
		if newTitle == "" {
			return nil, apperr.ValidationField("title", "title cannot be empty")
		}
		thread.Title = newTitle
	}
	if userID != nil {
		if _, err := ts.userRepo.GetByID(ctx, nil, *userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.ValidationField("userId", "user with ID "+userID.String()+" not found")
			}
			return nil, apperr.Internal("failed to check user existence", err)
		}
		thread.UserID = *userID
	}
	updated, err := ts.threadRepo.Save(ctx, nil, thread)
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, apperr.ValidationField("userId", "invalid user reference")
		}
		return nil, apperr.Internal("failed to update thread", err)
	}
	return updated, nil
}

func (ts *threadService) Remove(ctx context.Context, id uuid.UUID) error {
	if err := ts.threadRepo.DeleteByID(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Thread", id)
		}
		return apperr.Internal("failed to delete thread", err)
	}
	ts.log.Info("thread deleted", "threadID", id)
	return nil
}
