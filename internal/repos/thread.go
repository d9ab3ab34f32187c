package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type ThreadRepo interface {
	Create(ctx context.Context, tx *gorm.DB, thread *types.Thread) (*types.Thread, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Thread, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Thread, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Thread, error)
	Save(ctx context.Context, tx *gorm.DB, thread *types.Thread) (*types.Thread, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type threadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThreadRepo(db *gorm.DB, baseLog *logger.Logger) ThreadRepo {
	return &threadRepo{db: db, log: baseLog.With("repo", "ThreadRepo")}
}

func (tr *threadRepo) Create(ctx context.Context, tx *gorm.DB, thread *types.Thread) (*types.Thread, error) {
	if tx == nil {
		tx = tr.db
	}
	if thread.ID == uuid.Nil {
		thread.ID = uuid.New()
	}
	if err := tx.WithContext(ctx).Create(thread).Error; err != nil {
		tr.log.Error("failed to create thread", "error", err, "userID", thread.UserID)
		return nil, err
	}
	return thread, nil
}

func (tr *threadRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Thread, error) {
	if tx == nil {
		tx = tr.db
	}
	var t types.Thread
	if err := tx.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (tr *threadRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Thread, error) {
	if tx == nil {
		tx = tr.db
	}
	var threads []*types.Thread
	if err := tx.WithContext(ctx).
		Order("created_at ASC").
		Find(&threads).Error; err != nil {
		tr.log.Error("failed to get threads", "error", err)
		return nil, err
	}
	return threads, nil
}

func (tr *threadRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Thread, error) {
	if tx == nil {
		tx = tr.db
	}
	var threads []*types.Thread
	if err := tx.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&threads).Error; err != nil {
		tr.log.Error("failed to get threads by userID", "error", err, "userID", userID)
		return nil, err
	}
	return threads, nil
}

func (tr *threadRepo) Save(ctx context.Context, tx *gorm.DB, thread *types.Thread) (*types.Thread, error) {
	if tx == nil {
		tx = tr.db
	}
	if err := tx.WithContext(ctx).Save(thread).Error; err != nil {
		tr.log.Error("failed to save thread", "error", err, "threadID", thread.ID)
		return nil, err
	}
	return thread, nil
}

func (tr *threadRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		tx = tr.db
	}
	res := tx.WithContext(ctx).Where("id = ?", id).Delete(&types.Thread{})
	if res.Error != nil {
		tr.log.Error("failed to delete thread", "error", res.Error, "threadID", id)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
