package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Message, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Message, error)
	GetByThreadID(ctx context.Context, tx *gorm.DB, threadID uuid.UUID) ([]*types.Message, error)
	Save(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (mr *messageRepo) Create(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error) {
	if tx == nil {
		tx = mr.db
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if err := tx.WithContext(ctx).Create(msg).Error; err != nil {
		mr.log.Error("failed to create message", "error", err, "threadID", msg.ThreadID)
		return nil, err
	}
	return msg, nil
}

func (mr *messageRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Message, error) {
	if tx == nil {
		tx = mr.db
	}
	var m types.Message
	if err := tx.WithContext(ctx).
		Where("id = ?", id).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (mr *messageRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Message, error) {
	if tx == nil {
		tx = mr.db
	}
	var msgs []*types.Message
	if err := tx.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		mr.log.Error("failed to get messages", "error", err)
		return nil, err
	}
	return msgs, nil
}

// GetByThreadID returns the thread's messages oldest first. Equal timestamps
// fall back to id order so the result is a total order.
func (mr *messageRepo) GetByThreadID(ctx context.Context, tx *gorm.DB, threadID uuid.UUID) ([]*types.Message, error) {
	if tx == nil {
		tx = mr.db
	}
	var msgs []*types.Message
	if err := tx.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error; err != nil {
		mr.log.Error("failed to get messages by threadID", "error", err, "threadID", threadID)
		return nil, err
	}
	return msgs, nil
}

func (mr *messageRepo) Save(ctx context.Context, tx *gorm.DB, msg *types.Message) (*types.Message, error) {
	if tx == nil {
		tx = mr.db
	}
	if err := tx.WithContext(ctx).Save(msg).Error; err != nil {
		mr.log.Error("failed to save message", "error", err, "messageID", msg.ID)
		return nil, err
	}
	return msg, nil
}

func (mr *messageRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		tx = mr.db
	}
	res := tx.WithContext(ctx).Where("id = ?", id).Delete(&types.Message{})
	if res.Error != nil {
		mr.log.Error("failed to delete message", "error", res.Error, "messageID", id)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
