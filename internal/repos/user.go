package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.User, error)
	EmailExists(ctx context.Context, tx *gorm.DB, email string, excludeID uuid.UUID) (bool, error)
	Save(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	if tx == nil {
		tx = ur.db
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := tx.WithContext(ctx).Create(user).Error; err != nil {
		ur.log.Error("failed to create user", "error", err)
		return nil, err
	}
	return user, nil
}

func (ur *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	if tx == nil {
		tx = ur.db
	}
	var u types.User
	if err := tx.WithContext(ctx).
		Preload("Threads").
		Where("id = ?", id).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.User, error) {
	if tx == nil {
		tx = ur.db
	}
	var users []*types.User
	if err := tx.WithContext(ctx).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		ur.log.Error("failed to get users", "error", err)
		return nil, err
	}
	return users, nil
}

func (ur *userRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string, excludeID uuid.UUID) (bool, error) {
	if tx == nil {
		tx = ur.db
	}
	var count int64
	q := tx.WithContext(ctx).Model(&types.User{}).Where("email = ?", email)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		ur.log.Error("failed to check email existence", "error", err)
		return false, err
	}
	return count > 0, nil
}

func (ur *userRepo) Save(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	if tx == nil {
		tx = ur.db
	}
	if err := tx.WithContext(ctx).Save(user).Error; err != nil {
		ur.log.Error("failed to save user", "error", err, "userID", user.ID)
		return nil, err
	}
	return user, nil
}

func (ur *userRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if tx == nil {
		tx = ur.db
	}
	res := tx.WithContext(ctx).Where("id = ?", id).Delete(&types.User{})
	if res.Error != nil {
		ur.log.Error("failed to delete user", "error", res.Error, "userID", id)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
