package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/smart-assistant/smart-assistant-backend/internal/apperr"
	"github.com/smart-assistant/smart-assistant-backend/internal/logger"
	"github.com/smart-assistant/smart-assistant-backend/internal/repos"
	"github.com/smart-assistant/smart-assistant-backend/internal/types"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type UserService interface {
	Create(ctx context.Context, email, name string) (*types.User, error)
	FindAll(ctx context.Context) ([]*types.User, error)
	FindOne(ctx context.Context, id uuid.UUID) (*types.User, error)
	Update(ctx context.Context, id uuid.UUID, email, name *string) (*types.User, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) Create(ctx context.Context, email, name string) (*types.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return nil, apperr.Validation("email and name are required")
	}
	if !emailRegex.MatchString(email) {
		return nil, apperr.ValidationField("email", "invalid email format")
	}
	exists, err := us.userRepo.EmailExists(ctx, nil, email, uuid.Nil)
	if err != nil {
		return nil, apperr.Internal("failed to check email existence", err)
	}
	if exists {
		return nil, apperr.Conflict("a user with this email already exists")
	}
	user, err := us.userRepo.Create(ctx, nil, &types.User{Email: email, Name: name})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("a user with this email already exists")
		}
		return nil, apperr.Internal("failed to create user", err)
	}
	us.log.Info("user created", "userID", user.ID)
	return user, nil
}

func (us *userService) FindAll(ctx context.Context) ([]*types.User, error) {
	users, err := us.userRepo.GetAll(ctx, nil)
	if err != nil {
		return nil, apperr.Internal("failed to fetch users", err)
	}
	return users, nil
}

func (us *userService) FindOne(ctx context.Context, id uuid.UUID) (*types.User, error) {
	user, err := us.userRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User", id)
		}
		return nil, apperr.Internal("failed to fetch user", err)
	}
	return user, nil
}

func (us *userService) Update(ctx context.Context, id uuid.UUID, email, name *string) (*types.User, error) {
	user, err := us.userRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User", id)
		}
		return nil, apperr.Internal("failed to fetch user", err)
	}
	if email != nil {
		newEmail := strings.TrimSpace(*email)
		if !emailRegex.MatchString(newEmail) {
			return nil, apperr.ValidationField("email", "invalid email format")
		}
		exists, err := us.userRepo.EmailExists(ctx, nil, newEmail, id)
		if err != nil {
			return nil, apperr.Internal("failed to check email existence", err)
		}
		if exists {
			return nil, apperr.Conflict("a user with this email already exists")
		}
		user.Email = newEmail
	}
	if name != nil {
		newName := strings.TrimSpace(*name)
		if newName == "" {
			return nil, apperr.ValidationField("name", "name cannot be empty")
		}
		user.Name = newName
	}
	updated, err := us.userRepo.Save(ctx, nil, user)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("a user with this email already exists")
		}
		return nil, apperr.Internal("failed to update user", err)
	}
	return updated, nil
}

func (us *userService) Remove(ctx context.Context, id uuid.UUID) error {
	if err := us.userRepo.DeleteByID(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("User", id)
		}
		return apperr.Internal("failed to delete user", err)
	}
	us.log.Info("user deleted", "userID", id)
	return nil
}
