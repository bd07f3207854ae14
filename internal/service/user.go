package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"image-service/internal/apperr"
	"image-service/internal/catalog"
	"image-service/internal/models"
)

const minPasswordLength = 8

type UserService struct {
	users catalog.Users
	log   *zap.Logger
}

func NewUserService(users catalog.Users, log *zap.Logger) *UserService {
	return &UserService{users: users, log: log}
}

func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" {
		return nil, apperr.New(apperr.KindValidation, "username must not be empty")
	}
	if len(password) < minPasswordLength {
		return nil, apperr.Newf(apperr.KindValidation, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to hash password", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, catalog.ErrDuplicate) {
			return nil, apperr.Newf(apperr.KindConflict, "username %q is already taken", username)
		}
		return nil, apperr.Wrap(apperr.KindStorage, "failed to create user", err)
	}

	s.log.Info("user registered", zap.String("user_id", created.ID.String()))
	return created, nil
}

// Login verifies credentials and returns the account. Unknown usernames and
// wrong passwords fail identically so the response does not reveal which one
// it was.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "failed to look up user", err)
	}
	if user == nil {
		return nil, apperr.New(apperr.KindAccessDenied, "invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.KindAccessDenied, "invalid credentials")
	}
	return user, nil
}
