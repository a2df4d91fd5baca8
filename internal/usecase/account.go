package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rocketscienceinc/blockarena-backend/internal/apperror"
	"github.com/rocketscienceinc/blockarena-backend/internal/entity"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (that *Credentials) validate() error {
	that.Username = strings.TrimSpace(that.Username)
	that.Role = entity.NormalizeRole(that.Role)

	if that.Username == "" || that.Password == "" {
		return fmt.Errorf("%w: username and password are required", apperror.ErrValidation)
	}

	return nil
}

func (that *StoreManager) Register(ctx context.Context, creds Credentials) (*entity.UserView, error) {
	log := that.logger.With("method", "Register")

	if err := creds.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Username:     creds.Username,
		Role:         creds.Role,
		PasswordHash: string(hash),
		CreatedAt:    that.now(),
	}

	if err = that.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user registered", "user_id", user.ID, "role", user.Role)

	view := user.View()

	return &view, nil
}

// Login issues a fresh token; the previous one stops being valid.
func (that *StoreManager) Login(ctx context.Context, creds Credentials) (*entity.UserView, error) {
	log := that.logger.With("method", "Login")

	if err := creds.validate(); err != nil {
		return nil, err
	}

	user, err := that.userRepo.FindByName(ctx, creds.Role, creds.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, apperror.ErrWrongPassword
	}

	if err != nil {
		return nil, fmt.Errorf("failed to check password: %w", err)
	}

	user.Token = uuid.NewString()

	if err = that.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	log.Info("user logged in", "user_id", user.ID, "role", user.Role)

	view := user.View()
	view.Token = user.Token

	return &view, nil
}

func (that *StoreManager) Logout(ctx context.Context, userID int64) error {
	user, err := that.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	user.Token = ""

	if err = that.userRepo.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	return nil
}
