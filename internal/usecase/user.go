package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
	xhttp "YoForex/pkg/http"
	"YoForex/pkg/util"
)

type UserUsecase struct {
	users    domrepo.UserRepository
	settings domrepo.SettingsRepository
	now      func() time.Time
}

func NewUserUsecase(users domrepo.UserRepository, settings domrepo.SettingsRepository) *UserUsecase {
	return &UserUsecase{users: users, settings: settings, now: time.Now}
}

func (u *UserUsecase) Profile(ctx context.Context, userID string) (*models.User, error) {
	su, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &su.User, nil
}

func (u *UserUsecase) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	su, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, xhttp.FieldError("full_name", "full name must not be blank")
	}
	su.FullName = name
	su.UpdatedAt = u.now().UTC()
	if err := u.users.Update(ctx, su); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &su.User, nil
}

// Settings returns the stored settings, or the defaults when none were saved yet.
func (u *UserUsecase) Settings(ctx context.Context, userID string) (*models.UserSettings, error) {
	s, err := u.settings.Get(ctx, userID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return models.DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

func (u *UserUsecase) UpdateSettings(ctx context.Context, userID string, req *models.UpdateSettingsRequest) (*models.UserSettings, error) {
	s := models.DefaultSettings(userID)
	s.DefaultPair = req.DefaultPair
	s.DefaultTimeframe = req.DefaultTimeframe
	s.DefaultStrategy = strings.TrimSpace(req.DefaultStrategy)
	s.Theme = req.Theme
	s.RiskPerTrade = req.RiskPerTrade
	if req.PreferredModels != nil {
		s.PreferredModels = util.Dedupe(req.PreferredModels)
	}
	if req.NotificationsEnabled != nil {
		s.NotificationsEnabled = *req.NotificationsEnabled
	}
	s.UpdatedAt = u.now().UTC()

	if err := u.settings.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return s, nil
}

func (u *UserUsecase) load(ctx context.Context, userID string) (*models.StoredUser, error) {
	su, err := u.users.GetByID(ctx, userID)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, xhttp.NotFoundError("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return su, nil
}
