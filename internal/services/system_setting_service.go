package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"booking-backend/internal/models"
)

type SystemSettingService struct {
	Repo SettingsStore
}

func NewSystemSettingService(repo SettingsStore) *SystemSettingService {
	return &SystemSettingService{Repo: repo}
}

func (s *SystemSettingService) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	return s.Repo.Get(ctx, key)
}

func (s *SystemSettingService) List(ctx context.Context) ([]*models.SystemSetting, error) {
	return s.Repo.List(ctx)
}

// Update validates the value against the setting's expected shape before
// persisting.
func (s *SystemSettingService) Update(ctx context.Context, key, value string, userID int) error {
	value = strings.TrimSpace(value)
	switch key {
	case models.SettingRefundDefaultEstimatedDays:
		days, err := strconv.Atoi(value)
		if err != nil || days <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer", models.ErrValidation, key)
		}
	case models.SettingOnlinePaymentEnabled:
		if value != "true" && value != "false" {
			return fmt.Errorf("%w: %s must be true or false", models.ErrValidation, key)
		}
	}
	return s.Repo.Update(ctx, key, value, userID)
}
