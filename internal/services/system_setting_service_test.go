package services

import (
	"context"
	"errors"
	"testing"

	"booking-backend/internal/models"
)

// memSettingsStore extends the read-only memSettings with writes
type memSettingsStore struct {
	memSettings
	updates int
}

func (s *memSettingsStore) List(ctx context.Context) ([]*models.SystemSetting, error) {
	out := make([]*models.SystemSetting, 0, len(s.memSettings))
	for k, v := range s.memSettings {
		out = append(out, &models.SystemSetting{SettingKey: k, SettingValue: v})
	}
	return out, nil
}

func (s *memSettingsStore) Update(ctx context.Context, key, value string, userID int) error {
	if _, ok := s.memSettings[key]; !ok {
		return models.ErrNotFound
	}
	s.memSettings[key] = value
	s.updates++
	return nil
}

func TestSystemSettingUpdateValidation(t *testing.T) {
	store := &memSettingsStore{memSettings: memSettings{
		models.SettingRefundDefaultEstimatedDays: "7",
		models.SettingOnlinePaymentEnabled:       "true",
	}}
	svc := NewSystemSettingService(store)
	ctx := context.Background()

	for _, bad := range []string{"abc", "0", "-3", ""} {
		if err := svc.Update(ctx, models.SettingRefundDefaultEstimatedDays, bad, 1); !errors.Is(err, models.ErrValidation) {
			t.Errorf("days=%q: got %v, want ErrValidation", bad, err)
		}
	}
	if err := svc.Update(ctx, models.SettingOnlinePaymentEnabled, "maybe", 1); !errors.Is(err, models.ErrValidation) {
		t.Errorf("online=maybe: got %v, want ErrValidation", err)
	}
	if store.updates != 0 {
		t.Fatalf("rejected values must not be written, got %d updates", store.updates)
	}

	if err := svc.Update(ctx, models.SettingRefundDefaultEstimatedDays, "10", 1); err != nil {
		t.Fatalf("days=10: %v", err)
	}
	if err := svc.Update(ctx, models.SettingOnlinePaymentEnabled, "false", 1); err != nil {
		t.Fatalf("online=false: %v", err)
	}

	setting, err := svc.Get(ctx, models.SettingRefundDefaultEstimatedDays)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if setting.SettingValue != "10" {
		t.Errorf("stored value: got %q, want 10", setting.SettingValue)
	}
}
