package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"booking-backend/internal/auth"
	"booking-backend/internal/config"
	"booking-backend/internal/models"
)

// memUsers is an in-memory UserStore
type memUsers struct {
	mu     sync.Mutex
	users  map[int]*models.User
	nextID int
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[int]*models.User)}
}

func (m *memUsers) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	copied := *u
	m.users[u.ID] = &copied
	return nil
}

func (m *memUsers) Get(ctx context.Context, id int) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memUsers) EnableTOTP(ctx context.Context, userID int, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return models.ErrNotFound
	}
	u.TOTPSecret = secret
	u.TOTPEnabled = true
	return nil
}

func newUserFixture() (*UserService, *memUsers) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "booking-backend-test"
	store := newMemUsers()
	return NewUserService(store, auth.NewJWTManager(cfg)), store
}

func TestLogin(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	user := &models.User{
		Name: "Asha", Email: "asha@example.com",
		PasswordHash: "s3cret", Role: "operator", IsActive: true,
	}
	if err := svc.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	resp, err := svc.Login(ctx, &models.LoginRequest{Email: "asha@example.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.User.Email != "asha@example.com" {
		t.Errorf("user: got %q", resp.User.Email)
	}

	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "asha@example.com", Password: "wrong"}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("wrong password: got %v, want ErrValidation", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "s3cret"}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown email: got %v, want ErrValidation", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	user := &models.User{Email: "gone@example.com", PasswordHash: "s3cret", IsActive: false}
	if err := svc.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{Email: "gone@example.com", Password: "s3cret"}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

func TestEnrollTOTP(t *testing.T) {
	svc, store := newUserFixture()
	ctx := context.Background()

	user := &models.User{Email: "asha@example.com", PasswordHash: "s3cret", IsActive: true}
	if err := svc.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	secret, url, err := svc.EnrollTOTP(ctx, user.ID)
	if err != nil {
		t.Fatalf("EnrollTOTP: %v", err)
	}
	if secret == "" || url == "" {
		t.Fatalf("secret %q, url %q", secret, url)
	}

	stored, _ := store.Get(ctx, user.ID)
	if !stored.TOTPEnabled || stored.TOTPSecret != secret {
		t.Errorf("stored secret not persisted: enabled=%v", stored.TOTPEnabled)
	}
}
