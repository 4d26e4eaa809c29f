package services

import (
	"context"
	"fmt"

	"booking-backend/internal/auth"
	"booking-backend/internal/models"
)

type UserService struct {
	Repo       UserStore
	JWTManager *auth.JWTManager
}

func NewUserService(repo UserStore, jwtManager *auth.JWTManager) *UserService {
	return &UserService{
		Repo:       repo,
		JWTManager: jwtManager,
	}
}

func (s *UserService) CreateUser(ctx context.Context, u *models.User) error {
	if u.PasswordHash != "" {
		hashedPassword, err := auth.HashPassword(u.PasswordHash)
		if err != nil {
			return err
		}
		u.PasswordHash = hashedPassword
	}
	return s.Repo.Create(ctx, u)
}

func (s *UserService) GetUser(ctx context.Context, id int) (*models.User, error) {
	return s.Repo.Get(ctx, id)
}

// Login authenticates an operator and issues a JWT
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.Repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrValidation)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", models.ErrValidation)
	}
	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return nil, fmt.Errorf("%w: invalid credentials", models.ErrValidation)
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.AuthResponse{Token: token, User: user}, nil
}

// EnrollTOTP generates and stores a TOTP secret for the user. The returned
// URL is rendered as a QR code by the frontend.
func (s *UserService) EnrollTOTP(ctx context.Context, userID int) (secret, url string, err error) {
	user, err := s.Repo.Get(ctx, userID)
	if err != nil {
		return "", "", err
	}
	secret, url, err = auth.GenerateTOTPSecret(user.Email)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	if err := s.Repo.EnableTOTP(ctx, userID, secret); err != nil {
		return "", "", err
	}
	return secret, url, nil
}
