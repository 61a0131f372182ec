package services

import (
	"context"
	"crypto/cipher"
	"errors"
	"fmt"
	"log"
	"strings"

	"yagptchat/internal/auth"
	"yagptchat/internal/config"
	"yagptchat/internal/crypto"
	"yagptchat/internal/models"
	"yagptchat/internal/store"

	"github.com/google/uuid"
)

// Custom errors for auth service
var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrHashingPassword    = errors.New("failed to hash password")
	ErrCreatingToken      = errors.New("failed to create access token")
	ErrCreatingUser       = errors.New("failed to create user or profile")
	ErrValidation         = errors.New("input validation failed") // Generic validation error
)

type AuthService struct {
	store store.Store
	aead  cipher.AEAD
	cfg   *config.Config
}

func NewAuthService(s store.Store, aead cipher.AEAD, cfg *config.Config) *AuthService {
	return &AuthService{
		store: s,
		aead:  aead,
		cfg:   cfg,
	}
}

// Signup creates a new user together with their profile. The profile
// holds the Yandex API key captured on the signup form, encrypted at rest.
func (s *AuthService) Signup(ctx context.Context, email, password, apiKey string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password cannot be empty", ErrValidation)
	}

	// Check if user already exists
	_, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Printf("Error checking user existence for %s: %v", email, err)
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	// User does not exist (store.ErrNotFound received), proceed.

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", email, err)
		return nil, ErrHashingPassword
	}

	user := &models.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: hashedPassword,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		log.Printf("Error creating user for %s: %v", email, err)
		return nil, fmt.Errorf("%w: creating user failed: %v", ErrCreatingUser, err)
	}

	encryptedKey, err := crypto.Encrypt(s.aead, []byte(apiKey))
	if err != nil {
		log.Printf("Error encrypting API key for %s: %v", email, err)
		return nil, fmt.Errorf("%w: encrypting API key failed: %v", ErrCreatingUser, err)
	}

	profile := &models.Profile{
		ID:              user.ID,
		EncryptedAPIKey: encryptedKey,
	}
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		log.Printf("Error creating profile for %s (UserID: %s): %v", email, user.ID, err)
		return nil, fmt.Errorf("%w: creating profile failed: %v", ErrCreatingUser, err)
	}

	log.Printf("Successfully signed up user %s (ID: %s)", email, user.ID)
	return user, nil
}

// Login verifies user credentials and returns an access token and user info.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials // Basic check before hitting DB
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials // Don't reveal if user exists or password is wrong
		}
		log.Printf("Error retrieving user %s during login: %v", email, err)
		return "", nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.HashedPassword) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.NewAccessToken(user.ID, user.Email, s.cfg.JWTSecret, s.cfg.TokenExpiration)
	if err != nil {
		log.Printf("Error generating JWT for user %s (ID: %s): %v", email, user.ID, err)
		return "", nil, ErrCreatingToken
	}

	log.Printf("Successfully logged in user %s (ID: %s)", email, user.ID)
	return token, user, nil
}
