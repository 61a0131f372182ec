package services

import (
	"context"
	"crypto/cipher"
	"errors"
	"fmt"
	"log"

	"yagptchat/internal/crypto"
	"yagptchat/internal/models"
	"yagptchat/internal/store"

	"github.com/google/uuid"
)

// Custom errors for profile service
var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrProfileEncryption = errors.New("profile key encryption failed")
	ErrProfileDecryption = errors.New("profile key decryption failed")
)

// ProfileService manages the per-user Yandex API key record.
type ProfileService struct {
	store store.Store
	aead  cipher.AEAD
}

func NewProfileService(s store.Store, aead cipher.AEAD) *ProfileService {
	return &ProfileService{
		store: s,
		aead:  aead,
	}
}

// Get returns the profile with the API key decrypted for its owner.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.ProfileResponse, error) {
	profile, err := s.store.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		log.Printf("ERROR [ProfileService] Get: Store call failed for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("failed to retrieve profile: %w", err)
	}

	apiKey, err := crypto.Decrypt(s.aead, profile.EncryptedAPIKey)
	if err != nil {
		log.Printf("ERROR [ProfileService] Get: Decryption failed for UserID %s: %v", userID, err)
		return nil, ErrProfileDecryption
	}

	return &models.ProfileResponse{
		ID:           profile.ID,
		YandexAPIKey: string(apiKey),
		UpdatedAt:    profile.UpdatedAt,
	}, nil
}

// UpdateAPIKey replaces the stored API key with a newly encrypted value.
func (s *ProfileService) UpdateAPIKey(ctx context.Context, userID uuid.UUID, apiKey string) (*models.ProfileResponse, error) {
	encryptedKey, err := crypto.Encrypt(s.aead, []byte(apiKey))
	if err != nil {
		log.Printf("ERROR [ProfileService] UpdateAPIKey: Encryption failed for UserID %s: %v", userID, err)
		return nil, ErrProfileEncryption
	}

	if err := s.store.UpdateProfileAPIKey(ctx, userID, encryptedKey); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		log.Printf("ERROR [ProfileService] UpdateAPIKey: Store call failed for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return s.Get(ctx, userID)
}

// APIKey returns the decrypted completion-API key for a user. Used by
// the conversation service when calling the completion endpoint.
func (s *ProfileService) APIKey(ctx context.Context, userID uuid.UUID) (string, error) {
	resp, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return resp.YandexAPIKey, nil
}
