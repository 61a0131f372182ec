package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"yagptchat/internal/models"
	"yagptchat/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Helper struct for JSONB storage of the encrypted API key.
type encryptedDataJSON struct {
	Data string `json:"data"` // Base64 encoded encrypted bytes
}

func wrapEncrypted(raw []byte) ([]byte, error) {
	return json.Marshal(encryptedDataJSON{Data: base64.StdEncoding.EncodeToString(raw)})
}

func unwrapEncrypted(stored []byte) ([]byte, error) {
	var wrapper encryptedDataJSON
	if err := json.Unmarshal(stored, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to process stored encrypted key: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(wrapper.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode stored encrypted key: %w", err)
	}
	return decoded, nil
}

// CreateProfile inserts a profile row holding the encrypted API key.
func (s *PostgresStore) CreateProfile(ctx context.Context, profile *models.Profile) error {
	query := `
        INSERT INTO profiles (id, encrypted_api_key)
        VALUES ($1, $2)`

	jsonBytes, err := wrapEncrypted(profile.EncryptedAPIKey)
	if err != nil {
		log.Printf("ERROR [PostgresStore] CreateProfile: Failed to marshal encrypted key for UserID %s: %v", profile.ID, err)
		return fmt.Errorf("failed to prepare encrypted key for storage: %w", err)
	}

	if _, err := s.db.Exec(ctx, query, profile.ID, jsonBytes); err != nil {
		log.Printf("ERROR [PostgresStore] CreateProfile: Failed insert for UserID %s: %v", profile.ID, err)
		return fmt.Errorf("database error creating profile: %w", err)
	}

	return nil
}

// GetProfileByUserID retrieves the profile row for a user.
func (s *PostgresStore) GetProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	query := `
        SELECT id, encrypted_api_key, created_at, updated_at
        FROM profiles
        WHERE id = $1`

	profile := &models.Profile{}
	var storedJSONBytes []byte

	err := s.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&storedJSONBytes,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetProfileByUserID: Failed query/scan for UserID %s: %v", userID, err)
		return nil, fmt.Errorf("database error fetching profile: %w", err)
	}

	decoded, err := unwrapEncrypted(storedJSONBytes)
	if err != nil {
		log.Printf("ERROR [PostgresStore] GetProfileByUserID: %v (UserID %s)", err, userID)
		return nil, err
	}
	profile.EncryptedAPIKey = decoded

	return profile, nil
}

// UpdateProfileAPIKey replaces the stored encrypted API key for a user.
func (s *PostgresStore) UpdateProfileAPIKey(ctx context.Context, userID uuid.UUID, encryptedAPIKey []byte) error {
	query := `
        UPDATE profiles
        SET encrypted_api_key = $1, updated_at = NOW()
        WHERE id = $2`

	jsonBytes, err := wrapEncrypted(encryptedAPIKey)
	if err != nil {
		log.Printf("ERROR [PostgresStore] UpdateProfileAPIKey: Failed to marshal encrypted key for UserID %s: %v", userID, err)
		return fmt.Errorf("failed to prepare encrypted key for storage: %w", err)
	}

	cmdTag, err := s.db.Exec(ctx, query, jsonBytes, userID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] UpdateProfileAPIKey: Failed exec for UserID %s: %v", userID, err)
		return fmt.Errorf("database error updating profile: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}
