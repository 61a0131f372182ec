package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// User represents a user in the database.
type User struct {
	ID             uuid.UUID `db:"id"`
	Email          string    `db:"email"`
	HashedPassword string    `db:"hashed_password"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Profile holds the per-user Yandex GPT API key, one row per user.
// The key is encrypted at rest with AES-GCM; EncryptedAPIKey holds the
// raw decoded bytes (the JSONB base64 wrapping happens in the store).
type Profile struct {
	ID              uuid.UUID `db:"id"` // Same as the owning user's ID
	EncryptedAPIKey []byte    `db:"encrypted_api_key"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Conversation represents a titled, ordered message sequence owned by one user.
// Messages are stored as a single JSONB array column.
type Conversation struct {
	ID        uuid.UUID       `db:"id"`
	UserID    uuid.UUID       `db:"user_id"`
	Title     string          `db:"title"`
	Messages  json.RawMessage `db:"messages"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}
