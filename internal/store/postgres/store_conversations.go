package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"yagptchat/internal/models"
	"yagptchat/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const createConversation = `-- name: CreateConversation :one
INSERT INTO conversations (
    id, user_id, title, messages
) VALUES (
    $1, $2, $3, $4
)
RETURNING id, user_id, title, messages, created_at, updated_at;
`

func (s *PostgresStore) CreateConversation(ctx context.Context, arg store.CreateConversationParams) (*models.Conversation, error) {
	id := arg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	messages := arg.Messages
	if messages == nil {
		messages = json.RawMessage("[]")
	}

	row := s.db.QueryRow(ctx, createConversation,
		id,
		arg.UserID,
		arg.Title,
		[]byte(messages),
	)

	var conv models.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.Messages,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error scanning conversation: %w", err)
	}

	return &conv, nil
}

const getConversationByID = `-- name: GetConversationByID :one
SELECT id, user_id, title, messages, created_at, updated_at
FROM conversations
WHERE id = $1 AND user_id = $2;
`

func (s *PostgresStore) GetConversationByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Conversation, error) {
	row := s.db.QueryRow(ctx, getConversationByID, id, userID)

	var conv models.Conversation
	err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.Messages,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("error scanning conversation: %w", err)
	}

	return &conv, nil
}

const listConversationsByUser = `-- name: ListConversationsByUser :many
SELECT id, user_id, title, messages, created_at, updated_at
FROM conversations
WHERE user_id = $1
ORDER BY created_at DESC;
`

func (s *PostgresStore) ListConversationsByUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	rows, err := s.db.Query(ctx, listConversationsByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	var items []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.Title,
			&conv.Messages,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning conversation row: %w", err)
		}
		items = append(items, conv)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return items, nil
}

const updateConversationTitle = `-- name: UpdateConversationTitle :exec
UPDATE conversations
SET title = $1, updated_at = NOW()
WHERE id = $2 AND user_id = $3;
`

func (s *PostgresStore) UpdateConversationTitle(ctx context.Context, id uuid.UUID, userID uuid.UUID, title string) error {
	tag, err := s.db.Exec(ctx, updateConversationTitle, title, id, userID)
	if err != nil {
		return fmt.Errorf("error executing update conversation title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const updateConversationMessages = `-- name: UpdateConversationMessages :exec
UPDATE conversations
SET messages = $1, updated_at = NOW()
WHERE id = $2 AND user_id = $3;
`

func (s *PostgresStore) UpdateConversationMessages(ctx context.Context, id uuid.UUID, userID uuid.UUID, messages json.RawMessage) error {
	tag, err := s.db.Exec(ctx, updateConversationMessages, []byte(messages), id, userID)
	if err != nil {
		return fmt.Errorf("error executing update conversation messages: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
