package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qrave1/ArenaChat/internal/domain/models"
)

type messageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Append(ctx context.Context, msg models.ChatMessage) (models.ChatMessage, error) {
	err := r.db.QueryRowxContext(
		ctx,
		`INSERT INTO messages (room_id, user_id, username, role, body)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		msg.RoomID,
		msg.UserID,
		msg.Username,
		msg.Role,
		msg.Body,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

func (r *messageRepo) RecentHistory(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage

	// newest N, then reorder oldest-first for delivery
	err := r.db.SelectContext(
		ctx,
		&messages,
		`SELECT * FROM (
		    SELECT * FROM messages
		    WHERE room_id = $1 AND NOT deleted
		    ORDER BY id DESC
		    LIMIT $2
		 ) recent ORDER BY id ASC`,
		roomID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select recent messages: %w", err)
	}

	return messages, nil
}

func (r *messageRepo) Since(ctx context.Context, roomID string, afterID int64, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage

	err := r.db.SelectContext(
		ctx,
		&messages,
		`SELECT * FROM messages
		 WHERE room_id = $1 AND id > $2 AND NOT deleted
		 ORDER BY id ASC
		 LIMIT $3`,
		roomID,
		afterID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select messages since %d: %w", afterID, err)
	}

	return messages, nil
}

func (r *messageRepo) MarkDeleted(ctx context.Context, messageID int64, deletedBy uuid.UUID) (models.ChatMessage, error) {
	var msg models.ChatMessage

	err := r.db.GetContext(
		ctx,
		&msg,
		`UPDATE messages SET deleted = TRUE, deleted_by = $1
		 WHERE id = $2
		 RETURNING *`,
		deletedBy,
		messageID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChatMessage{}, ErrNotFound
	}

	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("mark message deleted: %w", err)
	}

	return msg, nil
}
