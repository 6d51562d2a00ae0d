package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/qrave1/ArenaChat/internal/domain/models"
)

type roomRepo struct {
	db *sqlx.DB
}

func NewRoomRepo(db *sqlx.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) GetByID(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room

	err := r.db.GetContext(ctx, &room, "SELECT * FROM rooms WHERE room_id = $1", roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}

	return &room, nil
}

func (r *roomRepo) Create(ctx context.Context, room *models.Room) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO rooms (room_id, slow_mode_seconds, settings)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (room_id) DO NOTHING`,
		room.RoomID,
		room.SlowModeSeconds,
		room.Settings,
	)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}

	return nil
}
