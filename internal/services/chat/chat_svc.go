package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatroomgo/internal/store"
)

type RoomDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
)

// IChatService is the plain data-access surface: named-room CRUD and
// message history. No live-delivery concerns live here.
type IChatService interface {
	CreateRoom(ctx context.Context, name, creatorID string) (*RoomDTO, error)
	AddMember(ctx context.Context, roomID, identityID string) error
	ListRooms(ctx context.Context, limit, offset int) ([]RoomDTO, error)
	History(ctx context.Context, roomID string, limit int, beforeSeq int64) ([]store.MessageRecord, error)
}

type chatService struct {
	db       *sql.DB
	messages *store.Postgres
}

func NewChatService(db *sql.DB, messages *store.Postgres) IChatService {
	return &chatService{db: db, messages: messages}
}

// CreateRoom inserts a named room; the creator becomes its first durable
// member so they can join it over the live channel right away.
func (svc *chatService) CreateRoom(ctx context.Context, name, creatorID string) (*RoomDTO, error) {
	dto := &RoomDTO{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedBy: creatorID,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const insRoom = `
	  INSERT INTO rooms (id, name, created_by, created_at)
	       VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insRoom,
		dto.ID, dto.Name, dto.CreatedBy, dto.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	const insMember = `
	  INSERT INTO room_members (room_id, identity_id)
	       VALUES ($1, $2)
	  ON CONFLICT DO NOTHING`
	if _, err := tx.ExecContext(ctx, insMember, dto.ID, creatorID); err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return dto, nil
}

func (svc *chatService) AddMember(ctx context.Context, roomID, identityID string) error {
	var exists bool
	err := svc.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, roomID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoomNotFound
	}

	const q = `
	  INSERT INTO room_members (room_id, identity_id)
	       VALUES ($1, $2)
	  ON CONFLICT DO NOTHING`
	_, err = svc.db.ExecContext(ctx, q, roomID, identityID)
	return err
}

func (svc *chatService) ListRooms(ctx context.Context, limit, offset int) ([]RoomDTO, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `SELECT id, name, created_by, created_at
	             FROM rooms ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := svc.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]RoomDTO, 0, limit)
	for rows.Next() {
		var r RoomDTO
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func (svc *chatService) History(ctx context.Context, roomID string, limit int, beforeSeq int64) ([]store.MessageRecord, error) {
	return svc.messages.ListMessages(ctx, roomID, limit, beforeSeq)
}
