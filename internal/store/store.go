package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"chatroomgo/internal/core"
)

// MessageRecord is one durable message row. The durable id is assigned here
// and is independent of the live per-process sequence.
type MessageRecord struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	Seq        uint64    `json:"seq"`
	CreatedAt  time.Time `json:"created_at"`
}

// Postgres persists messages and answers durable-membership queries.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// AppendMessage writes one delivered message. Safe to retry: the (room, id)
// pair conflicts away duplicates.
func (s *Postgres) AppendMessage(ctx context.Context, msg core.MessageEvent) error {
	const q = `
	  INSERT INTO messages (id, room_id, sender_id, sender_name, content, seq, created_at)
	       VALUES ($1, $2, $3, $4, $5, $6, $7)
	  ON CONFLICT (id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, q,
		uuid.NewString(),
		msg.RoomID,
		msg.Sender,
		msg.SenderName,
		msg.Content,
		msg.Seq,
		msg.ServerTime,
	)
	return err
}

// ListMembers returns the durable member identities of a room.
func (s *Postgres) ListMembers(ctx context.Context, roomID string) ([]string, error) {
	const q = `SELECT identity_id FROM room_members WHERE room_id = $1`

	rows, err := s.db.QueryContext(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// ListMessages returns up to limit messages of a room, newest first,
// optionally only those with seq below beforeSeq (for paging backwards).
func (s *Postgres) ListMessages(ctx context.Context, roomID string, limit int, beforeSeq int64) ([]MessageRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	const base = `SELECT id, room_id, sender_id, coalesce(sender_name,''), content, seq, created_at
	                FROM messages WHERE room_id = $1`
	if beforeSeq >= 0 {
		rows, err = s.db.QueryContext(ctx, base+" AND seq < $2 ORDER BY seq DESC LIMIT $3",
			roomID, beforeSeq, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, base+" ORDER BY seq DESC LIMIT $2",
			roomID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]MessageRecord, 0, limit)
	for rows.Next() {
		var m MessageRecord
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Sender, &m.SenderName,
			&m.Content, &m.Seq, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
