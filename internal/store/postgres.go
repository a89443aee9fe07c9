package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the production MessageStore backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres, verifies the connection, and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id BIGSERIAL PRIMARY KEY,
		room_name TEXT NOT NULL,
		user_id TEXT,
		user_email TEXT,
		user_name TEXT NOT NULL,
		message TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_chat_messages_room_timestamp
		ON chat_messages (room_name, timestamp DESC);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

// SaveMessage inserts one chat message.
func (s *PostgresStore) SaveMessage(ctx context.Context, msg Message) error {
	if msg.RoomName == "" {
		return ErrRoomNameRequired
	}

	query := `
		INSERT INTO chat_messages (room_name, user_id, user_email, user_name, message, timestamp)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		msg.RoomName, msg.UserID, msg.UserEmail, msg.Username, msg.Text, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("store: save message: %w", err)
	}
	return nil
}

// History returns a page of the room's messages, newest first, plus the
// total message count for the room.
func (s *PostgresStore) History(ctx context.Context, roomName string, limit, offset int) ([]Message, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM chat_messages WHERE room_name = $1`, roomName,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count history: %w", err)
	}

	query := `
		SELECT id, room_name, COALESCE(user_id, ''), COALESCE(user_email, ''), user_name, message, timestamp
		FROM chat_messages
		WHERE room_name = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, roomName, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomName, &m.UserID, &m.UserEmail, &m.Username, &m.Text, &m.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("store: scan history row: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: iterate history: %w", err)
	}

	return messages, total, nil
}

// Rooms lists every room with its message count and last activity.
func (s *PostgresStore) Rooms(ctx context.Context) ([]RoomInfo, error) {
	query := `
		SELECT room_name, count(*), max(timestamp)
		FROM chat_messages
		GROUP BY room_name
		ORDER BY room_name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []RoomInfo
	for rows.Next() {
		var info RoomInfo
		var last sql.NullTime
		if err := rows.Scan(&info.RoomName, &info.MessageCount, &last); err != nil {
			return nil, fmt.Errorf("store: scan room row: %w", err)
		}
		if last.Valid {
			ts := last.Time
			info.LastMessageTime = &ts
		}
		rooms = append(rooms, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate rooms: %w", err)
	}

	return rooms, nil
}

// CreateRoom seeds the room with an initial system message so it shows up
// in listings immediately.
func (s *PostgresStore) CreateRoom(ctx context.Context, roomName, initialMessage string) error {
	if roomName == "" {
		return ErrRoomNameRequired
	}
	if initialMessage == "" {
		initialMessage = "Room created"
	}

	query := `
		INSERT INTO chat_messages (room_name, user_name, message)
		VALUES ($1, 'system', $2)`
	if _, err := s.pool.Exec(ctx, query, roomName, initialMessage); err != nil {
		return fmt.Errorf("store: create room: %w", err)
	}
	return nil
}

// DeleteHistory removes every message in the room.
func (s *PostgresStore) DeleteHistory(ctx context.Context, roomName string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages WHERE room_name = $1`, roomName)
	if err != nil {
		return 0, fmt.Errorf("store: delete history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
