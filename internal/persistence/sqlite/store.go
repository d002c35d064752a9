// Package sqlite provides a SQLite-backed room store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hilthontt/roomkeeper/internal/domain"
	"github.com/hilthontt/roomkeeper/internal/persistence/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists room state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ domain.RoomStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite room store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; room scopes already serialize per room.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database still answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Save replaces the room row and its participant rows in one transaction.
func (s *Store) Save(ctx context.Context, state domain.RoomState) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state.ID == "" {
		return fmt.Errorf("room id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save room: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO rooms (
		   id, name, creator_id, capacity, password_hash, announcement,
		   status, created_at, updated_at, dissolved_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   capacity = excluded.capacity,
		   password_hash = excluded.password_hash,
		   announcement = excluded.announcement,
		   status = excluded.status,
		   updated_at = excluded.updated_at,
		   dissolved_at = excluded.dissolved_at`,
		state.ID,
		state.Name,
		state.CreatorID,
		state.Capacity,
		state.PasswordHash,
		state.Announcement,
		string(state.Status),
		toMillis(state.CreatedAt),
		toMillis(state.UpdatedAt),
		toMillis(state.DissolvedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM room_participants WHERE room_id = ?`, state.ID); err != nil {
		return fmt.Errorf("clear participants: %w", err)
	}

	for position, p := range state.Participants {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO room_participants (room_id, participant_id, nickname, joined_at, position)
			 VALUES (?, ?, ?, ?, ?)`,
			state.ID, p.ID, p.Nickname, toMillis(p.JoinedAt), position,
		)
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save room: %w", err)
	}
	return nil
}

// Delete removes a room and its participants. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete room: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM room_participants WHERE room_id = ?`, id); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete room: %w", err)
	}
	return nil
}

// LoadAll returns every stored room with participants in join order.
func (s *Store) LoadAll(ctx context.Context) ([]domain.RoomState, error) {
	states, err := s.loadRooms(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(states))
	for i, state := range states {
		index[state.ID] = i
	}

	if err := s.loadParticipants(ctx, func(roomID string, p domain.Participant) {
		if idx, ok := index[roomID]; ok {
			states[idx].Participants = append(states[idx].Participants, p)
		}
	}); err != nil {
		return nil, err
	}

	return states, nil
}

func (s *Store) loadRooms(ctx context.Context) ([]domain.RoomState, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, creator_id, capacity, password_hash, announcement,
		        status, created_at, updated_at, dissolved_at
		   FROM rooms
		  ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var states []domain.RoomState
	for rows.Next() {
		var (
			state                             domain.RoomState
			status                            string
			createdAt, updatedAt, dissolvedAt int64
		)
		if err := rows.Scan(
			&state.ID,
			&state.Name,
			&state.CreatorID,
			&state.Capacity,
			&state.PasswordHash,
			&state.Announcement,
			&status,
			&createdAt,
			&updatedAt,
			&dissolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		state.Status = domain.RoomStatus(status)
		state.CreatedAt = fromMillis(createdAt)
		state.UpdatedAt = fromMillis(updatedAt)
		state.DissolvedAt = fromMillis(dissolvedAt)
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return states, nil
}

func (s *Store) loadParticipants(ctx context.Context, fn func(roomID string, p domain.Participant)) error {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT room_id, participant_id, nickname, joined_at
		   FROM room_participants
		  ORDER BY room_id, position`,
	)
	if err != nil {
		return fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			roomID   string
			p        domain.Participant
			joinedAt int64
		)
		if err := rows.Scan(&roomID, &p.ID, &p.Nickname, &joinedAt); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		p.JoinedAt = fromMillis(joinedAt)
		fn(roomID, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate participants: %w", err)
	}
	return nil
}
