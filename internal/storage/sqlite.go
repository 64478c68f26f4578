// Package storage persists playback sessions to a local sqlite database so a
// story can be resumed after the program exits.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dgnsrekt/storycast/playback"
)

// ErrSessionNotFound is returned when no session row exists for an id.
var ErrSessionNotFound = errors.New("session not found")

// SessionRecord is a persisted session: identity, progress, and scenes.
type SessionRecord struct {
	ID            string
	Title         string
	ChapterNumber int
	CurrentIndex  int
	StoryComplete bool
	UpdatedAt     time.Time
	Scenes        []playback.Scene
}

// SessionSummary is a row of the session list, without scenes.
type SessionSummary struct {
	ID            string
	Title         string
	ChapterNumber int
	SceneCount    int
	UpdatedAt     time.Time
}

type Storage struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path.
func New(databasePath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Storage{db: db}
	if err := s.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) initDB() error {
	query := `
    CREATE TABLE IF NOT EXISTS sessions (
        id TEXT PRIMARY KEY,
        title TEXT,
        chapter_number INTEGER NOT NULL DEFAULT 1,
        current_index INTEGER NOT NULL DEFAULT 0,
        story_complete INTEGER NOT NULL DEFAULT 0,
        updated_at TIMESTAMP NOT NULL
    );
    CREATE TABLE IF NOT EXISTS scenes (
        session_id TEXT NOT NULL,
        idx INTEGER NOT NULL,
        narration TEXT,
        image_prompt TEXT,
        negative_prompt TEXT,
        image_url TEXT,
        duration_ns INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (session_id, idx)
    );`
	_, err := s.db.Exec(query)
	return err
}

// SaveSession upserts the session row and every scene. Scenes beyond the
// current count are removed so a chapter swap does not leave stale rows.
func (s *Storage) SaveSession(rec SessionRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
    INSERT OR REPLACE INTO sessions (id, title, chapter_number, current_index, story_complete, updated_at)
    VALUES (?, ?, ?, ?, ?, ?);`,
		rec.ID, rec.Title, rec.ChapterNumber, rec.CurrentIndex, rec.StoryComplete, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", rec.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM scenes WHERE session_id = ? AND idx >= ?`, rec.ID, len(rec.Scenes)); err != nil {
		return fmt.Errorf("failed to prune scenes for session %s: %w", rec.ID, err)
	}
	for _, scene := range rec.Scenes {
		_, err := tx.Exec(`
        INSERT OR REPLACE INTO scenes (session_id, idx, narration, image_prompt, negative_prompt, image_url, duration_ns)
        VALUES (?, ?, ?, ?, ?, ?, ?);`,
			rec.ID, scene.Index, scene.NarrationText, scene.ImagePrompt,
			scene.NegativePrompt, scene.ImageURL, int64(scene.Duration))
		if err != nil {
			return fmt.Errorf("failed to save scene %d of session %s: %w", scene.Index, rec.ID, err)
		}
	}
	return tx.Commit()
}

// LoadSession fetches a full session by id.
func (s *Storage) LoadSession(id string) (*SessionRecord, error) {
	var rec SessionRecord
	var title sql.NullString
	err := s.db.QueryRow(`
    SELECT id, title, chapter_number, current_index, story_complete, updated_at
    FROM sessions WHERE id = ?`, id).Scan(
		&rec.ID, &title, &rec.ChapterNumber, &rec.CurrentIndex, &rec.StoryComplete, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	rec.Title = title.String

	rows, err := s.db.Query(`
    SELECT idx, narration, image_prompt, negative_prompt, image_url, duration_ns
    FROM scenes WHERE session_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenes for session %s: %w", id, err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var scene playback.Scene
		var narration, imagePrompt, negativePrompt, imageURL sql.NullString
		var durationNS int64
		if err := rows.Scan(&scene.Index, &narration, &imagePrompt, &negativePrompt, &imageURL, &durationNS); err != nil {
			return nil, fmt.Errorf("failed to scan scene row: %w", err)
		}
		scene.NarrationText = narration.String
		scene.ImagePrompt = imagePrompt.String
		scene.NegativePrompt = negativePrompt.String
		scene.ImageURL = imageURL.String
		scene.Duration = time.Duration(durationNS)
		scene.ContentStatus = playback.StatusReady
		if scene.ImageURL != "" {
			scene.ImageStatus = playback.StatusReady
		}
		rec.Scenes = append(rec.Scenes, scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scene rows: %w", err)
	}
	return &rec, nil
}

// ListSessions returns saved sessions, most recently updated first.
func (s *Storage) ListSessions() ([]SessionSummary, error) {
	rows, err := s.db.Query(`
    SELECT s.id, s.title, s.chapter_number, s.updated_at,
           (SELECT COUNT(*) FROM scenes WHERE session_id = s.id)
    FROM sessions s ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var title sql.NullString
		if err := rows.Scan(&sum.ID, &title, &sum.ChapterNumber, &sum.UpdatedAt, &sum.SceneCount); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sum.Title = title.String
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its scenes.
func (s *Storage) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if _, err := tx.Exec(`DELETE FROM scenes WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete scenes for session %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return tx.Commit()
}
