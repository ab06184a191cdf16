package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	// SessionActive marks a session that is still counting reps.
	SessionActive SessionStatus = "active"
	// SessionFinished marks a session that has ended.
	SessionFinished SessionStatus = "finished"
)

// ErrSessionActive is returned when a session is started while another is running.
var ErrSessionActive = errors.New("a session is already active")

// Session is the stored summary of one marching workout.
type Session struct {
	ID        string
	Name      string
	Status    SessionStatus
	Reps      int
	Frames    int
	Rejected  int
	StartedAt time.Time
	EndedAt   *time.Time
}

// Duration returns how long the session ran, up to now if it is still active.
func (s *Session) Duration() time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, name, status, reps, frames, rejected, started_at, ended_at`

// Create inserts a new active session. An empty ID is replaced by a random UUID.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.Status == "" {
		sess.Status = SessionActive
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, string(sess.Status), sess.Reps, sess.Frames, sess.Rejected,
		sess.StartedAt, sess.EndedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// IncrementReps adds one rep to an active session.
func (r *SessionRepository) IncrementReps(id string) error {
	return r.exec(`UPDATE sessions SET reps = reps + 1 WHERE id = ? AND status = 'active'`, id)
}

// AddFrames adds to the processed and rejected frame counters of an active session.
func (r *SessionRepository) AddFrames(id string, processed, rejected int) error {
	return r.exec(
		`UPDATE sessions SET frames = frames + ?, rejected = rejected + ? WHERE id = ? AND status = 'active'`,
		processed, rejected, id,
	)
}

// Finish marks a session as finished at the given time.
// Finishing an already finished session returns ErrNotFound.
func (r *SessionRepository) Finish(id string, at time.Time) error {
	return r.exec(
		`UPDATE sessions SET status = 'finished', ended_at = ? WHERE id = ? AND status = 'active'`,
		at.UTC(), id,
	)
}

// Delete removes a session by its ID.
func (r *SessionRepository) Delete(id string) error {
	return r.exec(`DELETE FROM sessions WHERE id = ?`, id)
}

// exec runs a statement that must affect exactly one row.
func (r *SessionRepository) exec(query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var status string
	var endedAt sql.NullTime

	err := row.Scan(&sess.ID, &sess.Name, &status, &sess.Reps, &sess.Frames, &sess.Rejected,
		&sess.StartedAt, &endedAt)
	if err != nil {
		return nil, err
	}

	sess.Status = SessionStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
