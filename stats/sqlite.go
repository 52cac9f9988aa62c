package stats

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLiteSink stores episode records in a sqlite database, one row per
// (run, mode, episode).
type SQLiteSink struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteSink(path string) *SQLiteSink {
	return &SQLiteSink{path: path}
}

// Init opens the database and creates the schema. It is idempotent.
func (s *SQLiteSink) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrap(err, "open metrics database")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "open metrics database")
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS episodes (
			run_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			episode INTEGER NOT NULL,
			score INTEGER NOT NULL,
			total_reward REAL NOT NULL,
			length INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			alpha REAL NOT NULL,
			gamma REAL NOT NULL,
			epsilon REAL NOT NULL,
			finished_at TEXT NOT NULL,
			PRIMARY KEY (run_id, mode, episode)
		)
	`); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create episodes table")
	}

	s.db = db
	return nil
}

func (s *SQLiteSink) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("sqlite sink is not initialized")
	}
	return s.db, nil
}

func (s *SQLiteSink) Record(ctx context.Context, rec EpisodeRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	finished := rec.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO episodes (run_id, mode, episode, score, total_reward, length, steps, alpha, gamma, epsilon, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, mode, episode) DO UPDATE SET
			score = excluded.score,
			total_reward = excluded.total_reward,
			length = excluded.length,
			steps = excluded.steps,
			alpha = excluded.alpha,
			gamma = excluded.gamma,
			epsilon = excluded.epsilon,
			finished_at = excluded.finished_at
	`, rec.RunID, string(rec.Mode), rec.Episode, rec.Score, rec.TotalReward, rec.Length, rec.Steps,
		rec.Alpha, rec.Gamma, rec.Epsilon, finished.UTC().Format(time.RFC3339Nano))
	return errors.Wrap(err, "insert episode")
}

// Episodes returns the records of a run in episode order. An empty runID
// selects every run.
func (s *SQLiteSink) Episodes(ctx context.Context, runID string, mode Mode) ([]EpisodeRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, mode, episode, score, total_reward, length, steps, alpha, gamma, epsilon, finished_at
		FROM episodes
		WHERE (? = '' OR run_id = ?) AND mode = ?
		ORDER BY run_id, episode
	`, runID, runID, string(mode))
	if err != nil {
		return nil, errors.Wrap(err, "query episodes")
	}
	defer rows.Close()

	var out []EpisodeRecord
	for rows.Next() {
		var (
			rec      EpisodeRecord
			m        string
			finished string
		)
		if err := rows.Scan(&rec.RunID, &m, &rec.Episode, &rec.Score, &rec.TotalReward, &rec.Length,
			&rec.Steps, &rec.Alpha, &rec.Gamma, &rec.Epsilon, &finished); err != nil {
			return nil, errors.Wrap(err, "scan episode")
		}
		rec.Mode = Mode(m)
		if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
			rec.FinishedAt = t
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "query episodes")
}

func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
